// Package config loads the YAML-derived runtime, filter, and schedule
// configuration for the scrape-and-ingest pipeline.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds credentials and endpoints for the three
// interchangeable scrape-provider backends. Credentials are normally
// supplied via environment variables (SPIDER_API_KEY, FIRECRAWL_API_KEY,
// FETCHFOX_API_KEY) per spec section 6; the YAML fields are a fallback
// for local/dev use.
type ProviderConfig struct {
	SpiderAPIKey       string `yaml:"spiderApiKey"`
	FirecrawlAPIKey    string `yaml:"firecrawlApiKey"`
	FetchFoxAPIKey     string `yaml:"fetchfoxApiKey"`
	WebhookIngressBase string `yaml:"webhookIngressBase"`

	SpiderHTTPTimeoutSeconds       int `yaml:"spidercloudHttpTimeoutSeconds"`
	SpiderJobDetailsTimeoutMinutes int `yaml:"spidercloudJobDetailsTimeoutMinutes"`
	SpiderProcessingExpireMinutes  int `yaml:"spidercloudJobDetailsProcessingExpireMinutes"`
	SpiderBatchSize                int `yaml:"spidercloudBatchSize"`
	SpiderFanout                   int `yaml:"spidercloudFanout"`
	FirecrawlFanout                int `yaml:"firecrawlFanout"`
	FetchFoxMaxDepth               int `yaml:"fetchfoxMaxDepth"`
	FetchFoxMaxVisits              int `yaml:"fetchfoxMaxVisits"`
	CaptchaRetryLimit              int `yaml:"captchaRetryLimit"`
}

type WorkerConfig struct {
	GeneralPoolSize     int `yaml:"generalPoolSize"`
	JobDetailsPoolSize  int `yaml:"jobDetailsPoolSize"`
	PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	LeaseSeconds        int `yaml:"leaseSeconds"`
	LeaseBatchLimit     int `yaml:"leaseBatchLimit"`
}

// ScheduleConfig controls the non-overlapping cron cadence and catch-up
// window used by the site-leaser scheduler.
type ScheduleConfig struct {
	GeneralCron        string `yaml:"generalCron"`
	JobDetailsCron     string `yaml:"jobDetailsCron"`
	HeuristicCron      string `yaml:"heuristicCron"`
	WebhookSweepCron   string `yaml:"webhookSweepCron"`
	CatchupWindowHours int    `yaml:"catchupWindowHours"`
}

type TitleKeywordsConfig struct {
	Required         []string `yaml:"required"`
	AllowWhenMissing *bool    `yaml:"allowWhenMissing"`
}

type LocationFiltersConfig struct {
	RequireUSA       *bool    `yaml:"requireUsa"`
	AllowWhenMissing *bool    `yaml:"allowWhenMissing"`
	USTerms          []string `yaml:"usTerms"`
	USStateCodes     []string `yaml:"usStateCodes"`
	USStateNames     []string `yaml:"usStateNames"`
	USCityHints      []string `yaml:"usCityHints"`
	NonUSTerms       []string `yaml:"nonUsTerms"`
}

// FiltersConfig mirrors scraper_filters.yaml.
type FiltersConfig struct {
	TitleKeywords   TitleKeywordsConfig   `yaml:"title_keywords"`
	LocationFilters LocationFiltersConfig `yaml:"location_filters"`
}

// HeuristicConfig controls the enrichment batch job's pacing.
type HeuristicConfig struct {
	BatchLimit  int `yaml:"batchLimit"`
	MaxAttempts int `yaml:"maxAttempts"`
	Version     int `yaml:"version"`
}

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Providers ProviderConfig  `yaml:"providers"`
	Worker    WorkerConfig    `yaml:"worker"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Filters   FiltersConfig   `yaml:"filters"`
	Heuristic HeuristicConfig `yaml:"heuristic"`

	// FiltersPath and RemoteCompaniesPath point at the standalone YAML
	// files named in spec section 6. FiltersPath is not read: filter
	// settings come from the Filters section above. An empty
	// RemoteCompaniesPath loads no remote companies.
	FiltersPath         string `yaml:"filtersPath"`
	RemoteCompaniesPath string `yaml:"remoteCompaniesPath"`
}

// Load reads and decodes the runtime.yaml-shaped config file at path.
// Integer fields are given fixed defaults matching spec section 6
// (15 / 50 / 4 / 20 / 900 / 4 / 4) when left at zero.
func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Worker.GeneralPoolSize <= 0 {
		cfg.Worker.GeneralPoolSize = 4
	}
	if cfg.Worker.JobDetailsPoolSize <= 0 {
		cfg.Worker.JobDetailsPoolSize = 4
	}
	if cfg.Worker.PollIntervalSeconds <= 0 {
		cfg.Worker.PollIntervalSeconds = 15
	}
	if cfg.Worker.LeaseSeconds <= 0 {
		cfg.Worker.LeaseSeconds = 300
	}
	if cfg.Worker.LeaseBatchLimit <= 0 {
		cfg.Worker.LeaseBatchLimit = 50
	}

	if cfg.Providers.SpiderHTTPTimeoutSeconds <= 0 {
		cfg.Providers.SpiderHTTPTimeoutSeconds = 900
	}
	if cfg.Providers.SpiderJobDetailsTimeoutMinutes <= 0 {
		cfg.Providers.SpiderJobDetailsTimeoutMinutes = 15
	}
	if cfg.Providers.SpiderProcessingExpireMinutes <= 0 {
		cfg.Providers.SpiderProcessingExpireMinutes = 20
	}
	if cfg.Providers.SpiderBatchSize <= 0 {
		cfg.Providers.SpiderBatchSize = 50
	}
	if cfg.Providers.SpiderFanout <= 0 {
		cfg.Providers.SpiderFanout = 4
	}
	if cfg.Providers.FirecrawlFanout <= 0 {
		cfg.Providers.FirecrawlFanout = 5
	}
	if cfg.Providers.FetchFoxMaxDepth <= 0 {
		cfg.Providers.FetchFoxMaxDepth = 5
	}
	if cfg.Providers.FetchFoxMaxVisits <= 0 || cfg.Providers.FetchFoxMaxVisits > 20 {
		cfg.Providers.FetchFoxMaxVisits = 20
	}
	if cfg.Providers.CaptchaRetryLimit <= 0 {
		cfg.Providers.CaptchaRetryLimit = 2
	}

	if cfg.Schedule.CatchupWindowHours <= 0 {
		cfg.Schedule.CatchupWindowHours = 12
	}

	if cfg.Heuristic.BatchLimit <= 0 {
		cfg.Heuristic.BatchLimit = 50
	}
	if cfg.Heuristic.MaxAttempts <= 0 {
		cfg.Heuristic.MaxAttempts = 5
	}
	if cfg.Heuristic.Version <= 0 {
		cfg.Heuristic.Version = 1
	}
}

// Validate performs basic sanity checks on the loaded configuration so
// obviously missing credentials fail fast at startup.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	if cfg.Providers.SpiderAPIKey == "" && os.Getenv("SPIDER_API_KEY") == "" &&
		cfg.Providers.FirecrawlAPIKey == "" && os.Getenv("FIRECRAWL_API_KEY") == "" &&
		cfg.Providers.FetchFoxAPIKey == "" && os.Getenv("FETCHFOX_API_KEY") == "" {
		return fmt.Errorf("no scrape-provider credentials configured (SPIDER_API_KEY, FIRECRAWL_API_KEY, FETCHFOX_API_KEY)")
	}
	return nil
}
