// Package platform assembles every component package into one
// dependency bag, constructed once at process startup and threaded
// through the worker, scheduler, and webhook packages, mirroring the
// teacher's single composition-root pattern in cmd/raito-api/main.go.
package platform

import (
	"database/sql"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobscraper/internal/config"
	"jobscraper/internal/enrich"
	"jobscraper/internal/filterconfig"
	"jobscraper/internal/handlers"
	"jobscraper/internal/leaser"
	"jobscraper/internal/normalize"
	"jobscraper/internal/providers"
	"jobscraper/internal/ratelimit"
	"jobscraper/internal/store"
	"jobscraper/internal/worker"
)

// Deps bundles every shared, process-lifetime dependency.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sql.DB
	Store     *store.Store
	Handlers  *handlers.Registry
	Providers *providers.Registry
	Leaser    *leaser.Leaser

	Redis *redis.Client

	// NormalizeDeps is the filters/remote-companies pair every provider
	// adapter was built with, reused by the webhook reconciler for the
	// async Firecrawl batch results that normalize outside any adapter.
	NormalizeDeps normalize.Deps

	General  *worker.GeneralWorker
	Detail   *worker.DetailWorker
	Enricher *enrich.Enricher
}

// newRedisClient parses cfg.Redis.URL, if set, into a *redis.Client.
// A missing URL is not an error: every Redis-backed component degrades
// gracefully to its no-op behavior (plain store round trips, no rate
// limiting) per their own nil-client checks.
func newRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil
	}
	return redis.NewClient(opt)
}

// Build wires every package's constructor together in the order each
// one's dependencies become available: filters and remote companies
// first (pure config), then the handler registry, then the three
// provider adapters, then the store-facing leaser and workers. The
// adapters are registered as built; none is wrapped with
// providers.WrapWithBreaker.
func Build(cfg *config.Config, database *sql.DB, logger *zap.Logger) *Deps {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := store.New(database, logger)
	handlerRegistry := handlers.NewRegistry()

	filters := filterconfig.Resolve(cfg.Filters)
	remoteCompanies := map[string]bool{}
	for _, name := range filterconfig.LoadRemoteCompanies(cfg.RemoteCompaniesPath) {
		remoteCompanies[name] = true
	}
	normSettings := providers.NormalizeSettings{Filters: filters, RemoteCompanies: remoteCompanies}

	auditor := providers.NewAuditor(logger)

	spiderCloud := providers.NewSpiderCloudAdapter(providers.SpiderCloudConfig{
		APIKey:            firstNonEmpty(cfg.Providers.SpiderAPIKey, envOr("SPIDER_API_KEY")),
		HTTPTimeout:       time.Duration(cfg.Providers.SpiderHTTPTimeoutSeconds) * time.Second,
		GreenhouseTimeout: time.Duration(cfg.Providers.SpiderJobDetailsTimeoutMinutes) * time.Minute,
		CaptchaRetryLimit: cfg.Providers.CaptchaRetryLimit,
	}, auditor, handlerRegistry, normSettings)

	firecrawl := providers.NewFirecrawlAdapter(providers.FirecrawlConfig{
		APIKey:     firstNonEmpty(cfg.Providers.FirecrawlAPIKey, envOr("FIRECRAWL_API_KEY")),
		Fanout:     cfg.Providers.FirecrawlFanout,
		WebhookURL: cfg.Providers.WebhookIngressBase,
	}, auditor, st)

	fetchFox := providers.NewFetchFoxAdapter(providers.FetchFoxConfig{
		APIKey:    firstNonEmpty(cfg.Providers.FetchFoxAPIKey, envOr("FETCHFOX_API_KEY")),
		MaxDepth:  cfg.Providers.FetchFoxMaxDepth,
		MaxVisits: cfg.Providers.FetchFoxMaxVisits,
	}, auditor, handlerRegistry, normSettings)

	registry := &providers.Registry{
		SpiderCloud: spiderCloud,
		Firecrawl:   firecrawl,
		FetchFox:    fetchFox,
		WebhookBase: cfg.Providers.WebhookIngressBase,
	}

	l := leaser.New(st, workerIdentity(), cfg.Worker.LeaseSeconds, logger)

	rdb := newRedisClient(cfg.Redis)
	siteLimiter := ratelimit.NewSiteLimiter(rdb, 30)
	seenCache := ratelimit.NewSeenCache(rdb, 24*time.Hour)

	general := &worker.GeneralWorker{
		Store:     st,
		Leaser:    l,
		Providers: registry,
		RateLimit: siteLimiter,
		SeenCache: seenCache,
		PoolSize:  cfg.Worker.GeneralPoolSize,
		Logger:    logger,
	}
	detail := &worker.DetailWorker{
		Store:     st,
		Providers: registry,
		BatchSize: cfg.Worker.LeaseBatchLimit,
		PoolSize:  cfg.Worker.JobDetailsPoolSize,
		Logger:    logger,
	}
	enricher := &enrich.Enricher{
		Store: st,
		Config: enrich.Config{
			BatchLimit:  cfg.Heuristic.BatchLimit,
			MaxAttempts: int32(cfg.Heuristic.MaxAttempts),
			Version:     int32(cfg.Heuristic.Version),
		},
		Logger: logger,
	}

	return &Deps{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		Store:         st,
		Handlers:      handlerRegistry,
		Providers:     registry,
		Leaser:        l,
		Redis:         rdb,
		NormalizeDeps: normalize.Deps{Filters: filters, RemoteCompanies: remoteCompanies},
		General:       general,
		Detail:        detail,
		Enricher:      enricher,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envOr(key string) string {
	return os.Getenv(key)
}

func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "jobscraper-worker"
	}
	return host
}
