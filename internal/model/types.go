// Package model holds the canonical data types shared across the
// scrape-and-ingest pipeline: sites, queue rows, jobs, scrapes,
// webhook events, ignored jobs, and heuristic configs.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SiteType identifies the careers-site family a Site belongs to, which
// determines which handler in the site-handler registry applies.
type SiteType string

const (
	SiteTypeGreenhouse    SiteType = "greenhouse"
	SiteTypeAshby         SiteType = "ashby"
	SiteTypeGithubCareers SiteType = "github-careers"
	SiteTypeAvature       SiteType = "avature"
	SiteTypeWorkday       SiteType = "workday"
	SiteTypeOpenAI        SiteType = "openai"
	SiteTypeNetflix       SiteType = "netflix"
	SiteTypeUber          SiteType = "uber"
	SiteTypeCisco         SiteType = "cisco"
	SiteTypeConfluent     SiteType = "confluent"
	SiteTypeDocusign      SiteType = "docusign"
	SiteTypeNotion        SiteType = "notion"
	SiteTypeGeneric       SiteType = "generic"
)

// Provider identifies one of the three interchangeable scrape-provider
// backends.
type Provider string

const (
	ProviderSpiderCloud Provider = "spidercloud"
	ProviderFirecrawl   Provider = "firecrawl"
	ProviderFetchFox    Provider = "fetchfox"
)

// Site is a monitored careers endpoint.
type Site struct {
	ID                uuid.UUID
	Name              string
	RootURL           string
	Type              SiteType
	URLPattern        string
	PreferredProvider Provider
	Enabled           bool
	ScheduleRef       string
	LastRunAt         *time.Time
	LockedBy          string
	LockExpiresAt     *time.Time
	ManualTriggerAt   *time.Time
	CompletionCount   int64
	FailureCount      int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QueueStatus is the lifecycle state of a QueueRow.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueRow is a single URL awaiting or undergoing detail-fetch.
type QueueRow struct {
	ID        uuid.UUID
	URL       string
	SourceURL string
	Pattern   string
	Provider  Provider
	Status    QueueStatus
	Attempts  int32
	SiteID    *uuid.UUID
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Level is the normalized seniority level of a job posting.
type Level string

const (
	LevelJunior Level = "junior"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
	LevelStaff  Level = "staff"
	LevelIntern Level = "intern"
)

// Job is the canonical ingested job-posting row.
type Job struct {
	URL                   string
	ApplyURL              string
	Title                 string
	Company               string
	Description           string
	Location              string
	Locations             []string
	Country               string
	Remote                bool
	Level                 Level
	TotalCompensation     int64
	CurrencyCode          string
	CompensationUnknown   bool
	CompensationReason    string
	PostedAtMs            int64
	ScrapedAtMs           int64
	ScrapedWith           Provider
	ScrapedCostMicrocents int64
	HeuristicAttempts     int32
	HeuristicVersion      int32
	HeuristicLastTriedMs  int64
}

// IgnoreReason enumerates why a candidate row was not ingested as a job.
type IgnoreReason string

const (
	IgnoreMissingKeyword IgnoreReason = "missing_required_keyword"
	IgnoreErrorLanding   IgnoreReason = "error_landing"
	IgnoreListingPage    IgnoreReason = "listing_page"
	IgnoreListingPayload IgnoreReason = "listing_payload"
	IgnoreFiltered       IgnoreReason = "filtered"
)

// IgnoredJob records a candidate URL that was deliberately not ingested.
type IgnoredJob struct {
	URL       string
	Title     string
	Reason    IgnoreReason
	SourceURL string
	Provider  Provider
	CreatedAt time.Time
}

// Scrape is an append-only log entry for one completed fetch cycle.
type Scrape struct {
	ID              uuid.UUID
	SourceURL       string
	Provider        Provider
	StartedAt       time.Time
	CompletedAt     time.Time
	RequestPreview  string
	ResponsePreview string
	NormalizedCount int
	CostMicrocents  int64
	Truncated       bool
}

// WebhookEventKind enumerates the async provider callback kinds the
// system subscribes to.
type WebhookEventKind string

const (
	WebhookKindCompleted      WebhookEventKind = "completed"
	WebhookKindFailed         WebhookEventKind = "failed"
	WebhookKindBatchStarted   WebhookEventKind = "batch_scrape.started"
	WebhookKindBatchPage      WebhookEventKind = "batch_scrape.page"
	WebhookKindBatchCompleted WebhookEventKind = "batch_scrape.completed"
	WebhookKindBatchFailed    WebhookEventKind = "batch_scrape.failed"
)

// WebhookStatus is the lifecycle state of a WebhookEvent row.
type WebhookStatus string

const (
	WebhookStatusPending          WebhookStatus = "pending"
	WebhookStatusProcessed        WebhookStatus = "processed"
	WebhookStatusError            WebhookStatus = "error"
	WebhookStatusCancelledExpired WebhookStatus = "cancelled_expired"
)

// WebhookEvent is a pending or processed provider callback placeholder.
type WebhookEvent struct {
	ID            uuid.UUID
	ProviderJobID string
	Kind          WebhookEventKind
	SiteID        *uuid.UUID
	SiteURL       string
	Pattern       string
	Status        WebhookStatus
	Error         string
	ResultHash    string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
}

// HeuristicField enumerates the fields the enricher can learn a regex for.
type HeuristicField string

const (
	HeuristicFieldLocation     HeuristicField = "location"
	HeuristicFieldCompensation HeuristicField = "compensation"
)

// HeuristicConfig is a learned regex that previously matched a
// description for a given domain and field.
type HeuristicConfig struct {
	Domain string
	Field  HeuristicField
	Regex  string
}

// Candidate is one normalizer output: either an accepted Job or a
// rejected IgnoredJob, never both.
type Candidate struct {
	Job     *Job
	Ignored *IgnoredJob
}

// ScrapeResult is the bundle a provider/normalizer pipeline hands to the
// storage adapter for one completed fetch cycle: the append-only scrape
// log entry, the candidates it produced, and any further URLs discovered
// (job-detail or pagination links) to feed back into the queue.
type ScrapeResult struct {
	Scrape         Scrape
	Candidates     []Candidate
	DiscoveredURLs []string
	SiteID         *uuid.UUID
}
