// Package db is a hand-written, sqlc-shaped query layer over the
// Postgres schema in db/migrations. It exposes a Queries type backed by
// a DBTX (satisfied by both *sql.DB and *sql.Tx) so store-level code can
// run a handful of statements inside one transaction.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTX is the subset of *sql.DB/*sql.Tx that Queries needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries is a thin wrapper around a DBTX exposing one method per named
// store operation.
type Queries struct {
	db DBTX
}

// New builds a Queries bound to db (a *sql.DB or a *sql.Tx).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx, for composing several statements
// inside one transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Site mirrors the sites table.
type Site struct {
	ID                uuid.UUID
	Name              string
	RootURL           string
	Type              string
	URLPattern        string
	PreferredProvider string
	Enabled           bool
	ScheduleRef       string
	LastRunAt         sql.NullTime
	LockedBy          string
	LockExpiresAt     sql.NullTime
	ManualTriggerAt   sql.NullTime
	CompletionCount   int64
	FailureCount      int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QueueRow mirrors the url_queue table.
type QueueRow struct {
	ID        uuid.UUID
	URL       string
	SourceURL string
	Pattern   string
	Provider  string
	Status    string
	Attempts  int32
	SiteID    uuid.NullUUID
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job mirrors the jobs table.
type Job struct {
	URL                   string
	ApplyURL              string
	Title                 string
	Company               string
	Description           string
	Location              string
	Locations             []byte // JSON array of strings
	Country               string
	Remote                bool
	Level                 string
	TotalCompensation     int64
	CurrencyCode          string
	CompensationUnknown   bool
	CompensationReason    string
	PostedAtMs            int64
	ScrapedAtMs           int64
	ScrapedWith           string
	ScrapedCostMicrocents int64
	HeuristicAttempts     int32
	HeuristicVersion      int32
	HeuristicLastTriedMs  int64
	SourceURL             string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IgnoredJob mirrors the ignored_jobs table.
type IgnoredJob struct {
	ID        uuid.UUID
	URL       string
	Title     string
	Reason    string
	SourceURL string
	Provider  string
	CreatedAt time.Time
}

// Scrape mirrors the scrapes table.
type Scrape struct {
	ID              uuid.UUID
	SourceURL       string
	Provider        string
	StartedAt       time.Time
	CompletedAt     sql.NullTime
	RequestPreview  string
	ResponsePreview string
	NormalizedCount int32
	CostMicrocents  int64
	Truncated       bool
}

// WebhookEvent mirrors the webhook_events table.
type WebhookEvent struct {
	ID            uuid.UUID
	ProviderJobID string
	Kind          string
	SiteID        uuid.NullUUID
	SiteURL       string
	Pattern       string
	Status        string
	Error         string
	ResultHash    string
	ReceivedAt    time.Time
	ProcessedAt   sql.NullTime
}

// HeuristicConfig mirrors the heuristic_configs table.
type HeuristicConfig struct {
	Domain    string
	Field     string
	Regex     string
	CreatedAt time.Time
}
