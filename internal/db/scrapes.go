package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// InsertScrapeParams is the insert shape for insertScrapeRecord.
type InsertScrapeParams struct {
	SourceURL       string
	Provider        string
	StartedAt       time.Time
	CompletedAt     time.Time
	RequestPreview  string
	ResponsePreview string
	NormalizedCount int32
	CostMicrocents  int64
	Truncated       bool
}

// InsertScrapeRecord appends one scrape log entry and returns its id.
func (q *Queries) InsertScrapeRecord(ctx context.Context, p InsertScrapeParams) (uuid.UUID, error) {
	id := uuid.New()
	var completed sql.NullTime
	if !p.CompletedAt.IsZero() {
		completed = sql.NullTime{Time: p.CompletedAt, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrapes (id, source_url, provider, started_at, completed_at,
			request_preview, response_preview, normalized_count, cost_microcents, truncated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		id, p.SourceURL, p.Provider, p.StartedAt, completed,
		p.RequestPreview, p.ResponsePreview, p.NormalizedCount, p.CostMicrocents, p.Truncated)
	return id, err
}

// InsertIgnoredJobParams is the insert shape for insertIgnoredJob.
type InsertIgnoredJobParams struct {
	URL       string
	Title     string
	Reason    string
	SourceURL string
	Provider  string
}

func (q *Queries) InsertIgnoredJob(ctx context.Context, p InsertIgnoredJobParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ignored_jobs (url, title, reason, source_url, provider)
		VALUES ($1,$2,$3,$4,$5)`, p.URL, p.Title, p.Reason, p.SourceURL, p.Provider)
	return err
}

// InsertScrapeErrorParams is the insert shape for insertScrapeError.
type InsertScrapeErrorParams struct {
	SourceURL string
	Provider  string
	RawLength int
	Message   string
}

func (q *Queries) InsertScrapeError(ctx context.Context, p InsertScrapeErrorParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrape_errors (source_url, provider, raw_length, message)
		VALUES ($1,$2,$3,$4)`, p.SourceURL, p.Provider, p.RawLength, p.Message)
	return err
}

// RecordWorkflowRunParams is the insert shape for temporal:recordWorkflowRun.
type RecordWorkflowRunParams struct {
	Name       string
	Status     string
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordWorkflowRun is a best-effort append; callers must swallow its
// error rather than fail the activity that is merely reporting itself.
func (q *Queries) RecordWorkflowRun(ctx context.Context, p RecordWorkflowRunParams) error {
	var finished sql.NullTime
	if !p.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: p.FinishedAt, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (name, status, detail, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5)`, p.Name, p.Status, p.Detail, p.StartedAt, finished)
	return err
}
