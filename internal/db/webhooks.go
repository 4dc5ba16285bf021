package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsertFirecrawlWebhookEventParams is the insert shape for
// insertFirecrawlWebhookEvent: a pending placeholder row stamped at
// dispatch time, before any callback has arrived.
type InsertFirecrawlWebhookEventParams struct {
	ProviderJobID string
	Kind          string
	SiteID        *uuid.UUID
	SiteURL       string
	Pattern       string
}

// InsertFirecrawlWebhookEvent inserts the pending placeholder. A second
// call for the same provider job id while the first is still pending is
// rejected by the partial unique index; callers treat that as "already
// dispatched" rather than an error.
func (q *Queries) InsertFirecrawlWebhookEvent(ctx context.Context, p InsertFirecrawlWebhookEventParams) (uuid.UUID, error) {
	id := uuid.New()
	var siteID uuid.NullUUID
	if p.SiteID != nil {
		siteID = uuid.NullUUID{UUID: *p.SiteID, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider_job_id, kind, site_id, site_url, pattern, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		id, p.ProviderJobID, p.Kind, siteID, p.SiteURL, p.Pattern)
	return id, err
}

// ListPendingFirecrawlWebhooks returns pending rows received before
// cutoff, used by the periodic sweep to retry or expire stalled jobs.
func (q *Queries) ListPendingFirecrawlWebhooks(ctx context.Context, receivedBefore time.Time) ([]WebhookEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, provider_job_id, kind, site_id, site_url, pattern, status, error,
			result_hash, received_at, processed_at
		FROM webhook_events
		WHERE status = 'pending' AND received_at < $1
		ORDER BY received_at ASC`, receivedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WebhookEvent
	for rows.Next() {
		var w WebhookEvent
		if err := rows.Scan(&w.ID, &w.ProviderJobID, &w.Kind, &w.SiteID, &w.SiteURL, &w.Pattern,
			&w.Status, &w.Error, &w.ResultHash, &w.ReceivedAt, &w.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetFirecrawlWebhookStatus fetches one webhook row by provider job id.
func (q *Queries) GetFirecrawlWebhookStatus(ctx context.Context, providerJobID string) (WebhookEvent, error) {
	var w WebhookEvent
	row := q.db.QueryRowContext(ctx, `
		SELECT id, provider_job_id, kind, site_id, site_url, pattern, status, error,
			result_hash, received_at, processed_at
		FROM webhook_events WHERE provider_job_id = $1
		ORDER BY received_at DESC LIMIT 1`, providerJobID)
	err := row.Scan(&w.ID, &w.ProviderJobID, &w.Kind, &w.SiteID, &w.SiteURL, &w.Pattern,
		&w.Status, &w.Error, &w.ResultHash, &w.ReceivedAt, &w.ProcessedAt)
	return w, err
}

// MarkFirecrawlWebhookProcessedParams is the mutation shape for
// markFirecrawlWebhookProcessed.
type MarkFirecrawlWebhookProcessedParams struct {
	ProviderJobID string
	Status        string // processed | error | cancelled_expired
	Error         string
	ResultHash    string
	Now           time.Time
}

// MarkFirecrawlWebhookProcessed idempotently transitions the pending
// placeholder for providerJobID to a terminal status. Already-terminal
// rows are left untouched.
func (q *Queries) MarkFirecrawlWebhookProcessed(ctx context.Context, p MarkFirecrawlWebhookProcessedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE webhook_events SET status = $2, error = $3, result_hash = $4, processed_at = $5
		WHERE provider_job_id = $1 AND status = 'pending'`,
		p.ProviderJobID, p.Status, p.Error, p.ResultHash, p.Now)
	return err
}
