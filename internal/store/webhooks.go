package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"jobscraper/internal/db"
	"jobscraper/internal/model"
)

// InsertFirecrawlWebhookEvent mirrors router:insertFirecrawlWebhookEvent.
func (s *Store) InsertFirecrawlWebhookEvent(ctx context.Context, providerJobID string, kind model.WebhookEventKind, siteID *uuid.UUID, siteURL, pattern string) (uuid.UUID, error) {
	return s.queries().InsertFirecrawlWebhookEvent(ctx, db.InsertFirecrawlWebhookEventParams{
		ProviderJobID: providerJobID,
		Kind:          string(kind),
		SiteID:        siteID,
		SiteURL:       siteURL,
		Pattern:       pattern,
	})
}

// ListPendingFirecrawlWebhooks mirrors router:listPendingFirecrawlWebhooks.
func (s *Store) ListPendingFirecrawlWebhooks(ctx context.Context, receivedBefore time.Time) ([]model.WebhookEvent, error) {
	rows, err := s.queries().ListPendingFirecrawlWebhooks(ctx, receivedBefore)
	if err != nil {
		return nil, err
	}
	out := make([]model.WebhookEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, webhookFromRow(r))
	}
	return out, nil
}

// GetFirecrawlWebhookStatus mirrors router:getFirecrawlWebhookStatus.
func (s *Store) GetFirecrawlWebhookStatus(ctx context.Context, providerJobID string) (model.WebhookEvent, error) {
	r, err := s.queries().GetFirecrawlWebhookStatus(ctx, providerJobID)
	if err != nil {
		return model.WebhookEvent{}, err
	}
	return webhookFromRow(r), nil
}

// MarkFirecrawlWebhookProcessed mirrors router:markFirecrawlWebhookProcessed.
func (s *Store) MarkFirecrawlWebhookProcessed(ctx context.Context, providerJobID string, status model.WebhookStatus, cause error, resultHash string) error {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	return s.queries().MarkFirecrawlWebhookProcessed(ctx, db.MarkFirecrawlWebhookProcessedParams{
		ProviderJobID: providerJobID,
		Status:        string(status),
		Error:         errMsg,
		ResultHash:    resultHash,
		Now:           time.Now().UTC(),
	})
}

func webhookFromRow(r db.WebhookEvent) model.WebhookEvent {
	w := model.WebhookEvent{
		ID:            r.ID,
		ProviderJobID: r.ProviderJobID,
		Kind:          model.WebhookEventKind(r.Kind),
		SiteURL:       r.SiteURL,
		Pattern:       r.Pattern,
		Status:        model.WebhookStatus(r.Status),
		Error:         r.Error,
		ResultHash:    r.ResultHash,
		ReceivedAt:    r.ReceivedAt,
	}
	if r.SiteID.Valid {
		id := r.SiteID.UUID
		w.SiteID = &id
	}
	if r.ProcessedAt.Valid {
		w.ProcessedAt = &r.ProcessedAt.Time
	}
	return w
}
