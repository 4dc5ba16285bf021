// Package store is the external transactional store client: the sole
// shared mutable resource in the pipeline (spec section 5). It wraps the
// hand-written sqlc-shaped internal/db query layer with the named
// store operations listed in spec section 6 (router:*), including the
// storage adapter's trim-and-persist pipeline from spec section 4.6.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"jobscraper/internal/db"
	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
)

// Store wraps access to the database via the hand-written Queries layer.
type Store struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{DB: database, Logger: logger}
}

func (s *Store) queries() *db.Queries { return db.New(s.DB) }

// --- router:listSites / router:leaseSite / router:completeSite / router:failSite ---

// ListSites mirrors router:listSites.
func (s *Store) ListSites(ctx context.Context, f db.ListSitesFilter) ([]model.Site, error) {
	rows, err := s.queries().ListSites(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.Site, 0, len(rows))
	for _, r := range rows {
		out = append(out, siteFromRow(r))
	}
	return out, nil
}

// LeaseSite mirrors router:leaseSite: atomically claims at most one
// eligible site for workerID.
func (s *Store) LeaseSite(ctx context.Context, workerID string, lockSeconds int, siteType, scrapeProvider string) (*model.Site, error) {
	row, err := s.queries().LeaseSite(ctx, db.LeaseSiteParams{
		WorkerID:       workerID,
		LockSeconds:    lockSeconds,
		SiteType:       siteType,
		ScrapeProvider: scrapeProvider,
		Now:            time.Now().UTC(),
	})
	if err != nil || row == nil {
		return nil, err
	}
	site := siteFromRow(*row)
	return &site, nil
}

// CompleteSite mirrors router:completeSite. IDs that do not look
// store-native are a silent no-op (spec section 4.3).
func (s *Store) CompleteSite(ctx context.Context, id string) error {
	return s.queries().CompleteSite(ctx, id, time.Now().UTC())
}

// FailSite mirrors router:failSite. err is logged but does not change
// the no-op behavior for non-store-native ids.
func (s *Store) FailSite(ctx context.Context, id string, cause error) error {
	if cause != nil {
		s.Logger.Warn("site failed", zap.String("site_id", id), zap.Error(cause))
	}
	return s.queries().FailSite(ctx, id, time.Now().UTC())
}

func siteFromRow(r db.Site) model.Site {
	site := model.Site{
		ID:                r.ID,
		Name:              r.Name,
		RootURL:           r.RootURL,
		Type:              model.SiteType(r.Type),
		URLPattern:        r.URLPattern,
		PreferredProvider: model.Provider(r.PreferredProvider),
		Enabled:           r.Enabled,
		ScheduleRef:       r.ScheduleRef,
		LockedBy:          r.LockedBy,
		CompletionCount:   r.CompletionCount,
		FailureCount:      r.FailureCount,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.LastRunAt.Valid {
		site.LastRunAt = &r.LastRunAt.Time
	}
	if r.LockExpiresAt.Valid {
		site.LockExpiresAt = &r.LockExpiresAt.Time
	}
	if r.ManualTriggerAt.Valid {
		site.ManualTriggerAt = &r.ManualTriggerAt.Time
	}
	return site
}

// --- router:listSeenJobUrlsForSite / router:findExistingJobUrls ---

// ListSeenJobUrlsForSite mirrors router:listSeenJobUrlsForSite.
func (s *Store) ListSeenJobUrlsForSite(ctx context.Context, sourceURL, pattern string) (map[string]bool, error) {
	return s.queries().ListSeenJobUrlsForSite(ctx, db.ListSeenJobUrlsForSiteFilter{SourceURL: sourceURL, Pattern: pattern})
}

// FindExistingJobUrls mirrors router:findExistingJobUrls.
func (s *Store) FindExistingJobUrls(ctx context.Context, candidateUrls []string) (map[string]bool, error) {
	return s.queries().FindExistingJobUrls(ctx, candidateUrls)
}

// --- router:enqueueScrapeUrls / leaseScrapeUrlBatch / completeScrapeUrls / listQueuedScrapeUrls ---

// EnqueueScrapeUrlsParams mirrors the router:enqueueScrapeUrls payload.
// A nil SiteID leaves the row's site_id NULL; an empty Pattern is stored
// as the empty string.
type EnqueueScrapeUrlsParams struct {
	URLs      []string
	SourceURL string
	Provider  model.Provider
	SiteID    *uuid.UUID
	Pattern   string
}

// EnqueueScrapeUrls mirrors router:enqueueScrapeUrls, returning the
// subset of URLs actually queued (already-queued or terminal-duplicate
// URLs are silently skipped).
func (s *Store) EnqueueScrapeUrls(ctx context.Context, p EnqueueScrapeUrlsParams) ([]string, error) {
	var siteID *uuid.UUID
	if p.SiteID != nil && looksLikeStoreID(p.SiteID.String()) {
		siteID = p.SiteID
	}
	queued, err := s.queries().EnqueueScrapeUrls(ctx, db.EnqueueScrapeUrlsParams{
		URLs:      p.URLs,
		SourceURL: p.SourceURL,
		Provider:  string(p.Provider),
		SiteID:    siteID,
		Pattern:   p.Pattern,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordQueueEnqueued(string(p.Provider), len(queued))
	return queued, nil
}

// LeaseScrapeUrlBatchParams mirrors the router:leaseScrapeUrlBatch
// payload.
type LeaseScrapeUrlBatchParams struct {
	Provider         model.Provider
	Limit            int
	ProcessingExpiry time.Duration
}

// LeaseScrapeUrlBatch mirrors router:leaseScrapeUrlBatch.
func (s *Store) LeaseScrapeUrlBatch(ctx context.Context, p LeaseScrapeUrlBatchParams) ([]model.QueueRow, error) {
	rows, err := s.queries().LeaseScrapeUrlBatch(ctx, db.LeaseScrapeUrlBatchParams{
		Provider:         string(p.Provider),
		Limit:            p.Limit,
		ProcessingExpiry: p.ProcessingExpiry,
		Now:              time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.QueueRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, queueRowFromRow(r))
	}
	metrics.RecordQueueLeased(string(p.Provider), len(out))
	return out, nil
}

func queueRowFromRow(r db.QueueRow) model.QueueRow {
	row := model.QueueRow{
		ID:        r.ID,
		URL:       r.URL,
		SourceURL: r.SourceURL,
		Pattern:   r.Pattern,
		Provider:  model.Provider(r.Provider),
		Status:    model.QueueStatus(r.Status),
		Attempts:  r.Attempts,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.SiteID.Valid {
		id := r.SiteID.UUID
		row.SiteID = &id
	}
	return row
}

// CompleteScrapeUrls mirrors router:completeScrapeUrls, transitioning
// rows by (provider, url). This is the sole mechanism that prevents
// permanently stuck "processing" rows: every leased batch must reach
// this call, including on panic/cancellation paths (spec section 4.2).
func (s *Store) CompleteScrapeUrls(ctx context.Context, provider model.Provider, urls []string, status model.QueueStatus, cause error) error {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	if err := s.queries().CompleteScrapeUrlsByURL(ctx, db.CompleteScrapeUrlsByURLParams{
		URLs:     urls,
		Provider: string(provider),
		Status:   string(status),
		Error:    errMsg,
		Now:      time.Now().UTC(),
	}); err != nil {
		return err
	}
	metrics.RecordQueueCompleted(string(provider), string(status), len(urls))
	return nil
}

// ListQueuedScrapeUrls mirrors router:listQueuedScrapeUrls.
func (s *Store) ListQueuedScrapeUrls(ctx context.Context, f db.ListQueuedScrapeUrlsFilter) ([]model.QueueRow, error) {
	rows, err := s.queries().ListQueuedScrapeUrls(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.QueueRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, queueRowFromRow(r))
	}
	return out, nil
}

// looksLikeStoreID reports whether id has the shape of a store-native
// identifier, matching db.looksLikeStoreID's UUID check.
func looksLikeStoreID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
