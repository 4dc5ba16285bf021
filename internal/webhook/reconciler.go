package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
	"jobscraper/internal/normalize"
	"jobscraper/internal/providers"
	"jobscraper/internal/scrapeutil"
	"jobscraper/internal/store"
)

// Reconciler drives one webhook row through {pending -> processed |
// error | cancelled_expired} (spec section 4.7), either on an inbound
// callback or on the periodic sweep that retries aging pending rows.
type Reconciler struct {
	Store     *store.Store
	Firecrawl *providers.FirecrawlAdapter
	Deps      normalize.Deps
	Logger    *zap.Logger
}

// HandleCallback processes an inbound webhook push for jobID: it always
// re-polls GetBatchStatus rather than trusting the push payload's
// contents, since the payload is untrusted input and the status
// endpoint is the provider's source of truth.
func (r *Reconciler) HandleCallback(ctx context.Context, jobID, eventType string) error {
	return r.reconcileOne(ctx, jobID, time.Now().UTC())
}

// Sweep reads pending webhook rows older than the 23h warn threshold
// and retries their status call, per spec section 4.7's "periodic sweep
// reads pending rows older than the warn threshold and retries the
// status call".
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-23 * time.Hour)
	pending, err := r.Store.ListPendingFirecrawlWebhooks(ctx, cutoff)
	if err != nil {
		r.Logger.Warn("list pending firecrawl webhooks failed", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	for _, w := range pending {
		if err := r.reconcileOne(ctx, w.ProviderJobID, now); err != nil {
			r.Logger.Warn("sweep reconcile failed", zap.String("job_id", w.ProviderJobID), zap.Error(err))
		}
	}
}

func (r *Reconciler) reconcileOne(ctx context.Context, jobID string, now time.Time) error {
	event, err := r.Store.GetFirecrawlWebhookStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if event.Status != model.WebhookStatusPending {
		return nil // already terminal; callbacks and sweeps are both idempotent
	}

	age := providers.ClassifyWebhookAge(event.ReceivedAt, now)
	if age.Expired {
		return r.markCancelledExpired(ctx, jobID)
	}

	status, err := r.Firecrawl.GetBatchStatus(ctx, jobID)
	if err != nil {
		if age.NeedsStatusCheck {
			return r.markCancelledExpired(ctx, jobID)
		}
		return err
	}
	if providers.IsTerminalNotFound(status.StatusCode, status.RawBody) {
		return r.markCancelledExpired(ctx, jobID)
	}
	if !status.Completed {
		return nil // still running; next sweep or callback will check again
	}

	candidates := make([]model.Candidate, 0, len(status.Data))
	for _, row := range status.Data {
		candidates = append(candidates, normalize.Normalize(fragmentFromRow(row), r.Deps))
	}

	result := model.ScrapeResult{
		Scrape: model.Scrape{
			SourceURL:       event.SiteURL,
			Provider:        model.ProviderFirecrawl,
			StartedAt:       event.ReceivedAt,
			CompletedAt:     now,
			NormalizedCount: len(candidates),
		},
		Candidates: candidates,
		SiteID:     event.SiteID,
	}
	if err := r.Store.PersistScrape(ctx, result); err != nil {
		return err
	}

	if err := r.Store.CompleteScrapeUrls(ctx, model.ProviderFirecrawl, candidateURLs(status.Data), model.QueueStatusCompleted, nil); err != nil {
		r.Logger.Warn("complete scrape urls failed", zap.String("job_id", jobID), zap.Error(err))
	}

	if err := r.Store.MarkFirecrawlWebhookProcessed(ctx, jobID, model.WebhookStatusProcessed, nil, resultHash(status.Data)); err != nil {
		return err
	}
	metrics.RecordWebhookEvent(string(model.WebhookStatusProcessed))
	return nil
}

func (r *Reconciler) markCancelledExpired(ctx context.Context, jobID string) error {
	if err := r.Store.MarkFirecrawlWebhookProcessed(ctx, jobID, model.WebhookStatusCancelledExpired, nil, ""); err != nil {
		return err
	}
	metrics.RecordWebhookEvent(string(model.WebhookStatusCancelledExpired))
	return nil
}

// fragmentFromRow builds a normalizer fragment from one batch-status
// data row: Firecrawl's markdown format plus whatever url/metadata the
// row carries.
func fragmentFromRow(row map[string]any) normalize.Fragment {
	markdown := scrapeutil.ToString(row["markdown"])
	rawURL := scrapeutil.ToString(row["url"])
	if rawURL == "" {
		if meta, ok := row["metadata"].(map[string]any); ok {
			rawURL = scrapeutil.ToString(meta["sourceURL"])
		}
	}
	var jsonLD map[string]any
	if raw, ok := row["json"].(map[string]any); ok {
		jsonLD = raw
	}
	return normalize.Fragment{
		URL:         rawURL,
		Provider:    model.ProviderFirecrawl,
		Markdown:    markdown,
		JSONLD:      jsonLD,
		FetchedAtMs: time.Now().UnixMilli(),
	}
}

func candidateURLs(rows []map[string]any) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if u, ok := row["url"].(string); ok && u != "" {
			out = append(out, u)
		}
	}
	return out
}

// resultHash fingerprints the batch's raw data so a re-processed
// duplicate callback can be recognised without re-ingesting, matching
// the webhook row's result_hash column.
func resultHash(rows []map[string]any) string {
	encoded, err := json.Marshal(rows)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
