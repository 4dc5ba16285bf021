package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/model"
	"jobscraper/internal/providers"
	"jobscraper/internal/store"
)

// processingExpiry bounds how long a leased queue batch may sit in the
// processing state before the next lease call reclaims it as stale
// (spec section 4.2).
const processingExpiry = 10 * time.Minute

// DetailWorker runs one job-details cycle per provider: lease a batch
// of queued detail URLs, group them by their source/pattern, dispatch
// each group's adapter call, and persist the resulting candidates.
// Firecrawl's async batches are left in the processing state for the
// webhook reconciler to complete; every other provider completes its
// batch synchronously once ScrapeGreenhouseJobs returns.
type DetailWorker struct {
	Store     *store.Store
	Providers *providers.Registry
	BatchSize int
	PoolSize  int
	Logger    *zap.Logger
}

// RunTick leases and processes one batch per configured provider.
func (w *DetailWorker) RunTick(ctx context.Context) {
	for _, adapter := range w.adapters() {
		if adapter == nil || !adapter.HasCredentials() {
			continue
		}
		w.runProvider(ctx, adapter)
	}
}

func (w *DetailWorker) adapters() []providers.Adapter {
	return []providers.Adapter{w.Providers.SpiderCloud, w.Providers.Firecrawl, w.Providers.FetchFox}
}

func (w *DetailWorker) runProvider(ctx context.Context, adapter providers.Adapter) {
	batchSize := w.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	rows, err := w.Store.LeaseScrapeUrlBatch(ctx, store.LeaseScrapeUrlBatchParams{
		Provider:         adapter.Name(),
		Limit:            batchSize,
		ProcessingExpiry: processingExpiry,
	})
	if err != nil {
		w.Logger.Warn("lease scrape url batch failed", zap.String("provider", string(adapter.Name())), zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	groups := groupQueueRows(rows)
	poolSize := w.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	sem := make(chan struct{}, poolSize)
	for _, g := range groups {
		sem <- struct{}{}
		go func(g queueGroup) {
			defer func() { <-sem }()
			w.processGroup(ctx, adapter, g)
		}(g)
	}
	for i := 0; i < cap(sem); i++ {
		sem <- struct{}{}
	}
}

// queueGroup batches queue rows that share a sourceURL/pattern so one
// adapter call can cover them together.
type queueGroup struct {
	SourceURL string
	Pattern   string
	URLs      []string
}

func groupQueueRows(rows []model.QueueRow) []queueGroup {
	index := map[string]int{}
	var groups []queueGroup
	for _, r := range rows {
		key := r.SourceURL + "\x00" + r.Pattern
		if i, ok := index[key]; ok {
			groups[i].URLs = append(groups[i].URLs, r.URL)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, queueGroup{SourceURL: r.SourceURL, Pattern: r.Pattern, URLs: []string{r.URL}})
	}
	return groups
}

func (w *DetailWorker) processGroup(ctx context.Context, adapter providers.Adapter, g queueGroup) {
	logger := w.Logger.With(zap.String("provider", string(adapter.Name())), zap.String("source_url", g.SourceURL))

	payload, err := adapter.ScrapeGreenhouseJobs(ctx, g.URLs, g.SourceURL, g.Pattern)
	if err != nil {
		logger.Warn("scrape detail batch failed", zap.Error(err))
		if err := w.Store.CompleteScrapeUrls(ctx, adapter.Name(), g.URLs, model.QueueStatusFailed, err); err != nil {
			logger.Warn("mark batch failed failed", zap.Error(err))
		}
		return
	}

	if len(payload.Result.Candidates) > 0 || payload.Result.Scrape.SourceURL != "" {
		if err := w.Store.PersistScrape(ctx, payload.Result); err != nil {
			logger.Warn("persist scrape failed", zap.Error(err))
		}
	}

	if payload.Queued {
		// Async provider: results materialise later via the webhook
		// reconciler, which completes these rows itself. Leave them
		// processing; the stale-processing reclaim bounds how long
		// they can wait for a webhook that never arrives.
		return
	}

	if err := w.Store.CompleteScrapeUrls(ctx, adapter.Name(), g.URLs, model.QueueStatusCompleted, nil); err != nil {
		logger.Warn("complete scrape urls failed", zap.Error(err))
	}
}
