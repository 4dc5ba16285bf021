// Package worker implements the two worker roles spec section 4.3
// describes: the general scrape-site role (leases a site, runs its
// listing fetch, enqueues discovered detail URLs) and the job-details
// role (leases a batch of queued detail URLs and normalizes them into
// job rows). Both are invoked per-tick by the cron scheduler rather
// than by a ticker loop of their own, but keep the teacher's
// semaphore-bounded concurrent-dispatch shape for the batch of work a
// single tick picks up.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/leaser"
	"jobscraper/internal/model"
	"jobscraper/internal/providers"
	"jobscraper/internal/ratelimit"
	"jobscraper/internal/store"
)

// GeneralWorker runs one scrape-site cycle per leased site: listing
// fetch (or Greenhouse-specific listing enumeration), discovered-URL
// enqueue, and scrape-record persistence.
type GeneralWorker struct {
	Store      *store.Store
	Leaser     *leaser.Leaser
	Providers  *providers.Registry
	RateLimit  *ratelimit.SiteLimiter
	SeenCache  *ratelimit.SeenCache
	PoolSize   int
	Logger     *zap.Logger
}

// RunTick leases up to PoolSize sites (one siteType if non-empty) and
// processes each concurrently, mirroring the teacher's
// semaphore-bounded dispatch loop.
func (w *GeneralWorker) RunTick(ctx context.Context, siteType string) {
	poolSize := w.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	sem := make(chan struct{}, poolSize)
	for i := 0; i < poolSize; i++ {
		site, err := w.Leaser.Lease(ctx, siteType, "")
		if err != nil || site == nil {
			break
		}
		sem <- struct{}{}
		go func(s model.Site) {
			defer func() { <-sem }()
			w.processSite(ctx, s)
		}(*site)
	}
	for i := 0; i < cap(sem); i++ {
		sem <- struct{}{}
	}
}

func (w *GeneralWorker) processSite(ctx context.Context, site model.Site) {
	logger := w.Logger.With(zap.String("site_id", site.ID.String()), zap.String("site", site.Name))

	if allowed, err := w.RateLimit.Allow(ctx, site.ID.String()); err != nil {
		logger.Warn("rate limiter check failed, allowing", zap.Error(err))
	} else if !allowed {
		logger.Debug("site rate-limited this window, releasing lease")
		_ = w.Leaser.Fail(ctx, site.ID.String(), nil)
		return
	}

	adapter, err := w.Providers.Select(site)
	if err != nil {
		logger.Warn("no provider available", zap.Error(err))
		_ = w.Leaser.Fail(ctx, site.ID.String(), err)
		return
	}

	result, err := w.fetchListing(ctx, site, adapter)
	if err != nil {
		logger.Warn("listing fetch failed", zap.Error(err))
		_ = w.Store.InsertScrapeError(ctx, site.RootURL, adapter.Name(), 0, err.Error())
		_ = w.Leaser.Fail(ctx, site.ID.String(), err)
		return
	}
	result.SiteID = &site.ID

	if err := w.Store.PersistScrape(ctx, result); err != nil {
		logger.Warn("persist scrape failed", zap.Error(err))
		_ = w.Leaser.Fail(ctx, site.ID.String(), err)
		return
	}
	w.markDiscoveredSeen(ctx, result.DiscoveredURLs)
	if err := w.Leaser.Complete(ctx, site.ID.String()); err != nil {
		logger.Warn("complete site failed", zap.Error(err))
	}
}

// fetchListing runs the listing-enumeration step appropriate to the
// site's type: Greenhouse sites get the dedicated board-JSON listing
// fetch (new job URLs diffed against what the store has already seen);
// every other site type runs the adapter's generic ScrapeSite, which
// discovers URLs directly.
func (w *GeneralWorker) fetchListing(ctx context.Context, site model.Site, adapter providers.Adapter) (model.ScrapeResult, error) {
	if site.Type != model.SiteTypeGreenhouse {
		skip, err := w.seenURLs(ctx, site)
		if err != nil {
			return model.ScrapeResult{}, err
		}
		payload, err := adapter.ScrapeSite(ctx, site, skip)
		if err != nil {
			return model.ScrapeResult{}, err
		}
		return payload.Result, nil
	}

	listing, err := adapter.FetchGreenhouseListing(ctx, site)
	if err != nil {
		return model.ScrapeResult{}, err
	}
	seen, err := w.seenURLs(ctx, site)
	if err != nil {
		return model.ScrapeResult{}, err
	}
	discovered := make([]string, 0, len(listing.JobURLs))
	for _, u := range listing.JobURLs {
		if !seen[u] {
			discovered = append(discovered, u)
		}
	}
	return model.ScrapeResult{
		Scrape: model.Scrape{
			SourceURL:       site.RootURL,
			Provider:        adapter.Name(),
			StartedAt:       time.UnixMilli(listing.StartedAt).UTC(),
			CompletedAt:     time.UnixMilli(listing.CompletedAt).UTC(),
			ResponsePreview: previewString(listing.RawText, 2000),
		},
		DiscoveredURLs: discovered,
	}, nil
}

// seenURLs returns the job URLs the store has already ingested for the
// site's root URL (narrowed by its URL pattern), so a re-fetched listing
// does not re-queue them (spec section 4.3). URLs still pending in the
// queue are not in this set, and SeenCache is not consulted.
func (w *GeneralWorker) seenURLs(ctx context.Context, site model.Site) (map[string]bool, error) {
	seen, err := w.Store.ListSeenJobUrlsForSite(ctx, site.RootURL, site.URLPattern)
	if err != nil {
		return nil, err
	}
	if seen == nil {
		seen = map[string]bool{}
	}
	return seen, nil
}

// markDiscoveredSeen records newly discovered URLs in the negative
// cache once they have been handed off for enqueue. Nothing in this
// worker reads the cache back; seenURLs always queries the store.
func (w *GeneralWorker) markDiscoveredSeen(ctx context.Context, urls []string) {
	if err := w.SeenCache.MarkAll(ctx, urls); err != nil {
		w.Logger.Debug("mark discovered urls seen failed", zap.Error(err))
	}
}

func previewString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
