// Package providers implements the three interchangeable scrape-provider
// adapters (streaming-cloud, batch-async, template-crawl) behind a
// uniform contract, plus the dispatch/response audit logging and
// selection logic that picks among them (spec section 4.4).
package providers

import (
	"context"

	"jobscraper/internal/filterconfig"
	"jobscraper/internal/model"
)

// NormalizeSettings bundles the pure normalizer configuration every
// adapter consults when it turns a fetched fragment into job
// candidates: the resolved title/location filters and the
// known-remote-company set.
type NormalizeSettings struct {
	Filters         filterconfig.Settings
	RemoteCompanies map[string]bool
}

// ScrapePayload is the uniform, serialisable result every adapter
// returns for one scrapeSite call: a ScrapeResult ready for the storage
// adapter, plus the provider-assigned job id for async providers.
type ScrapePayload struct {
	Result     model.ScrapeResult
	ProviderID string
	StatusURL  string
	Queued     bool
}

// GreenhouseListing is the result of a Greenhouse-listing fetch: the raw
// board JSON, the job-detail URLs it contained, and the fetch window.
type GreenhouseListing struct {
	RawText     string
	JobURLs     []string
	StartedAt   int64
	CompletedAt int64
}

// Adapter is the uniform contract spec section 4.4 requires of every
// provider backend.
type Adapter interface {
	Name() model.Provider

	// HasCredentials reports whether this adapter's API key is
	// configured, used by provider selection to skip unconfigured
	// backends without a silent cross-provider fallback.
	HasCredentials() bool

	// ScrapeSite fetches site, optionally skipping skipUrls (already
	// seen/queued/existing), and returns a ready-to-persist payload.
	ScrapeSite(ctx context.Context, site model.Site, skipUrls map[string]bool) (ScrapePayload, error)

	// FetchGreenhouseListing performs the Greenhouse board-JSON listing
	// fetch this adapter's transport uses. Only spidercloud implements
	// this with a plain HTTPS GET; other adapters return an error.
	FetchGreenhouseListing(ctx context.Context, site model.Site) (GreenhouseListing, error)

	// ScrapeGreenhouseJobs fetches a batch of already-known Greenhouse
	// job-detail URLs and returns the resulting scrape payload.
	ScrapeGreenhouseJobs(ctx context.Context, urls []string, sourceURL, idempotencyKey string) (ScrapePayload, error)
}
