package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/errkind"
	"jobscraper/internal/handlers"
	"jobscraper/internal/model"
	"jobscraper/internal/normalize"
	"jobscraper/internal/scrapeutil"
)

// fetchfoxHardMaxVisits is the visit cap spec section 4.4 requires the
// adapter enforce regardless of configuration.
const fetchfoxHardMaxVisits = 20

// FetchFoxConfig configures the template-crawl adapter.
type FetchFoxConfig struct {
	APIKey   string
	Endpoint string
	MaxDepth int
	MaxVisits int
}

// FetchFoxAdapter submits a crawl request carrying a skip-set built from
// already-seen/queued/existing URLs, and can also run a single-URL
// synchronous scrape returning structured rows directly.
type FetchFoxAdapter struct {
	cfg        FetchFoxConfig
	httpClient *http.Client
	auditor    *Auditor
	handlers   *handlers.Registry
	norm       NormalizeSettings
}

func NewFetchFoxAdapter(cfg FetchFoxConfig, auditor *Auditor, registry *handlers.Registry, norm NormalizeSettings) *FetchFoxAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.fetchfox.ai/api/v2/crawl"
	}
	if cfg.MaxDepth <= 0 || cfg.MaxDepth > 5 {
		cfg.MaxDepth = 5
	}
	if cfg.MaxVisits <= 0 || cfg.MaxVisits > fetchfoxHardMaxVisits {
		cfg.MaxVisits = fetchfoxHardMaxVisits
	}
	return &FetchFoxAdapter{cfg: cfg, httpClient: &http.Client{Timeout: 120 * time.Second}, auditor: auditor, handlers: registry, norm: norm}
}

func (a *FetchFoxAdapter) Name() model.Provider { return model.ProviderFetchFox }

func (a *FetchFoxAdapter) HasCredentials() bool { return a.cfg.APIKey != "" }

type fetchfoxCrawlRequest struct {
	Pattern   string         `json:"pattern"`
	StartURLs []string       `json:"start_urls"`
	MaxDepth  int            `json:"max_depth"`
	MaxVisits int            `json:"max_visits"`
	Priority  fetchfoxPriority `json:"priority"`
}

type fetchfoxPriority struct {
	Skip []string `json:"skip"`
}

type fetchfoxCrawlResponse struct {
	Rows []struct {
		URL string `json:"url"`
	} `json:"rows"`
}

// ScrapeSite submits a template crawl for site.RootURL, skipping any URL
// already seen, queued, or ingested (the union the caller passes in
// skipUrls).
func (a *FetchFoxAdapter) ScrapeSite(ctx context.Context, site model.Site, skipUrls map[string]bool) (ScrapePayload, error) {
	if !a.HasCredentials() {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "fetchfox: no api key configured")
	}
	skip := make([]string, 0, len(skipUrls))
	for u := range skipUrls {
		skip = append(skip, u)
	}
	maxVisits := a.cfg.MaxVisits
	if maxVisits > fetchfoxHardMaxVisits {
		maxVisits = fetchfoxHardMaxVisits
	}

	reqBody := fetchfoxCrawlRequest{
		Pattern:   site.URLPattern,
		StartURLs: []string{site.RootURL},
		MaxDepth:  a.cfg.MaxDepth,
		MaxVisits: maxVisits,
		Priority:  fetchfoxPriority{Skip: skip},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Configuration, err)
	}

	headers := map[string]string{"x-api-key": a.cfg.APIKey}
	a.auditor.LogDispatch(string(model.ProviderFetchFox), site.RootURL,
		zap.String("request_snapshot", BuildRequestSnapshot(http.MethodPost, a.cfg.Endpoint, reqBody, headers)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Configuration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return ScrapePayload{}, errkind.Newf(errkind.PaymentRequired, "fetchfox: payment required")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ScrapePayload{}, errkind.Newf(errkind.Transient, "fetchfox: rate limited")
	}
	if resp.StatusCode >= 500 {
		return ScrapePayload{}, errkind.Newf(errkind.Transient, "fetchfox: crawl returned %d", resp.StatusCode)
	}

	var parsed fetchfoxCrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ScrapePayload{}, errkind.New(errkind.ParseFailure, err)
	}
	a.auditor.LogResponse(string(model.ProviderFetchFox), "crawl", "", zap.Int("rows", len(parsed.Rows)))

	discovered := make([]string, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		if row.URL == "" || skipUrls[row.URL] {
			continue
		}
		discovered = append(discovered, row.URL)
	}
	discovered = scrapeutil.FilterLinks(discovered, site.RootURL, true, 0)

	scrape := model.Scrape{
		SourceURL:   site.RootURL,
		Provider:    model.ProviderFetchFox,
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
	return ScrapePayload{Result: model.ScrapeResult{Scrape: scrape, DiscoveredURLs: discovered}}, nil
}

// FetchGreenhouseListing is not implemented by the template-crawl
// adapter; greenhouse listings are always fetched via the
// streaming-cloud adapter's plain HTTPS GET.
func (a *FetchFoxAdapter) FetchGreenhouseListing(ctx context.Context, site model.Site) (GreenhouseListing, error) {
	return GreenhouseListing{}, errkind.Newf(errkind.Configuration, "fetchfox: does not support greenhouse listing fetch")
}

// ScrapeGreenhouseJobs runs the adapter's synchronous single-URL scrape
// mode once per url, returning structured rows directly rather than
// queuing an async crawl.
func (a *FetchFoxAdapter) ScrapeGreenhouseJobs(ctx context.Context, urls []string, sourceURL, idempotencyKey string) (ScrapePayload, error) {
	if !a.HasCredentials() {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "fetchfox: no api key configured")
	}
	ghHandler := a.handlers.ForType(model.SiteTypeGreenhouse)
	deps := normalize.Deps{Filters: a.norm.Filters, RemoteCompanies: a.norm.RemoteCompanies, Handler: ghHandler}

	var scraped int
	var candidates []model.Candidate
	for _, u := range urls {
		markdown, err := a.scrapeSingleURL(ctx, u)
		if err != nil {
			continue
		}
		scraped++
		candidates = append(candidates, normalize.Normalize(normalize.Fragment{
			URL:         u,
			Provider:    model.ProviderFetchFox,
			Markdown:    markdown,
			FetchedAtMs: time.Now().UnixMilli(),
		}, deps))
	}
	scrape := model.Scrape{
		SourceURL:       sourceURL,
		Provider:        model.ProviderFetchFox,
		StartedAt:       time.Now().UTC(),
		CompletedAt:     time.Now().UTC(),
		NormalizedCount: scraped,
	}
	return ScrapePayload{Result: model.ScrapeResult{Scrape: scrape, Candidates: candidates}}, nil
}

// scrapeSingleURL runs the adapter's synchronous single-URL scrape mode
// and returns the page's markdown representation for normalization.
func (a *FetchFoxAdapter) scrapeSingleURL(ctx context.Context, u string) (string, error) {
	payload := map[string]any{"url": u, "mode": "sync", "format": "markdown"}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errkind.New(errkind.Configuration, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errkind.New(errkind.Configuration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errkind.Newf(errkind.Transient, "fetchfox: sync scrape of %s rate limited", u)
	}
	if resp.StatusCode >= 500 {
		return "", errkind.Newf(errkind.Transient, "fetchfox: sync scrape of %s returned %d", u, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errkind.New(errkind.Transient, err)
	}
	var parsed struct {
		Markdown string `json:"markdown"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw), nil
	}
	if parsed.Markdown != "" {
		return parsed.Markdown, nil
	}
	return parsed.Content, nil
}
