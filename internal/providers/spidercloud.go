package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/errkind"
	"jobscraper/internal/handlers"
	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
	"jobscraper/internal/normalize"
)

// captchaMarkers is the fixed, case-insensitive phrase list spidercloud
// scans aggregated response text for.
var captchaMarkers = []string{
	"vercel security checkpoint",
	"checking your browser",
	"are you human",
	"captcha",
	"security check",
	"robot check",
	"access denied",
}

// proxyRotation is the ordered proxy sequence tried on captcha retry.
var proxyRotation = []string{"residential", "isp"}

var greenhouseJobURLPattern = regexp.MustCompile(`https?://[^\s"']*greenhouse\.io[^\s"']*jobs[^\s"']*`)

// SpiderCloudConfig configures the streaming-cloud adapter.
type SpiderCloudConfig struct {
	APIKey             string
	Endpoint           string
	HTTPTimeout        time.Duration
	GreenhouseTimeout  time.Duration
	CaptchaRetryLimit  int
}

// SpiderCloudAdapter streams scrape events from the spidercloud API,
// one JSONL line per event, accumulating (markdown|raw_html, credits,
// cost) tuples, and retries captcha-blocked fetches with a rotating
// proxy class.
type SpiderCloudAdapter struct {
	cfg        SpiderCloudConfig
	httpClient *http.Client
	auditor    *Auditor
	handlers   *handlers.Registry
	norm       NormalizeSettings
}

func NewSpiderCloudAdapter(cfg SpiderCloudConfig, auditor *Auditor, registry *handlers.Registry, norm NormalizeSettings) *SpiderCloudAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.spider.cloud/crawl"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 900 * time.Second
	}
	if cfg.CaptchaRetryLimit <= 0 {
		cfg.CaptchaRetryLimit = 2
	}
	return &SpiderCloudAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		auditor:    auditor,
		handlers:   registry,
		norm:       norm,
	}
}

func (a *SpiderCloudAdapter) Name() model.Provider { return model.ProviderSpiderCloud }

func (a *SpiderCloudAdapter) HasCredentials() bool { return a.cfg.APIKey != "" }

type spiderStreamEvent struct {
	Markdown       string  `json:"markdown"`
	RawHTML        string  `json:"raw_html"`
	Content        string  `json:"content"`
	CreditsUsed    float64 `json:"credits_used"`
	CostUSD        float64 `json:"cost_usd"`
	URL            string  `json:"url"`
	Error          string  `json:"error"`
}

type spiderScrapeAccumulator struct {
	markdown    strings.Builder
	rawHTML     strings.Builder
	creditsUsed float64
	costUSD     float64
	lastURL     string
}

// ScrapeSite streams a crawl for site.RootURL and normalizes accumulated
// events into a ScrapePayload. Greenhouse-type sites are fetched through
// FetchGreenhouseListing instead (provider selection routes them there).
func (a *SpiderCloudAdapter) ScrapeSite(ctx context.Context, site model.Site, skipUrls map[string]bool) (ScrapePayload, error) {
	if !a.HasCredentials() {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "spidercloud: no api key configured")
	}
	h := a.handlers.Resolve(site.Type, site.RootURL)
	isListing := h.IsListingURL(site.RootURL)
	hints := h.BuildFetchHints(isListing)

	acc, err := a.streamWithCaptchaRetry(ctx, site.RootURL, hints, site.Type == model.SiteTypeGreenhouse)
	if err != nil {
		return ScrapePayload{}, err
	}

	startedAt := time.Now().UTC()
	body := acc.markdown.String()
	if body == "" {
		body = acc.rawHTML.String()
	}
	jobURLs := h.FilterJobURLs(h.ExtractJobURLs([]byte(body), site.RootURL))
	discovered := make([]string, 0, len(jobURLs))
	for _, u := range jobURLs {
		if skipUrls[u] {
			continue
		}
		discovered = append(discovered, u)
	}
	pagination := h.ExtractPaginationURLs([]byte(body), site.RootURL)
	for _, u := range pagination {
		if skipUrls[u] {
			continue
		}
		discovered = append(discovered, u)
	}

	scrape := model.Scrape{
		SourceURL:       site.RootURL,
		Provider:        model.ProviderSpiderCloud,
		StartedAt:       startedAt,
		CompletedAt:     time.Now().UTC(),
		ResponsePreview: previewString(body, 8000),
		CostMicrocents:  int64(acc.costUSD * 1_000_000),
	}
	return ScrapePayload{Result: model.ScrapeResult{Scrape: scrape, DiscoveredURLs: discovered}}, nil
}

// FetchGreenhouseListing performs a plain HTTPS GET against the
// Greenhouse board JSON endpoint, falling back to a regex scan over the
// raw body when JSON parsing fails.
func (a *SpiderCloudAdapter) FetchGreenhouseListing(ctx context.Context, site model.Site) (GreenhouseListing, error) {
	h := a.handlers.ForType(model.SiteTypeGreenhouse)
	listingURL := h.BuildListingAPIURL(site)
	if listingURL == "" {
		return GreenhouseListing{}, errkind.Newf(errkind.Configuration, "spidercloud: cannot build greenhouse listing url for %s", site.RootURL)
	}

	timeout := a.cfg.GreenhouseTimeout
	if timeout <= 0 {
		timeout = 900 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now().UTC()
	a.auditor.LogDispatch(string(model.ProviderSpiderCloud), listingURL, zap.String("action", "fetch_greenhouse_listing"))

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, listingURL, nil)
	if err != nil {
		return GreenhouseListing{}, errkind.New(errkind.Configuration, err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return GreenhouseListing{}, errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return GreenhouseListing{}, errkind.New(errkind.Transient, err)
	}
	if resp.StatusCode >= 500 {
		return GreenhouseListing{}, errkind.Newf(errkind.Transient, "spidercloud: greenhouse listing returned %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return GreenhouseListing{}, errkind.Newf(errkind.PaymentRequired, "spidercloud: greenhouse listing payment required")
	}

	jobURLs := h.ExtractJobURLs(raw, listingURL)
	if len(jobURLs) == 0 {
		jobURLs = dedupeStrings(greenhouseJobURLPattern.FindAllString(string(raw), -1))
	}
	completed := time.Now().UTC()
	a.auditor.LogResponse(string(model.ProviderSpiderCloud), "fetch_greenhouse_listing", string(raw), zap.Int("job_urls", len(jobURLs)))
	return GreenhouseListing{
		RawText:     string(raw),
		JobURLs:     jobURLs,
		StartedAt:   started.UnixMilli(),
		CompletedAt: completed.UnixMilli(),
	}, nil
}

// ScrapeGreenhouseJobs forces raw_html/chrome/preserve_host=false for
// Greenhouse API URLs per the provider contract and streams each URL.
func (a *SpiderCloudAdapter) ScrapeGreenhouseJobs(ctx context.Context, urls []string, sourceURL, idempotencyKey string) (ScrapePayload, error) {
	if !a.HasCredentials() {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "spidercloud: no api key configured")
	}
	hints := handlers.FetchHints{
		ReturnFormat:    []handlers.FetchFormat{handlers.FormatRawHTML},
		RequestProfile:  handlers.ProfileChrome,
		FollowRedirects: true,
		PreserveHost:    false,
	}
	ghHandler := a.handlers.ForType(model.SiteTypeGreenhouse)
	deps := normalize.Deps{Filters: a.norm.Filters, RemoteCompanies: a.norm.RemoteCompanies, Handler: ghHandler}

	startedAt := time.Now().UTC()
	var scraped int
	var costUSD float64
	var candidates []model.Candidate
	for _, u := range urls {
		acc, err := a.streamWithCaptchaRetry(ctx, u, hints, true)
		if err != nil {
			continue
		}
		scraped++
		costUSD += acc.costUSD

		frag := normalize.Fragment{
			URL:         u,
			Provider:    model.ProviderSpiderCloud,
			JSONBody:    []byte(acc.rawHTML.String()),
			FetchedAtMs: time.Now().UnixMilli(),
		}
		candidates = append(candidates, normalize.Normalize(frag, deps))
	}
	scrape := model.Scrape{
		SourceURL:       sourceURL,
		Provider:        model.ProviderSpiderCloud,
		StartedAt:       startedAt,
		CompletedAt:     time.Now().UTC(),
		NormalizedCount: scraped,
		CostMicrocents:  int64(costUSD * 1_000_000),
	}
	return ScrapePayload{Result: model.ScrapeResult{Scrape: scrape, Candidates: candidates}}, nil
}

// streamWithCaptchaRetry opens the streaming request and, if the
// aggregated text matches a captcha marker, retries up to
// cfg.CaptchaRetryLimit times rotating through proxyRotation.
func (a *SpiderCloudAdapter) streamWithCaptchaRetry(ctx context.Context, targetURL string, hints handlers.FetchHints, isGreenhouseAPI bool) (*spiderScrapeAccumulator, error) {
	var lastErr error
	for attempt := 0; attempt <= a.cfg.CaptchaRetryLimit; attempt++ {
		var proxy string
		if attempt > 0 {
			proxy = proxyRotation[(attempt-1)%len(proxyRotation)]
		}
		acc, err := a.stream(ctx, targetURL, hints, isGreenhouseAPI, proxy)
		if err != nil {
			lastErr = err
			continue
		}
		if hasCaptchaMarker(acc.markdown.String()) || hasCaptchaMarker(acc.rawHTML.String()) {
			lastErr = errkind.Newf(errkind.Captcha, "spidercloud: captcha detected for %s", targetURL)
			metrics.RecordCaptchaRetry(string(model.ProviderSpiderCloud))
			continue
		}
		return acc, nil
	}
	if lastErr == nil {
		lastErr = errkind.Newf(errkind.Transient, "spidercloud: exhausted retries for %s", targetURL)
	}
	return nil, lastErr
}

func (a *SpiderCloudAdapter) stream(ctx context.Context, targetURL string, hints handlers.FetchHints, isGreenhouseAPI bool, proxy string) (*spiderScrapeAccumulator, error) {
	returnFormat := hints.ReturnFormat
	requestProfile := hints.RequestProfile
	preserveHost := hints.PreserveHost
	if isGreenhouseAPI {
		returnFormat = []handlers.FetchFormat{handlers.FormatRawHTML}
		requestProfile = handlers.ProfileChrome
		preserveHost = false
	}

	payload := map[string]any{
		"url":              targetURL,
		"return_format":    returnFormat,
		"request":          requestProfile,
		"follow_redirects": hints.FollowRedirects,
		"preserve_host":    preserveHost,
	}
	if proxy != "" {
		payload["proxy"] = proxy
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errkind.New(errkind.Configuration, err)
	}

	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
	a.auditor.LogDispatch(string(model.ProviderSpiderCloud), targetURL,
		zap.String("request_snapshot", BuildRequestSnapshot(http.MethodPost, a.cfg.Endpoint, payload, headers)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errkind.New(errkind.Configuration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, errkind.Newf(errkind.PaymentRequired, "spidercloud: payment required for %s", targetURL)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errkind.Newf(errkind.Transient, "spidercloud: rate limited for %s", targetURL)
	}
	if resp.StatusCode >= 500 {
		return nil, errkind.Newf(errkind.Transient, "spidercloud: %s returned %d", targetURL, resp.StatusCode)
	}

	acc := &spiderScrapeAccumulator{lastURL: targetURL}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev spiderStreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.Markdown != "" {
			acc.markdown.WriteString(ev.Markdown)
		}
		if ev.RawHTML != "" {
			acc.rawHTML.WriteString(ev.RawHTML)
		} else if ev.Content != "" {
			acc.rawHTML.WriteString(ev.Content)
		}
		acc.creditsUsed += ev.CreditsUsed
		acc.costUSD += ev.CostUSD
	}
	if err := scanner.Err(); err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	a.auditor.LogResponse(string(model.ProviderSpiderCloud), "stream", previewString(acc.markdown.String()+acc.rawHTML.String(), 2000),
		zap.Float64("cost_usd", acc.costUSD))
	return acc, nil
}

func hasCaptchaMarker(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
