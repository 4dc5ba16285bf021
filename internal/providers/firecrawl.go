package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobscraper/internal/errkind"
	"jobscraper/internal/model"
)

// WebhookRecorder is the subset of store.Store the batch-async adapter
// needs to stash a pending webhook-event placeholder for the job id the
// enqueue call returns.
type WebhookRecorder interface {
	InsertFirecrawlWebhookEvent(ctx context.Context, providerJobID string, kind model.WebhookEventKind, siteID *uuid.UUID, siteURL, pattern string) (uuid.UUID, error)
}

// FirecrawlConfig configures the batch-async adapter.
type FirecrawlConfig struct {
	APIKey     string
	Endpoint   string
	Fanout     int
	WebhookURL string
}

// FirecrawlAdapter enqueues a batch scrape with a webhook pointed at the
// system's ingress and returns immediately with a queued payload; actual
// results materialise later via the webhook reconciler.
type FirecrawlAdapter struct {
	cfg        FirecrawlConfig
	httpClient *http.Client
	auditor    *Auditor
	webhooks   WebhookRecorder
}

func NewFirecrawlAdapter(cfg FirecrawlConfig, auditor *Auditor, webhooks WebhookRecorder) *FirecrawlAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.firecrawl.dev/v2/batch/scrape"
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = 5
	}
	return &FirecrawlAdapter{cfg: cfg, httpClient: &http.Client{Timeout: 60 * time.Second}, auditor: auditor, webhooks: webhooks}
}

func (a *FirecrawlAdapter) Name() model.Provider { return model.ProviderFirecrawl }

func (a *FirecrawlAdapter) HasCredentials() bool { return a.cfg.APIKey != "" }

// buildProviderStatusURL computes the human-followable status link for
// a batch-async job id, matching build_provider_status_url's firecrawl
// branch.
func buildProviderStatusURL(jobID string) string {
	if jobID == "" {
		return ""
	}
	return fmt.Sprintf("https://api.firecrawl.dev/v2/batch/scrape/%s", jobID)
}

type firecrawlBatchRequest struct {
	URLs       []string          `json:"urls"`
	Webhook    *firecrawlWebhook `json:"webhook,omitempty"`
	Formats    []string          `json:"formats"`
}

type firecrawlWebhook struct {
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type firecrawlBatchResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ScrapeSite enqueues a batch scrape for site.RootURL and stores a
// pending webhook-event placeholder keyed by the returned job id.
func (a *FirecrawlAdapter) ScrapeSite(ctx context.Context, site model.Site, skipUrls map[string]bool) (ScrapePayload, error) {
	return a.enqueueBatch(ctx, []string{site.RootURL}, site.RootURL, &site.ID, "")
}

// FetchGreenhouseListing is not implemented by the batch-async adapter;
// greenhouse listings are always fetched via the streaming-cloud
// adapter's plain HTTPS GET.
func (a *FirecrawlAdapter) FetchGreenhouseListing(ctx context.Context, site model.Site) (GreenhouseListing, error) {
	return GreenhouseListing{}, errkind.Newf(errkind.Configuration, "firecrawl: does not support greenhouse listing fetch")
}

func (a *FirecrawlAdapter) ScrapeGreenhouseJobs(ctx context.Context, urls []string, sourceURL, idempotencyKey string) (ScrapePayload, error) {
	return a.enqueueBatch(ctx, urls, sourceURL, nil, idempotencyKey)
}

// BatchStatusResult is the reconciler-facing view of a getBatchStatus
// response.
type BatchStatusResult struct {
	StatusCode int
	RawBody    string
	Completed  bool
	Data       []map[string]any
}

// GetBatchStatus polls a batch job's status, the call the webhook
// reconciler makes to materialise results once a webhook is received.
func (a *FirecrawlAdapter) GetBatchStatus(ctx context.Context, jobID string) (BatchStatusResult, error) {
	if !a.HasCredentials() {
		return BatchStatusResult{}, errkind.Newf(errkind.Configuration, "firecrawl: no api key configured")
	}
	url := fmt.Sprintf("%s/%s", a.cfg.Endpoint, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return BatchStatusResult{}, errkind.New(errkind.Configuration, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	// The reconciler's sweep and callback paths both land here; a
	// transient 5xx or 429 is worth a couple of quick retries before
	// surfacing to the caller, rather than waiting for the next sweep
	// cycle.
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	var resp *http.Response
	err = backoff.Retry(func() error {
		var doErr error
		resp, doErr = a.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("firecrawl: batch status returned %d", resp.StatusCode)
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return BatchStatusResult{}, errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	rawBody := new(bytes.Buffer)
	if _, err := rawBody.ReadFrom(resp.Body); err != nil {
		return BatchStatusResult{}, errkind.New(errkind.Transient, err)
	}
	_ = json.Unmarshal(rawBody.Bytes(), &parsed)
	a.auditor.LogResponse(string(model.ProviderFirecrawl), "get_batch_status", rawBody.String(), zap.String("job_id", jobID))

	return BatchStatusResult{
		StatusCode: resp.StatusCode,
		RawBody:    rawBody.String(),
		Completed:  parsed.Status == "completed",
		Data:       parsed.Data,
	}, nil
}

func (a *FirecrawlAdapter) enqueueBatch(ctx context.Context, urls []string, sourceURL string, siteID *uuid.UUID, pattern string) (ScrapePayload, error) {
	if !a.HasCredentials() {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "firecrawl: no api key configured")
	}
	if a.cfg.WebhookURL == "" {
		return ScrapePayload{}, errkind.Newf(errkind.Configuration, "firecrawl: no webhook ingress url configured")
	}

	metadata := sanitizeWebhookMetadata(map[string]any{"source_url": sourceURL, "idempotency_key": pattern})
	reqBody := firecrawlBatchRequest{
		URLs:    urls,
		Webhook: &firecrawlWebhook{URL: a.cfg.WebhookURL, Metadata: metadata},
		Formats: []string{"markdown"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Configuration, err)
	}

	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
	a.auditor.LogDispatch(string(model.ProviderFirecrawl), sourceURL,
		zap.String("request_snapshot", BuildRequestSnapshot(http.MethodPost, a.cfg.Endpoint, reqBody, headers)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Configuration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ScrapePayload{}, errkind.New(errkind.Transient, err)
	}
	defer resp.Body.Close()

	var parsed firecrawlBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ScrapePayload{}, errkind.New(errkind.ParseFailure, err)
	}
	a.auditor.LogResponse(string(model.ProviderFirecrawl), "enqueue_batch", parsed.ID, zap.Bool("success", parsed.Success))

	if resp.StatusCode == http.StatusPaymentRequired {
		return ScrapePayload{}, errkind.Newf(errkind.PaymentRequired, "firecrawl: payment required")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ScrapePayload{}, errkind.Newf(errkind.Transient, "firecrawl: rate limited")
	}
	if resp.StatusCode >= 500 {
		return ScrapePayload{}, errkind.Newf(errkind.Transient, "firecrawl: batch enqueue returned %d", resp.StatusCode)
	}
	if !parsed.Success || parsed.ID == "" {
		return ScrapePayload{}, errkind.Newf(errkind.ParseFailure, "firecrawl: batch enqueue failed: %s", parsed.Error)
	}

	if a.webhooks != nil {
		if _, err := a.webhooks.InsertFirecrawlWebhookEvent(ctx, parsed.ID, model.WebhookKindBatchStarted, siteID, sourceURL, pattern); err != nil {
			return ScrapePayload{}, err
		}
	}

	return ScrapePayload{
		ProviderID: parsed.ID,
		StatusURL:  buildProviderStatusURL(parsed.ID),
		Queued:     true,
		Result: model.ScrapeResult{
			Scrape: model.Scrape{
				SourceURL: sourceURL,
				Provider:  model.ProviderFirecrawl,
				StartedAt: time.Now().UTC(),
			},
		},
	}, nil
}

// sanitizeWebhookMetadata strips nulls (the upstream API rejects them)
// and JSON-stringifies non-string values, matching the original
// activities' webhook metadata preparation.
func sanitizeWebhookMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			out[k] = val
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(encoded)
		}
	}
	return out
}

// WebhookAge classifies a webhook event's age against the expiration
// thresholds spec section 4.4 defines: anything older than 24h is
// cancelled-expired outright; 23h-24h is cancelled-expired only on a
// 404/"no such method" status response.
type WebhookAge struct {
	Expired       bool
	NeedsStatusCheck bool
}

func ClassifyWebhookAge(receivedAt time.Time, now time.Time) WebhookAge {
	age := now.Sub(receivedAt)
	if age >= 24*time.Hour {
		return WebhookAge{Expired: true}
	}
	if age >= 23*time.Hour {
		return WebhookAge{NeedsStatusCheck: true}
	}
	return WebhookAge{}
}

// IsTerminalNotFound reports whether a getBatchStatus response indicates
// the job no longer exists upstream (404 or "no such method"), the
// trigger for treating an aging pending webhook as cancelled-expired.
func IsTerminalNotFound(statusCode int, body string) bool {
	if statusCode == http.StatusNotFound {
		return true
	}
	return bytes.Contains([]byte(body), []byte("no such method"))
}
