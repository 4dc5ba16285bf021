// Package metrics implements the same simple in-memory Prometheus-style
// counters the teacher's HTTP metrics use, rescoped to the
// scrape-and-ingest pipeline's own events: sites leased/completed/
// failed, queue lease/complete counts, scrapes persisted, jobs ingested,
// ignored jobs by reason, webhook events by status, and heuristic
// enrichment attempts.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	mu sync.RWMutex

	webhookRequestsTotal = make(map[webhookReqKey]int64)
	webhookLatencyMsSum  = make(map[string]int64)
	webhookLatencyCount  = make(map[string]int64)

	sitesLeasedTotal    = make(map[string]int64) // siteType
	sitesCompletedTotal int64
	sitesFailedTotal    int64

	queueEnqueuedTotal  = make(map[string]int64) // provider
	queueLeasedTotal    = make(map[string]int64) // provider
	queueCompletedTotal = make(map[queueOutcomeKey]int64)

	scrapesPersistedTotal = make(map[string]int64) // provider
	scrapesCostMicrocents = make(map[string]int64) // provider

	jobsIngestedTotal   int64
	ignoredJobsByReason = make(map[string]int64)

	webhookEventsByStatus = make(map[string]int64)

	heuristicAttemptsTotal   int64
	heuristicResolvedByField = make(map[string]int64)

	captchaRetriesTotal = make(map[string]int64) // provider
)

type webhookReqKey struct {
	Path   string
	Status int
}

type queueOutcomeKey struct {
	Provider string
	Status   string
}

func RecordWebhookRequest(path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()
	webhookRequestsTotal[webhookReqKey{Path: path, Status: status}]++
	webhookLatencyMsSum[path] += latencyMs
	webhookLatencyCount[path]++
}

func RecordSiteLeased(siteType string) {
	mu.Lock()
	defer mu.Unlock()
	sitesLeasedTotal[siteType]++
}

func RecordSiteCompleted() {
	mu.Lock()
	defer mu.Unlock()
	sitesCompletedTotal++
}

func RecordSiteFailed() {
	mu.Lock()
	defer mu.Unlock()
	sitesFailedTotal++
}

func RecordQueueEnqueued(provider string, count int) {
	if count <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	queueEnqueuedTotal[provider] += int64(count)
}

func RecordQueueLeased(provider string, count int) {
	if count <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	queueLeasedTotal[provider] += int64(count)
}

func RecordQueueCompleted(provider, status string, count int) {
	if count <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	queueCompletedTotal[queueOutcomeKey{Provider: provider, Status: status}] += int64(count)
}

func RecordScrapePersisted(provider string, costMicrocents int64) {
	mu.Lock()
	defer mu.Unlock()
	scrapesPersistedTotal[provider]++
	if costMicrocents > 0 {
		scrapesCostMicrocents[provider] += costMicrocents
	}
}

func RecordJobsIngested(count int) {
	if count <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	jobsIngestedTotal += int64(count)
}

func RecordIgnoredJob(reason string) {
	mu.Lock()
	defer mu.Unlock()
	ignoredJobsByReason[reason]++
}

func RecordWebhookEvent(status string) {
	mu.Lock()
	defer mu.Unlock()
	webhookEventsByStatus[status]++
}

func RecordHeuristicAttempt(resolvedField string) {
	mu.Lock()
	defer mu.Unlock()
	heuristicAttemptsTotal++
	if resolvedField != "" {
		heuristicResolvedByField[resolvedField]++
	}
}

func RecordCaptchaRetry(provider string) {
	mu.Lock()
	defer mu.Unlock()
	captchaRetriesTotal[provider]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP jobscraper_webhook_requests_total Total webhook ingress requests\n")
	b.WriteString("# TYPE jobscraper_webhook_requests_total counter\n")
	var webhookKeys []webhookReqKey
	for k := range webhookRequestsTotal {
		webhookKeys = append(webhookKeys, k)
	}
	sort.Slice(webhookKeys, func(i, j int) bool {
		if webhookKeys[i].Path != webhookKeys[j].Path {
			return webhookKeys[i].Path < webhookKeys[j].Path
		}
		return webhookKeys[i].Status < webhookKeys[j].Status
	})
	for _, k := range webhookKeys {
		fmt.Fprintf(&b, "jobscraper_webhook_requests_total{path=\"%s\",status=\"%d\"} %d\n",
			k.Path, k.Status, webhookRequestsTotal[k])
	}

	b.WriteString("# HELP jobscraper_sites_leased_total Sites leased by type\n")
	b.WriteString("# TYPE jobscraper_sites_leased_total counter\n")
	for _, k := range sortedKeys(sitesLeasedTotal) {
		fmt.Fprintf(&b, "jobscraper_sites_leased_total{site_type=\"%s\"} %d\n", k, sitesLeasedTotal[k])
	}

	fmt.Fprintf(&b, "# HELP jobscraper_sites_completed_total Sites completed successfully\n# TYPE jobscraper_sites_completed_total counter\njobscraper_sites_completed_total %d\n", sitesCompletedTotal)
	fmt.Fprintf(&b, "# HELP jobscraper_sites_failed_total Sites failed\n# TYPE jobscraper_sites_failed_total counter\njobscraper_sites_failed_total %d\n", sitesFailedTotal)

	b.WriteString("# HELP jobscraper_queue_enqueued_total URLs enqueued by provider\n")
	b.WriteString("# TYPE jobscraper_queue_enqueued_total counter\n")
	for _, k := range sortedKeys(queueEnqueuedTotal) {
		fmt.Fprintf(&b, "jobscraper_queue_enqueued_total{provider=\"%s\"} %d\n", k, queueEnqueuedTotal[k])
	}

	b.WriteString("# HELP jobscraper_queue_leased_total URLs leased by provider\n")
	b.WriteString("# TYPE jobscraper_queue_leased_total counter\n")
	for _, k := range sortedKeys(queueLeasedTotal) {
		fmt.Fprintf(&b, "jobscraper_queue_leased_total{provider=\"%s\"} %d\n", k, queueLeasedTotal[k])
	}

	b.WriteString("# HELP jobscraper_queue_completed_total URLs completed by provider and status\n")
	b.WriteString("# TYPE jobscraper_queue_completed_total counter\n")
	var outcomeKeys []queueOutcomeKey
	for k := range queueCompletedTotal {
		outcomeKeys = append(outcomeKeys, k)
	}
	sort.Slice(outcomeKeys, func(i, j int) bool {
		if outcomeKeys[i].Provider != outcomeKeys[j].Provider {
			return outcomeKeys[i].Provider < outcomeKeys[j].Provider
		}
		return outcomeKeys[i].Status < outcomeKeys[j].Status
	})
	for _, k := range outcomeKeys {
		fmt.Fprintf(&b, "jobscraper_queue_completed_total{provider=\"%s\",status=\"%s\"} %d\n",
			k.Provider, k.Status, queueCompletedTotal[k])
	}

	b.WriteString("# HELP jobscraper_scrapes_persisted_total Scrape records persisted by provider\n")
	b.WriteString("# TYPE jobscraper_scrapes_persisted_total counter\n")
	for _, k := range sortedKeys(scrapesPersistedTotal) {
		fmt.Fprintf(&b, "jobscraper_scrapes_persisted_total{provider=\"%s\"} %d\n", k, scrapesPersistedTotal[k])
	}

	b.WriteString("# HELP jobscraper_scrapes_cost_microcents_total Cumulative provider cost in microcents\n")
	b.WriteString("# TYPE jobscraper_scrapes_cost_microcents_total counter\n")
	for _, k := range sortedKeys(scrapesCostMicrocents) {
		fmt.Fprintf(&b, "jobscraper_scrapes_cost_microcents_total{provider=\"%s\"} %d\n", k, scrapesCostMicrocents[k])
	}

	fmt.Fprintf(&b, "# HELP jobscraper_jobs_ingested_total Jobs upserted by ingestion\n# TYPE jobscraper_jobs_ingested_total counter\njobscraper_jobs_ingested_total %d\n", jobsIngestedTotal)

	b.WriteString("# HELP jobscraper_ignored_jobs_total Candidates dropped by reason\n")
	b.WriteString("# TYPE jobscraper_ignored_jobs_total counter\n")
	for _, k := range sortedKeys(ignoredJobsByReason) {
		fmt.Fprintf(&b, "jobscraper_ignored_jobs_total{reason=\"%s\"} %d\n", k, ignoredJobsByReason[k])
	}

	b.WriteString("# HELP jobscraper_webhook_events_total Webhook events transitioned by terminal status\n")
	b.WriteString("# TYPE jobscraper_webhook_events_total counter\n")
	for _, k := range sortedKeys(webhookEventsByStatus) {
		fmt.Fprintf(&b, "jobscraper_webhook_events_total{status=\"%s\"} %d\n", k, webhookEventsByStatus[k])
	}

	fmt.Fprintf(&b, "# HELP jobscraper_heuristic_attempts_total Heuristic enrichment attempts\n# TYPE jobscraper_heuristic_attempts_total counter\njobscraper_heuristic_attempts_total %d\n", heuristicAttemptsTotal)

	b.WriteString("# HELP jobscraper_heuristic_resolved_total Fields resolved by the heuristic enricher\n")
	b.WriteString("# TYPE jobscraper_heuristic_resolved_total counter\n")
	for _, k := range sortedKeys(heuristicResolvedByField) {
		fmt.Fprintf(&b, "jobscraper_heuristic_resolved_total{field=\"%s\"} %d\n", k, heuristicResolvedByField[k])
	}

	b.WriteString("# HELP jobscraper_captcha_retries_total Captcha-triggered retries by provider\n")
	b.WriteString("# TYPE jobscraper_captcha_retries_total counter\n")
	for _, k := range sortedKeys(captchaRetriesTotal) {
		fmt.Fprintf(&b, "jobscraper_captcha_retries_total{provider=\"%s\"} %d\n", k, captchaRetriesTotal[k])
	}

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
