package metrics

import (
	"strings"
	"testing"
)

func TestRecordWebhookRequestAndExport(t *testing.T) {
	RecordWebhookRequest("/api/firecrawl/webhook", 200, 42)

	out := Export()
	if !strings.Contains(out, `jobscraper_webhook_requests_total{path="/api/firecrawl/webhook",status="200"}`) {
		t.Fatalf("expected webhook request metric in export, got:\n%s", out)
	}
}

func TestRecordSiteLifecycleMetrics(t *testing.T) {
	RecordSiteLeased("greenhouse")
	RecordSiteCompleted()
	RecordSiteFailed()

	out := Export()
	if !strings.Contains(out, `jobscraper_sites_leased_total{site_type="greenhouse"}`) {
		t.Fatalf("expected sites_leased_total for greenhouse, got:\n%s", out)
	}
	if !strings.Contains(out, "jobscraper_sites_completed_total") {
		t.Fatalf("expected sites_completed_total in export, got:\n%s", out)
	}
	if !strings.Contains(out, "jobscraper_sites_failed_total") {
		t.Fatalf("expected sites_failed_total in export, got:\n%s", out)
	}
}

func TestRecordQueueMetrics(t *testing.T) {
	RecordQueueEnqueued("spidercloud", 5)
	RecordQueueLeased("spidercloud", 3)
	RecordQueueCompleted("spidercloud", "completed", 2)
	RecordQueueCompleted("spidercloud", "failed", 1)

	out := Export()
	if !strings.Contains(out, `jobscraper_queue_enqueued_total{provider="spidercloud"}`) {
		t.Fatalf("expected queue_enqueued_total for spidercloud, got:\n%s", out)
	}
	if !strings.Contains(out, `jobscraper_queue_completed_total{provider="spidercloud",status="completed"}`) {
		t.Fatalf("expected queue_completed_total completed for spidercloud, got:\n%s", out)
	}
	if !strings.Contains(out, `jobscraper_queue_completed_total{provider="spidercloud",status="failed"}`) {
		t.Fatalf("expected queue_completed_total failed for spidercloud, got:\n%s", out)
	}
}

func TestRecordIngestionAndIgnoredMetrics(t *testing.T) {
	RecordJobsIngested(4)
	RecordIgnoredJob("missing_keyword")
	RecordIgnoredJob("missing_keyword")

	out := Export()
	if !strings.Contains(out, "jobscraper_jobs_ingested_total") {
		t.Fatalf("expected jobs_ingested_total in export, got:\n%s", out)
	}
	if !strings.Contains(out, `jobscraper_ignored_jobs_total{reason="missing_keyword"} 2`) {
		t.Fatalf("expected ignored_jobs_total missing_keyword count 2, got:\n%s", out)
	}
}

func TestRecordWebhookAndHeuristicMetrics(t *testing.T) {
	RecordWebhookEvent("processed")
	RecordHeuristicAttempt("location")
	RecordCaptchaRetry("spidercloud")

	out := Export()
	if !strings.Contains(out, `jobscraper_webhook_events_total{status="processed"}`) {
		t.Fatalf("expected webhook_events_total processed, got:\n%s", out)
	}
	if !strings.Contains(out, "jobscraper_heuristic_attempts_total") {
		t.Fatalf("expected heuristic_attempts_total in export, got:\n%s", out)
	}
	if !strings.Contains(out, `jobscraper_heuristic_resolved_total{field="location"}`) {
		t.Fatalf("expected heuristic_resolved_total for location, got:\n%s", out)
	}
	if !strings.Contains(out, `jobscraper_captcha_retries_total{provider="spidercloud"}`) {
		t.Fatalf("expected captcha_retries_total for spidercloud, got:\n%s", out)
	}
}
