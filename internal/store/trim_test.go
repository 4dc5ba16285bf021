package store

import (
	"strings"
	"testing"

	"jobscraper/internal/model"
)

func TestUpsertParamsForJob_SourceURLIsScrapeURL(t *testing.T) {
	j := model.Job{
		URL:      "https://boards.greenhouse.io/acme/jobs/123",
		ApplyURL: "https://acme.com/apply/123",
		Title:    "Engineer",
	}

	p := upsertParamsForJob(j, "https://acme.com/careers")

	if p.SourceURL != "https://acme.com/careers" {
		t.Fatalf("SourceURL = %q, want scrape source url", p.SourceURL)
	}
	if p.SourceURL == j.URL || p.SourceURL == j.ApplyURL {
		t.Fatalf("SourceURL must never fall back to the job's own url/apply_url, got %q", p.SourceURL)
	}
	if p.URL != j.URL || p.ApplyURL != j.ApplyURL {
		t.Fatalf("url/apply_url should pass through unchanged")
	}
}

func TestTrimCandidates_CapsRowsAndTruncatesDescriptions(t *testing.T) {
	candidates := make([]model.Candidate, 5)
	for i := range candidates {
		j := model.Job{Description: strings.Repeat("x", 20)}
		candidates[i] = model.Candidate{Job: &j}
	}

	out := trimCandidates(candidates, 3, 10)

	if len(out) != 3 {
		t.Fatalf("expected 3 rows after capping at maxRows=3, got %d", len(out))
	}
	for _, c := range out {
		if len(c.Job.Description) != 10 {
			t.Fatalf("expected description truncated to 10 chars, got %d", len(c.Job.Description))
		}
	}
}

func TestTrimCandidates_ZeroMaxRowsMeansUnbounded(t *testing.T) {
	candidates := []model.Candidate{{Job: &model.Job{}}, {Job: &model.Job{}}}
	out := trimCandidates(candidates, 0, 100)
	if len(out) != 2 {
		t.Fatalf("expected no row cap when maxRows=0, got %d", len(out))
	}
}

func TestSplitCostAcrossRows_SplitsEvenlyAmongZeroCostRows(t *testing.T) {
	scrape := &model.Scrape{CostMicrocents: 300}
	candidates := []model.Candidate{
		{Job: &model.Job{}},
		{Job: &model.Job{}},
		{Job: &model.Job{ScrapedCostMicrocents: 50}},
	}

	splitCostAcrossRows(scrape, candidates)

	if candidates[0].Job.ScrapedCostMicrocents != 150 || candidates[1].Job.ScrapedCostMicrocents != 150 {
		t.Fatalf("expected the 300 split evenly across the 2 zero-cost rows, got %d and %d",
			candidates[0].Job.ScrapedCostMicrocents, candidates[1].Job.ScrapedCostMicrocents)
	}
	if candidates[2].Job.ScrapedCostMicrocents != 50 {
		t.Fatalf("row with an existing per-row cost must not be overwritten, got %d", candidates[2].Job.ScrapedCostMicrocents)
	}
}

func TestSplitCostAcrossRows_NoOpWhenCostIsZero(t *testing.T) {
	scrape := &model.Scrape{CostMicrocents: 0}
	candidates := []model.Candidate{{Job: &model.Job{}}}
	splitCostAcrossRows(scrape, candidates)
	if candidates[0].Job.ScrapedCostMicrocents != 0 {
		t.Fatalf("expected no cost assigned when scrape cost is zero")
	}
}

func TestPreviewString_TruncatesOnlyWhenOverLimit(t *testing.T) {
	if got := previewString("short", 10); got != "short" {
		t.Fatalf("previewString should not alter a string under the limit, got %q", got)
	}
	if got := previewString("0123456789abcde", 5); got != "01234" {
		t.Fatalf("previewString(..., 5) = %q, want %q", got, "01234")
	}
}
