package normalize

import (
	"testing"

	"jobscraper/internal/config"
	"jobscraper/internal/filterconfig"
	"jobscraper/internal/handlers"
	"jobscraper/internal/model"
)

func testDeps() Deps {
	return Deps{
		Filters: filterconfig.Resolve(config.FiltersConfig{}),
		Handler: handlers.NewRegistry().ForType(model.SiteTypeGreenhouse),
	}
}

func TestNormalizeGreenhouseDetailWithCompensationRange(t *testing.T) {
	body := []byte(`{
		"title": "Senior Software Engineer",
		"absolute_url": "https://boards.greenhouse.io/acme/jobs/555",
		"company_name": "Acme",
		"content": "<p>Build things.</p><p>Location: San Francisco, CA</p>",
		"location": {"name": "San Francisco, CA"}
	}`)
	frag := Fragment{
		URL:      "https://boards-api.greenhouse.io/v1/boards/acme/jobs/555",
		Provider: model.ProviderSpiderCloud,
		JSONBody: body,
		JSONLD: map[string]any{
			"baseSalary": map[string]any{
				"currency": "USD",
				"value": map[string]any{
					"minValue": float64(140400),
					"maxValue": float64(372300),
				},
			},
		},
		FetchedAtMs: 1000,
	}

	candidate := Normalize(frag, testDeps())
	if candidate.Job == nil {
		t.Fatalf("expected a job row, got ignored: %+v", candidate.Ignored)
	}
	job := candidate.Job
	if job.TotalCompensation != 256350 {
		t.Errorf("totalCompensation = %d, want 256350", job.TotalCompensation)
	}
	if job.CompensationUnknown {
		t.Errorf("compensationUnknown = true, want false")
	}
	if job.CurrencyCode != "USD" {
		t.Errorf("currencyCode = %q, want USD", job.CurrencyCode)
	}
	if job.ApplyURL != frag.URL {
		t.Errorf("applyURL = %q, want the boards-api url %q", job.ApplyURL, frag.URL)
	}
	if job.URL != "https://boards.greenhouse.io/acme/jobs/555" {
		t.Errorf("url = %q, want the marketing url", job.URL)
	}
}

func TestNormalizeDropsListingPage(t *testing.T) {
	frag := Fragment{
		URL:         "https://careers.confluent.io/jobs/united_states-engineering",
		Provider:    model.ProviderFetchFox,
		Markdown:    "# Open Positions\n\nSelect Country / United States",
		FetchedAtMs: 2000,
	}

	candidate := Normalize(frag, testDeps())
	if candidate.Job != nil {
		t.Fatalf("expected listing page to be ignored, got job: %+v", candidate.Job)
	}
	if candidate.Ignored == nil || candidate.Ignored.Reason != model.IgnoreListingPage {
		t.Fatalf("expected reason listing_page, got %+v", candidate.Ignored)
	}
}

func TestNormalizeDropsMissingRequiredKeyword(t *testing.T) {
	frag := Fragment{
		URL:         "https://careers.example.com/jobs/office-manager",
		Provider:    model.ProviderFetchFox,
		Markdown:    "# Office Manager\n\nLocation: Austin, TX\n\nManage the front desk.",
		FetchedAtMs: 3000,
	}

	candidate := Normalize(frag, testDeps())
	if candidate.Job != nil {
		t.Fatalf("expected missing-keyword job to be ignored, got job: %+v", candidate.Job)
	}
	if candidate.Ignored == nil || candidate.Ignored.Reason != model.IgnoreMissingKeyword {
		t.Fatalf("expected reason missing_required_keyword, got %+v", candidate.Ignored)
	}
}

func TestStripNavChromeDropsLeadingMenu(t *testing.T) {
	body := "Home\nAbout\nCareers\n\n# Staff Software Engineer\n\nLocation: Remote"
	stripped := stripNavChrome(body)
	if stripped == body {
		t.Fatalf("expected nav chrome to be stripped")
	}
	if extractTitleHeading(stripped) != "Staff Software Engineer" {
		t.Errorf("title heading after strip = %q", extractTitleHeading(stripped))
	}
}

func TestParseCompensationUSDRange(t *testing.T) {
	amount, currency, unknown, _, pattern := ParseCompensation("The salary range is $140,400 - $372,300 per year.")
	if amount != 256350 {
		t.Errorf("amount = %d, want 256350", amount)
	}
	if currency != "USD" || unknown {
		t.Errorf("currency=%q unknown=%v", currency, unknown)
	}
	if pattern != "usd_range" {
		t.Errorf("pattern = %q", pattern)
	}
}

func TestParseCompensationUnknown(t *testing.T) {
	_, _, unknown, reason, _ := ParseCompensation("No compensation details provided.")
	if !unknown {
		t.Errorf("expected unknown compensation")
	}
	if reason == "" {
		t.Errorf("expected a reason string")
	}
}
