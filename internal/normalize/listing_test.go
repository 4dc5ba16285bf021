package normalize

import "testing"

func TestIsListingPage_TitleChrome(t *testing.T) {
	if !isListingPage("https://acme.com/careers", "Open Positions at Acme", "") {
		t.Fatalf("expected a listing-style title to be detected as a listing page")
	}
}

func TestIsListingPage_URLPathPattern(t *testing.T) {
	// Confluent-style location-filter listing path, with chrome-free
	// title/body text that the regex signals alone would miss.
	url := "https://careers.confluent.io/jobs/united_states-new_york"
	if !isListingPage(url, "Careers", "A handful of roles are shown below.") {
		t.Fatalf("expected the /jobs/<locale>-<slug> path shape to be detected as a listing page")
	}
}

func TestIsListingPage_RepeatedApplyNowChrome(t *testing.T) {
	body := "apply now apply now apply now"
	if !isListingPage("https://acme.com/jobs", "Acme Careers", body) {
		t.Fatalf("expected repeated apply-now chrome to be detected as a listing page")
	}
}

func TestIsListingPage_SingleJobDetailIsNotAListing(t *testing.T) {
	url := "https://boards-api.greenhouse.io/v1/boards/acme/jobs/12345"
	if isListingPage(url, "Senior Engineer - Acme", "We are looking for a senior engineer. apply now") {
		t.Fatalf("expected a single job detail page not to be classified as a listing page")
	}
}
