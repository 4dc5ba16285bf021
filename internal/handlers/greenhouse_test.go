package handlers

import "testing"

func TestAPIURLFromMarketing_RewritesGhJidQueryParam(t *testing.T) {
	marketing := "https://acme.com/careers?gh_jid=987654&board=acme"

	apiURL, ok := APIURLFromMarketing(marketing)
	if !ok {
		t.Fatalf("expected a rewrite for a gh_jid-carrying marketing url")
	}
	want := "https://boards-api.greenhouse.io/v1/boards/acme/jobs/987654"
	if apiURL != want {
		t.Fatalf("APIURLFromMarketing(%q) = %q, want %q", marketing, apiURL, want)
	}
}

func TestAPIURLFromMarketing_FallsBackToPathSlugWhenNoBoardParam(t *testing.T) {
	marketing := "https://boards.greenhouse.io/acme/jobs/42?gh_jid=42"

	apiURL, ok := APIURLFromMarketing(marketing)
	if !ok {
		t.Fatalf("expected a rewrite using the path-derived board slug")
	}
	want := "https://boards-api.greenhouse.io/v1/boards/acme/jobs/42"
	if apiURL != want {
		t.Fatalf("APIURLFromMarketing(%q) = %q, want %q", marketing, apiURL, want)
	}
}

func TestAPIURLFromMarketing_NoOpWhenAlreadyCanonical(t *testing.T) {
	if _, ok := APIURLFromMarketing("https://boards-api.greenhouse.io/v1/boards/acme/jobs/42"); ok {
		t.Fatalf("expected no rewrite for an already-canonical api url")
	}
}

func TestAPIURLFromMarketing_NoOpWithoutGhJid(t *testing.T) {
	if _, ok := APIURLFromMarketing("https://acme.com/careers"); ok {
		t.Fatalf("expected no rewrite when gh_jid is absent")
	}
}

func TestMarketingURL_IsTheInverseOfAPIURLFromMarketing(t *testing.T) {
	h := newGreenhouseHandler()
	apiURL := "https://boards-api.greenhouse.io/v1/boards/acme/jobs/42"

	marketing, ok := h.MarketingURL(apiURL)
	if !ok {
		t.Fatalf("expected MarketingURL to rewrite a canonical api url")
	}

	roundTripped, ok := APIURLFromMarketing(marketing + "?gh_jid=42&board=acme")
	if !ok {
		t.Fatalf("expected APIURLFromMarketing to rewrite the marketing form back")
	}
	if roundTripped != apiURL {
		t.Fatalf("round trip mismatch: got %q, want %q", roundTripped, apiURL)
	}
}

func TestFilterJobURLs_NormalizesMarketingURLsToCanonicalAPIForm(t *testing.T) {
	h := newGreenhouseHandler()
	urls := []string{
		"https://acme.com/careers?gh_jid=111&board=acme",
		"https://boards-api.greenhouse.io/v1/boards/acme/jobs/111",
		"https://acme.com/not-a-job-url",
	}

	out := h.FilterJobURLs(urls)

	if len(out) != 1 {
		t.Fatalf("expected the marketing and api forms of the same job to dedup to 1 url, got %d: %v", len(out), out)
	}
	want := "https://boards-api.greenhouse.io/v1/boards/acme/jobs/111"
	if out[0] != want {
		t.Fatalf("FilterJobURLs()[0] = %q, want %q", out[0], want)
	}
}
