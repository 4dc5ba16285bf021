package filterconfig

import (
	"testing"

	"jobscraper/internal/config"
)

func TestResolveDefaults(t *testing.T) {
	s := Resolve(config.FiltersConfig{})
	if len(s.RequiredKeywords) != 4 {
		t.Fatalf("expected 4 default keywords, got %v", s.RequiredKeywords)
	}
	if !s.RequireUSOnly || !s.AllowUnknownLocation || !s.AllowUnknownTitle {
		t.Fatalf("expected default boolean filters to be true, got %+v", s)
	}
	if len(s.USStateCodes) != 54 {
		t.Fatalf("expected 54 default US state and territory codes, got %d", len(s.USStateCodes))
	}
}

func TestMergeNotReplace(t *testing.T) {
	s := Resolve(config.FiltersConfig{
		LocationFilters: config.LocationFiltersConfig{
			USTerms: []string{"stateside"},
		},
	})
	if len(s.USTerms) != len(defaultUSTerms)+1 {
		t.Fatalf("expected merged US terms to extend defaults, got %d terms", len(s.USTerms))
	}
	if !s.LocationMatchesUSA("Remote, Stateside") {
		t.Fatalf("expected custom US term to match")
	}
}

func TestTitleMatchesRequiredKeywords(t *testing.T) {
	s := Resolve(config.FiltersConfig{})
	if !s.TitleMatchesRequiredKeywords("Senior Software Engineer") {
		t.Fatalf("expected title with required keyword to match")
	}
	if s.TitleMatchesRequiredKeywords("Account Executive") {
		t.Fatalf("expected title without required keyword to be rejected")
	}
	if !s.TitleMatchesRequiredKeywords("") {
		t.Fatalf("expected empty title to be allowed by default")
	}
}

func TestLocationMatchesUSA(t *testing.T) {
	s := Resolve(config.FiltersConfig{})
	cases := []struct {
		location string
		want     bool
	}{
		{"San Francisco, CA", true},
		{"Remote - US", true},
		{"Remote", true},
		{"Toronto, Canada", false},
		{"London, UK", false},
		{"94105", true},
		{"", true},
	}
	for _, c := range cases {
		if got := s.LocationMatchesUSA(c.location); got != c.want {
			t.Errorf("LocationMatchesUSA(%q) = %v, want %v", c.location, got, c.want)
		}
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	cases := map[string]string{
		"Stripe, Inc.":    "stripe",
		"stripe":          "stripe",
		"Acme Corp":       "acme",
		"Globex Holdings": "globex",
		"":                "",
	}
	for in, want := range cases {
		if got := NormalizeCompanyName(in); got != want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", in, got, want)
		}
	}
}
