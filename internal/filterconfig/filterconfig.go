// Package filterconfig resolves the title-keyword and US-location filter
// settings used by the normalizer, merging built-in defaults with the
// operator-supplied scraper_filters.yaml and environment overrides rather
// than replacing them outright.
package filterconfig

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"jobscraper/internal/config"
)

var (
	companyNormalizeRe  = regexp.MustCompile(`[^a-z0-9]+`)
	zipCodeRe           = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	usAbbreviationRe    = regexp.MustCompile(`\bU\.?S\.?A?\b`)
)

var companySuffixes = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "company": true, "co": true, "plc": true,
	"gmbh": true, "sarl": true, "ag": true, "bv": true, "sa": true, "pte": true,
	"pty": true, "holdings": true, "group": true,
}

var defaultRequiredKeywords = []string{"engineer", "developer", "software", "development"}

var defaultUSTerms = []string{
	"united states", "united states of america", "usa", "u.s.", "u.s.a", "u.s",
	"america", "within the us", "anywhere in the us", "remote in us",
	"remote - us", "us remote", "us-based", "us only",
}

var defaultUSStateCodes = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL", "GA", "HI", "ID",
	"IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO",
	"MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA",
	"RI", "SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY", "PR",
	"GU", "VI",
}

var defaultUSStateNames = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado",
	"connecticut", "delaware", "district of columbia", "florida", "georgia",
	"hawaii", "idaho", "illinois", "indiana", "iowa", "kansas", "kentucky",
	"louisiana", "maine", "maryland", "massachusetts", "michigan", "minnesota",
	"mississippi", "missouri", "montana", "nebraska", "nevada", "new hampshire",
	"new jersey", "new mexico", "new york", "north carolina", "north dakota",
	"ohio", "oklahoma", "oregon", "pennsylvania", "rhode island",
	"south carolina", "south dakota", "tennessee", "texas", "utah", "vermont",
	"virginia", "washington", "west virginia", "wisconsin", "wyoming",
	"puerto rico", "guam", "virgin islands",
}

var defaultUSCityHints = []string{
	"new york", "san francisco", "seattle", "austin", "boston", "los angeles",
	"denver", "atlanta", "chicago", "portland", "san diego", "dallas",
	"houston", "miami", "phoenix", "raleigh", "washington", "san jose",
	"philadelphia", "salt lake city", "columbus", "charlotte",
}

var defaultNonUSTerms = []string{
	"canada", "toronto", "ontario", "vancouver", "montreal", "london",
	"united kingdom", "uk", "ireland", "scotland", "wales", "australia",
	"new zealand", "singapore", "india", "pakistan", "bangladesh", "germany",
	"france", "spain", "italy", "netherlands", "sweden", "norway", "finland",
	"denmark", "poland", "mexico", "brazil", "argentina", "chile", "colombia",
	"peru", "japan", "china", "taiwan", "hong kong", "south korea", "korea",
	"vietnam", "thailand", "philippines", "malaysia", "indonesia",
	"south africa", "nigeria", "egypt", "israel",
}

// Settings is the resolved, merged filter configuration used at runtime.
type Settings struct {
	RequiredKeywords     []string
	AllowUnknownTitle    bool
	RequireUSOnly        bool
	AllowUnknownLocation bool
	USTerms              []string
	USStateCodes         []string
	USStateNames         []string
	USCityHints          []string
	NonUSTerms           []string
}

// Resolve builds Settings from the loaded config, applying the same
// env-override-then-merge-with-defaults semantics as the original filter
// settings resolver: JOB_TITLE_REQUIRED_KEYWORDS (or JOB_TITLE_KEYWORDS)
// replaces the keyword list outright when set, and so does a non-empty
// YAML required-keyword list; the location list settings extend the
// built-in defaults rather than replacing them.
func Resolve(cfg config.FiltersConfig) Settings {
	required := defaultRequiredKeywords
	if env := firstNonEmptyEnv("JOB_TITLE_REQUIRED_KEYWORDS", "JOB_TITLE_KEYWORDS"); env != "" {
		required = parseKeywords(env)
	} else if len(cfg.TitleKeywords.Required) > 0 {
		required = normalizeList(cfg.TitleKeywords.Required, true, false)
	}

	allowUnknownTitle := true
	if cfg.TitleKeywords.AllowWhenMissing != nil {
		allowUnknownTitle = *cfg.TitleKeywords.AllowWhenMissing
	}

	requireUS := true
	if cfg.LocationFilters.RequireUSA != nil {
		requireUS = *cfg.LocationFilters.RequireUSA
	}

	allowUnknownLocation := true
	if cfg.LocationFilters.AllowWhenMissing != nil {
		allowUnknownLocation = *cfg.LocationFilters.AllowWhenMissing
	}

	return Settings{
		RequiredKeywords:     required,
		AllowUnknownTitle:    allowUnknownTitle,
		RequireUSOnly:        requireUS,
		AllowUnknownLocation: allowUnknownLocation,
		USTerms:              mergeList(defaultUSTerms, cfg.LocationFilters.USTerms, true, false),
		USStateCodes:         mergeList(defaultUSStateCodes, cfg.LocationFilters.USStateCodes, false, true),
		USStateNames:         mergeList(defaultUSStateNames, cfg.LocationFilters.USStateNames, true, false),
		USCityHints:          mergeList(defaultUSCityHints, cfg.LocationFilters.USCityHints, true, false),
		NonUSTerms:           mergeList(defaultNonUSTerms, cfg.LocationFilters.NonUSTerms, true, false),
	}
}

// LoadRemoteCompanies reads the companies list (under a top-level
// "companies" key or a bare YAML list) from path, normalizing each name.
// A missing or unparsable file yields an empty list rather than an error,
// matching the original's graceful-degradation behavior.
func LoadRemoteCompanies(path string) []string {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var asMap map[string]any
	if err := yaml.Unmarshal(raw, &asMap); err == nil && asMap != nil {
		if list, ok := asMap["companies"].([]any); ok {
			return normalizeCompanyList(list)
		}
	}

	var asList []any
	if err := yaml.Unmarshal(raw, &asList); err == nil {
		return normalizeCompanyList(asList)
	}

	return nil
}

func normalizeCompanyList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if n := NormalizeCompanyName(s); n != "" {
			out = append(out, n)
		}
	}
	return dedupePreserveOrder(out)
}

// NormalizeCompanyName lowercases, strips punctuation, and drops a
// trailing run of legal-entity suffix tokens (Inc, LLC, GmbH, ...) so
// "Stripe, Inc." and "stripe" compare equal.
func NormalizeCompanyName(value string) string {
	if value == "" {
		return ""
	}
	cleaned := companyNormalizeRe.ReplaceAllString(strings.ToLower(value), " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	tokens := strings.Fields(cleaned)
	for len(tokens) > 0 && companySuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// TitleMatchesRequiredKeywords reports whether title satisfies the
// configured required-keyword filter.
func (s Settings) TitleMatchesRequiredKeywords(title string) bool {
	if len(s.RequiredKeywords) == 0 {
		return true
	}
	if strings.TrimSpace(title) == "" {
		return s.AllowUnknownTitle
	}
	lower := strings.ToLower(title)
	for _, kw := range s.RequiredKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// LocationMatchesUSA reports whether location passes the US-only filter.
func (s Settings) LocationMatchesUSA(location string) bool {
	if !s.RequireUSOnly {
		return true
	}
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return s.AllowUnknownLocation
	}

	lower := strings.ToLower(trimmed)
	upper := strings.ToUpper(trimmed)

	for _, term := range s.NonUSTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}

	if strings.Contains(lower, "remote") && !containsAny(lower, s.USTerms) {
		return s.AllowUnknownLocation
	}

	if containsAny(lower, s.USTerms) {
		return true
	}
	if usAbbreviationRe.MatchString(upper) {
		return true
	}
	if zipCodeRe.MatchString(lower) {
		return true
	}
	for _, code := range s.USStateCodes {
		if regexp.MustCompile(`\b` + code + `\b`).MatchString(upper) {
			return true
		}
	}
	if containsAny(lower, s.USStateNames) {
		return true
	}
	if containsAny(lower, s.USCityHints) {
		return true
	}
	return false
}

// PassesFilters applies both the title-keyword and US-location filters.
func (s Settings) PassesFilters(title, location string) bool {
	if !s.TitleMatchesRequiredKeywords(title) {
		return false
	}
	return s.LocationMatchesUSA(location)
}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func parseKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeList(raw []string, lower, upper bool) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if lower {
			item = strings.ToLower(item)
		}
		if upper {
			item = strings.ToUpper(item)
		}
		out = append(out, item)
	}
	return dedupePreserveOrder(out)
}

func mergeList(defaults, extra []string, lower, upper bool) []string {
	merged := make([]string, 0, len(defaults)+len(extra))
	merged = append(merged, defaults...)
	merged = append(merged, normalizeList(extra, lower, upper)...)
	return dedupePreserveOrder(merged)
}

func dedupePreserveOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
