// Package normalize implements the normalizer (spec section 4.5): it
// turns one provider-emitted fragment (Greenhouse-API JSON, JSON-LD,
// HTML, or Markdown) into at most one canonical job row, or an
// ignored-job reason. The normalizer is a pure function of its input
// and the resolved filter/remote-company configuration; it performs no
// I/O, matching the site-handler registry's own "pure transformation"
// contract.
package normalize

import (
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"

	"jobscraper/internal/filterconfig"
	"jobscraper/internal/handlers"
	"jobscraper/internal/model"
)

// Fragment is one provider-emitted scrape result for a single detail
// URL, the normalizer's input.
type Fragment struct {
	URL         string
	Provider    model.Provider
	RawHTML     string
	Markdown    string
	JSONBody    []byte // e.g. a Greenhouse-API job body
	JSONLD      map[string]any
	FetchedAtMs int64
}

// Deps bundles the resolved, pure configuration the normalizer consults.
type Deps struct {
	Filters         filterconfig.Settings
	RemoteCompanies map[string]bool // normalized company name -> true
	Handler         handlers.Handler
}

const maxDescriptionChars = 8000

// Normalize runs the full pipeline from spec section 4.5 and returns
// exactly one of Candidate.Job or Candidate.Ignored.
func Normalize(f Fragment, deps Deps) model.Candidate {
	body, title, company, explicitLocation := extractStructured(f)
	if body == "" {
		body = f.Markdown
	}
	body = stripNavChrome(body)

	if title == "" {
		title = extractTitleHeading(body)
	}

	level := parseLevel(title + "\n" + body)
	remote := parseRemote(title + "\n" + body)
	locations := parseLocations(body)
	if explicitLocation != "" {
		locations = append([]string{explicitLocation}, locations...)
	}
	primaryLocation := ""
	if len(locations) > 0 {
		primaryLocation = locations[0]
	}

	totalComp, currency, compUnknown, compReason := int64(0), "", true, "no_compensation_pattern_matched"
	if amount, curr, ok := compensationFromJSONLD(f.JSONLD); ok {
		totalComp, currency, compUnknown, compReason = amount, curr, false, ""
	} else if amount, curr, unknown, reason, _ := ParseCompensation(body); !unknown {
		totalComp, currency, compUnknown, compReason = amount, curr, unknown, reason
	}
	postedAt := parsePostedAt(f.JSONLD, body, f.FetchedAtMs)

	if isErrorLanding(title, body) {
		return ignoredCandidate(f, title, model.IgnoreErrorLanding)
	}
	if isListingPage(f.URL, title, body) {
		return ignoredCandidate(f, title, model.IgnoreListingPage)
	}
	if !deps.Filters.TitleMatchesRequiredKeywords(title) {
		return ignoredCandidate(f, title, model.IgnoreMissingKeyword)
	}
	if !deps.Filters.LocationMatchesUSA(primaryLocation) {
		return ignoredCandidate(f, title, model.IgnoreFiltered)
	}

	canonicalURL, applyURL := preferApplyURL(f.URL, deps.Handler)

	if company == "" {
		company = deriveCompany(deps.Handler, canonicalURL)
	}
	if deps.RemoteCompanies[filterconfig.NormalizeCompanyName(company)] {
		remote = true
	}

	job := &model.Job{
		URL:                 canonicalURL,
		ApplyURL:            applyURL,
		Title:               title,
		Company:             company,
		Description:         previewString(body, maxDescriptionChars),
		Location:            primaryLocation,
		Locations:           dedupeStrings(locations),
		Country:             countryFromLocation(primaryLocation, remote),
		Remote:              remote,
		Level:               model.Level(level),
		TotalCompensation:   totalComp,
		CurrencyCode:        currency,
		CompensationUnknown: compUnknown,
		CompensationReason:  compReason,
		PostedAtMs:          postedAt,
		ScrapedAtMs:         f.FetchedAtMs,
		ScrapedWith:         f.Provider,
	}
	return model.Candidate{Job: job}
}

func ignoredCandidate(f Fragment, title string, reason model.IgnoreReason) model.Candidate {
	return model.Candidate{Ignored: &model.IgnoredJob{
		URL:      f.URL,
		Title:    title,
		Reason:   reason,
		Provider: f.Provider,
	}}
}

// greenhouseJobBody mirrors the subset of the Greenhouse API job
// response the structured-extraction step consumes.
type greenhouseJobBody struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	CompanyName string `json:"company_name"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

// extractStructured attempts the Greenhouse-API JSON structured
// extraction (spec section 4.5 step 1): title, absolute_url,
// location.name, and content, HTML-unescaped and converted to
// Markdown. Returns ("", "", "", "") when f.JSONBody is not a
// recognizable job body, signalling the caller to fall back to
// Markdown hint parsing.
func extractStructured(f Fragment) (body, title, company, location string) {
	if len(f.JSONBody) == 0 {
		return "", "", "", ""
	}
	var gh greenhouseJobBody
	if err := json.Unmarshal(f.JSONBody, &gh); err != nil || gh.Title == "" {
		return "", "", "", ""
	}
	md := htmlToMarkdown(html.UnescapeString(gh.Content))
	return md, gh.Title, gh.CompanyName, gh.Location.Name
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	brRe          = regexp.MustCompile(`(?i)<br\s*/?>`)
	liRe          = regexp.MustCompile(`(?i)<li[^>]*>`)
)

// htmlToMarkdown converts raw HTML to Markdown, preserving paragraph
// breaks, turning <br> into a newline and <li> into a leading dash, and
// dropping <script>/<style> blocks before conversion (spec section 4.5
// step 1).
func htmlToMarkdown(raw string) string {
	cleaned := scriptStyleRe.ReplaceAllString(raw, "")
	cleaned = brRe.ReplaceAllString(cleaned, "\n")
	cleaned = liRe.ReplaceAllString(cleaned, "- ")
	converter := htmlmd.NewConverter("", true, nil)
	md, err := converter.ConvertString(cleaned)
	if err != nil {
		return cleaned
	}
	return md
}

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// extractTitleHeading returns the first H1-H6 heading in body.
func extractTitleHeading(body string) string {
	m := headingRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func countryFromLocation(location string, remote bool) string {
	if location == "" {
		if remote {
			return "United States"
		}
		return ""
	}
	return ""
}

func previewString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// deriveCompany derives the company name from the job URL's host when
// the payload carried no explicit value (spec section 4.5 step 8):
// Greenhouse uses the board slug, generic strips
// careers./jobs./boards. prefixes and the TLD.
func deriveCompany(h handlers.Handler, jobURL string) string {
	parsed, err := url.Parse(jobURL)
	if err != nil {
		return ""
	}
	if h != nil && h.Name() == model.SiteTypeGreenhouse {
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		for i, seg := range segments {
			if seg == "boards" && i+1 < len(segments) {
				return titleCase(strings.ReplaceAll(segments[i+1], "-", " "))
			}
		}
		for i, seg := range segments {
			if seg == "jobs" && i > 0 {
				return titleCase(strings.ReplaceAll(segments[i-1], "-", " "))
			}
		}
		if len(segments) > 0 {
			return titleCase(strings.ReplaceAll(segments[0], "-", " "))
		}
	}
	host := strings.ToLower(parsed.Hostname())
	for _, prefix := range []string{"careers.", "jobs.", "boards.", "apply.", "www."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.LastIndex(host, "."); idx > 0 {
		host = host[:idx]
		if idx2 := strings.LastIndex(host, "."); idx2 > 0 {
			host = host[idx2+1:]
		}
	}
	return titleCase(strings.ReplaceAll(host, "-", " "))
}

// preferApplyURL implements spec section 4.5 step 7 / section 9's
// resolved open question: the marketing URL is the canonical job url
// when derivable; the originally-fetched URL is retained as apply_url.
func preferApplyURL(fetchedURL string, h handlers.Handler) (canonicalURL, applyURL string) {
	rewriter, ok := h.(handlers.ApplyURLRewriter)
	if !ok {
		return fetchedURL, ""
	}
	marketing, ok := rewriter.MarketingURL(fetchedURL)
	if !ok {
		return fetchedURL, ""
	}
	return marketing, fetchedURL
}
