package handlers

import (
	"net/url"
	"regexp"
	"strings"

	"jobscraper/internal/model"
)

var (
	avatureJobDetailLink = regexp.MustCompile(`/JobDetail/[^"'\s]+`)
	avatureOffsetLink    = regexp.MustCompile(`[?&]jobOffset=\d+[^"'\s]*`)
	avatureRejectPaths   = []string{"/SaveJob", "/Login", "/Register"}
)

// avatureHandler recognises the Avature careers search listing pages
// and extracts JobDetail/jobOffset pagination anchors from rendered
// HTML (Avature listings are client-rendered, so hints request chrome).
type avatureHandler struct{}

func newAvatureHandler() *avatureHandler { return &avatureHandler{} }

func (h *avatureHandler) Name() model.SiteType { return model.SiteTypeAvature }

func (h *avatureHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/careers/SearchJobs") ||
		strings.Contains(parsed.Path, "/careers/SearchJobsData") ||
		strings.Contains(parsed.Path, "/JobDetail/")
}

func (h *avatureHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/careers/SearchJobs") || strings.Contains(parsed.Path, "/careers/SearchJobsData")
}

func (h *avatureHandler) BuildListingAPIURL(site model.Site) string {
	if site.RootURL != "" {
		return site.RootURL
	}
	return ""
}

func (h *avatureHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	matches := avatureJobDetailLink.FindAllString(string(body), -1)
	base, err := url.Parse(baseURL)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		resolved := m
		if err == nil {
			if ref, rerr := url.Parse(m); rerr == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

func (h *avatureHandler) ExtractPaginationURLs(body []byte, baseURL string) []string {
	matches := avatureOffsetLink.FindAllString(string(body), -1)
	base, err := url.Parse(baseURL)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		joined := baseURL + m
		if err == nil && strings.HasPrefix(m, "?") {
			u := *base
			u.RawQuery = strings.TrimPrefix(m, "?")
			joined = u.String()
		}
		if seen[joined] {
			continue
		}
		seen[joined] = true
		out = append(out, joined)
	}
	return out
}

func (h *avatureHandler) BuildFetchHints(isListing bool) FetchHints {
	return FetchHints{
		ReturnFormat:             []FetchFormat{FormatRawHTML},
		RequestProfile:           ProfileChrome,
		FollowRedirects:          true,
		ExtractPaginationFromDOM: isListing,
	}
}

func (h *avatureHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		if isAvatureRejected(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func isAvatureRejected(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return true
	}
	for _, p := range avatureRejectPaths {
		if strings.Contains(parsed.Path, p) {
			return true
		}
	}
	return false
}
