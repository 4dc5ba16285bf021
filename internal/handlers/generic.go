package handlers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscraper/internal/model"
)

var genericJobKeywords = []string{"job", "career", "position", "opening", "vacancy", "role"}

var genericRejectKeywords = []string{"login", "register", "signin", "sign-in", "logout", "saved", "privacy", "cookie", "terms"}

// genericHandler is the registry tail: it walks a listing page's anchor
// tags looking for same-domain links whose path resembles a job-detail
// URL, with no site-specific contract to lean on.
type genericHandler struct{}

func newGenericHandler() *genericHandler { return &genericHandler{} }

func (h *genericHandler) Name() model.SiteType { return model.SiteTypeGeneric }

func (h *genericHandler) MatchesURL(u string) bool { return true }

func (h *genericHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, kw := range genericJobKeywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return path == "" || path == "/"
}

func (h *genericHandler) BuildListingAPIURL(site model.Site) string { return site.RootURL }

func (h *genericHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	base, baseErr := url.Parse(baseURL)
	seen := make(map[string]bool)
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := href
		if baseErr == nil {
			if ref, rerr := url.Parse(href); rerr == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		if !isLikelyJobDetailURL(resolved, base) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		out = append(out, resolved)
	})
	return out
}

// ExtractPaginationURLs looks for rel="next" anchors, the only
// pagination convention a handler with no site contract can rely on.
func (h *genericHandler) ExtractPaginationURLs(body []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	base, baseErr := url.Parse(baseURL)
	var out []string
	doc.Find(`a[rel="next"], link[rel="next"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := href
		if baseErr == nil {
			if ref, rerr := url.Parse(href); rerr == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		out = append(out, resolved)
	})
	return out
}

func (h *genericHandler) BuildFetchHints(isListing bool) FetchHints {
	return FetchHints{
		ReturnFormat:             []FetchFormat{FormatRawHTML, FormatCommonmark},
		RequestProfile:           ProfileSmart,
		FollowRedirects:          true,
		ExtractPaginationFromDOM: isListing,
	}
}

func (h *genericHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || containsAny(strings.ToLower(parsed.Path), genericRejectKeywords) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func isLikelyJobDetailURL(raw string, base *url.URL) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if base != nil && parsed.Hostname() != "" && !strings.EqualFold(parsed.Hostname(), base.Hostname()) {
		return false
	}
	path := strings.ToLower(parsed.Path)
	if containsAny(path, genericRejectKeywords) {
		return false
	}
	return containsAny(path, genericJobKeywords)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
