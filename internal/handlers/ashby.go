package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"jobscraper/internal/model"
)

// ashbyHandler talks to Ashby's public posting-api job board endpoint,
// which returns the full listing in one response (no pagination).
type ashbyHandler struct{}

func newAshbyHandler() *ashbyHandler { return &ashbyHandler{} }

func (h *ashbyHandler) Name() model.SiteType { return model.SiteTypeAshby }

func (h *ashbyHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.HasSuffix(host, "jobs.ashbyhq.com") || strings.HasSuffix(host, "api.ashbyhq.com")
}

func (h *ashbyHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return len(segments) <= 1
}

func (h *ashbyHandler) BuildListingAPIURL(site model.Site) string {
	board := boardNameFromURL(site.RootURL)
	if board == "" {
		board = site.URLPattern
	}
	if board == "" {
		return ""
	}
	return fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s?includeCompensation=true", board)
}

type ashbyListing struct {
	Jobs []struct {
		ID      string `json:"id"`
		JobURL  string `json:"jobUrl"`
		Title   string `json:"title"`
		IsOpen  bool   `json:"isListed"`
	} `json:"jobs"`
}

func (h *ashbyHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	var listing ashbyListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	seen := make(map[string]bool, len(listing.Jobs))
	out := make([]string, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		u := strings.TrimSpace(j.JobURL)
		if u == "" {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// ExtractPaginationURLs is a no-op: the posting-api returns every open
// listing in a single response.
func (h *ashbyHandler) ExtractPaginationURLs(body []byte, baseURL string) []string { return nil }

func (h *ashbyHandler) BuildFetchHints(isListing bool) FetchHints {
	if isListing {
		return FetchHints{ReturnFormat: []FetchFormat{FormatJSON}, RequestProfile: ProfileBasic, FollowRedirects: true}
	}
	return FetchHints{ReturnFormat: []FetchFormat{FormatCommonmark}, RequestProfile: ProfileSmart, FollowRedirects: true}
}

func (h *ashbyHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] || !h.MatchesURL(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func boardNameFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return ""
	}
	return segments[0]
}
