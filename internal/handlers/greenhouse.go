package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"jobscraper/internal/model"
)

var greenhouseAPIPath = regexp.MustCompile(`^/v1/boards/([^/]+)/jobs/(\d+)$`)

// greenhouseHandler rewrites marketing detail URLs
// (…?gh_jid=N&board=slug) into the canonical boards-api URL and back.
type greenhouseHandler struct{}

func newGreenhouseHandler() *greenhouseHandler { return &greenhouseHandler{} }

func (h *greenhouseHandler) Name() model.SiteType { return model.SiteTypeGreenhouse }

func (h *greenhouseHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if strings.HasSuffix(host, "boards-api.greenhouse.io") {
		return true
	}
	if strings.HasSuffix(host, "greenhouse.io") {
		return true
	}
	return parsed.Query().Get("gh_jid") != "" && parsed.Query().Get("board") != ""
}

func (h *greenhouseHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Query().Get("gh_jid") != "" {
		return false
	}
	return greenhouseAPIPath.FindStringSubmatch(parsed.Path) == nil
}

// BuildListingAPIURL rewrites a site's root URL into the boards-api
// listing endpoint for its board slug.
func (h *greenhouseHandler) BuildListingAPIURL(site model.Site) string {
	slug := boardSlugFromURL(site.RootURL)
	if slug == "" {
		slug = site.URLPattern
	}
	if slug == "" {
		return ""
	}
	return fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", slug)
}

type greenhouseListing struct {
	Jobs []struct {
		ID               int64  `json:"id"`
		AbsoluteURL      string `json:"absolute_url"`
		InternalJobID    int64  `json:"internal_job_id"`
		RequisitionID    string `json:"requisition_id"`
		FirstPublishedAt string `json:"first_published"`
	} `json:"jobs"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func (h *greenhouseHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	var listing greenhouseListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	slug := boardSlugFromURL(baseURL)
	seen := make(map[string]bool, len(listing.Jobs))
	out := make([]string, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		var u string
		if slug != "" {
			u = fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs/%d", slug, j.ID)
		} else if j.AbsoluteURL != "" {
			u = j.AbsoluteURL
		} else {
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

// ExtractPaginationURLs is a no-op: the boards-api listing endpoint
// returns the full job set in one response, spec section 4.5.
func (h *greenhouseHandler) ExtractPaginationURLs(body []byte, baseURL string) []string { return nil }

func (h *greenhouseHandler) BuildFetchHints(isListing bool) FetchHints {
	if isListing {
		return FetchHints{ReturnFormat: []FetchFormat{FormatJSON}, RequestProfile: ProfileBasic, FollowRedirects: true}
	}
	return FetchHints{ReturnFormat: []FetchFormat{FormatJSON}, RequestProfile: ProfileBasic, FollowRedirects: true}
}

func (h *greenhouseHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil {
			continue
		}
		if greenhouseAPIPath.FindStringSubmatch(parsed.Path) == nil && parsed.Query().Get("gh_jid") == "" {
			continue
		}
		canonical := u
		if apiURL, ok := APIURLFromMarketing(u); ok {
			canonical = apiURL
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

// APIURLFromMarketing rewrites a marketing detail URL
// (…?gh_jid=N&board=slug, or a boards.greenhouse.io path carrying a
// ?gh_jid=N query param) into the canonical boards-api URL. The inverse
// of MarketingURL, spec section 4.1/4.5.
func APIURLFromMarketing(marketingURL string) (string, bool) {
	parsed, err := url.Parse(marketingURL)
	if err != nil {
		return "", false
	}
	if greenhouseAPIPath.FindStringSubmatch(parsed.Path) != nil {
		return "", false
	}
	id := parsed.Query().Get("gh_jid")
	if id == "" {
		return "", false
	}
	slug := parsed.Query().Get("board")
	if slug == "" {
		slug = boardSlugFromURL(marketingURL)
	}
	if slug == "" {
		return "", false
	}
	return fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs/%s", slug, id), true
}

// MarketingURL rewrites a boards-api detail URL back into the marketing
// URL shape the apply-URL preference favors (spec section 4.5 step 7).
func (h *greenhouseHandler) MarketingURL(apiURL string) (string, bool) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return "", false
	}
	m := greenhouseAPIPath.FindStringSubmatch(parsed.Path)
	if m == nil {
		return "", false
	}
	slug, id := m[1], m[2]
	return fmt.Sprintf("https://boards.greenhouse.io/%s/jobs/%s", slug, id), true
}

func boardSlugFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if m := greenhouseAPIPath.FindStringSubmatch(parsed.Path); m != nil {
		return m[1]
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "boards" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	if len(segments) > 0 && segments[0] != "" && strings.Contains(strings.ToLower(parsed.Hostname()), "greenhouse") {
		return segments[0]
	}
	return ""
}
