package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"jobscraper/internal/model"
)

const (
	docusignHost        = "careers.docusign.com"
	docusignListingPath = "/api/jobs"
	docusignDetailPath  = "/jobs/"
)

// docusignHandler pages the /api/jobs listing endpoint by total-count /
// page-size arithmetic, same shape as the workday handler but keyed off
// Docusign's own response fields.
type docusignHandler struct{}

func newDocusignHandler() *docusignHandler { return &docusignHandler{} }

func (h *docusignHandler) Name() model.SiteType { return model.SiteTypeDocusign }

func (h *docusignHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if !strings.HasSuffix(host, docusignHost) {
		return false
	}
	path := strings.ToLower(parsed.Path)
	return strings.HasPrefix(path, docusignListingPath) || strings.Contains(path, docusignDetailPath)
}

func (h *docusignHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(parsed.Path), docusignListingPath)
}

func (h *docusignHandler) BuildListingAPIURL(site model.Site) string {
	if h.IsListingURL(site.RootURL) {
		return site.RootURL
	}
	return fmt.Sprintf("https://%s%s", docusignHost, docusignListingPath)
}

type docusignListing struct {
	TotalCount int `json:"totalCount"`
	Count      int `json:"count"`
	Jobs       []struct {
		CanonicalURL string `json:"canonical_url"`
		JobURL       string `json:"jobUrl"`
		PostingURL   string `json:"postingUrl"`
		URL          string `json:"url"`
		Slug         string `json:"slug"`
		ReqID        string `json:"req_id"`
		Language     string `json:"language"`
		MetaData     *struct {
			CanonicalURL string `json:"canonical_url"`
		} `json:"meta_data"`
		Data *json.RawMessage `json:"data"`
	} `json:"jobs"`
	Filter struct {
		DisplayLimit int `json:"displayLimit"`
	} `json:"filter"`
}

func (h *docusignHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	var listing docusignListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	seen := make(map[string]bool, len(listing.Jobs))
	out := make([]string, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		u := j.CanonicalURL
		if j.MetaData != nil && j.MetaData.CanonicalURL != "" {
			u = j.MetaData.CanonicalURL
		}
		if u == "" {
			u = firstNonEmpty(j.JobURL, j.PostingURL, j.URL)
		}
		if u == "" {
			slug := firstNonEmpty(j.Slug, j.ReqID)
			if slug == "" {
				continue
			}
			u = fmt.Sprintf("https://%s/jobs/%s", docusignHost, slug)
			if j.Language != "" {
				u += "?lang=" + j.Language
			}
		}
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func (h *docusignHandler) ExtractPaginationURLs(body []byte, sourceURL string) []string {
	var listing docusignListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	total := listing.TotalCount
	if total <= 0 {
		total = listing.Count
	}
	if total <= 0 {
		return nil
	}
	pageSize := len(listing.Jobs)
	if pageSize <= 0 {
		pageSize = listing.Filter.DisplayLimit
	}
	if pageSize <= 0 || sourceURL == "" {
		return nil
	}
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	current := pageFromURL(sourceURL)
	if current < 1 {
		current = 1
	}
	if current >= totalPages {
		return nil
	}
	var out []string
	for page := current + 1; page <= totalPages; page++ {
		out = append(out, setPageParam(sourceURL, page))
	}
	return out
}

func (h *docusignHandler) BuildFetchHints(isListing bool) FetchHints {
	if isListing {
		return FetchHints{ReturnFormat: []FetchFormat{FormatRawHTML}, RequestProfile: ProfileChrome, FollowRedirects: true, PreserveHost: true, ExtractPaginationFromDOM: true}
	}
	return FetchHints{ReturnFormat: []FetchFormat{FormatCommonmark}, RequestProfile: ProfileChrome, FollowRedirects: true, PreserveHost: true}
}

func (h *docusignHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, raw := range urls {
		cleaned := strings.TrimSpace(raw)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		parsed, err := url.Parse(cleaned)
		if err != nil {
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		path := strings.ToLower(parsed.Path)
		if !strings.HasSuffix(host, docusignHost) || !strings.Contains(path, docusignDetailPath) {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func pageFromURL(raw string) int {
	parsed, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	v := parsed.Query().Get("page")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func setPageParam(raw string, page int) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := parsed.Query()
	q.Set("page", strconv.Itoa(page))
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
