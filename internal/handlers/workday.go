package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"jobscraper/internal/model"
)

// workdayHandler drives a Workday CXS job-board endpoint, which pages
// through results with an "offset" query param sized to the response's
// own page-size and total counters.
type workdayHandler struct{}

func newWorkdayHandler() *workdayHandler { return &workdayHandler{} }

func (h *workdayHandler) Name() model.SiteType { return model.SiteTypeWorkday }

func (h *workdayHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Hostname()), "myworkdayjobs.com")
}

func (h *workdayHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/wday/cxs/") && strings.HasSuffix(parsed.Path, "/jobs")
}

func (h *workdayHandler) BuildListingAPIURL(site model.Site) string {
	return site.RootURL
}

type workdayListing struct {
	Total     int `json:"total"`
	JobPostings []struct {
		ExternalPath string `json:"externalPath"`
	} `json:"jobPostings"`
}

func (h *workdayHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	var listing workdayListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	root := fmt.Sprintf("%s://%s", schemeOrHTTPS(base.Scheme), base.Host)
	siteSegment := workdaySiteSegment(base.Path)
	seen := make(map[string]bool, len(listing.JobPostings))
	out := make([]string, 0, len(listing.JobPostings))
	for _, j := range listing.JobPostings {
		if j.ExternalPath == "" {
			continue
		}
		u := root + siteSegment + j.ExternalPath
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func (h *workdayHandler) ExtractPaginationURLs(body []byte, baseURL string) []string {
	var listing workdayListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	pageSize := len(listing.JobPostings)
	if pageSize == 0 || listing.Total <= pageSize {
		return nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	query := parsed.Query()
	offset := 0
	if v := query.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}
	var out []string
	for next := offset + pageSize; next < listing.Total; next += pageSize {
		q := parsed.Query()
		q.Set("offset", fmt.Sprintf("%d", next))
		u := *parsed
		u.RawQuery = q.Encode()
		out = append(out, u.String())
	}
	return out
}

func (h *workdayHandler) BuildFetchHints(isListing bool) FetchHints {
	if isListing {
		return FetchHints{ReturnFormat: []FetchFormat{FormatJSON}, RequestProfile: ProfileBasic, FollowRedirects: true}
	}
	return FetchHints{ReturnFormat: []FetchFormat{FormatCommonmark}, RequestProfile: ProfileSmart, FollowRedirects: true}
}

func (h *workdayHandler) FilterJobURLs(urls []string) []string {
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

// workdaySiteSegment returns the "/en-US/SiteName" prefix that precedes
// "/wday/cxs/..." in a Workday job-board path, which every detail path
// must be rejoined under.
func workdaySiteSegment(path string) string {
	idx := strings.Index(path, "/wday/cxs/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}
