package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"jobscraper/internal/model"
)

// githubCareersHandler turns the HTML listing URL into …/api/jobs?…
// with the page param stripped, and builds detail URLs as
// …/careers-home/jobs/{slug}?lang={lang}.
type githubCareersHandler struct{}

func newGithubCareersHandler() *githubCareersHandler { return &githubCareersHandler{} }

func (h *githubCareersHandler) Name() model.SiteType { return model.SiteTypeGithubCareers }

func (h *githubCareersHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Hostname()), "github.careers")
}

func (h *githubCareersHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.TrimRight(parsed.Path, "/") == "/api/jobs" || !strings.Contains(parsed.Path, "/careers-home/jobs/")
}

func (h *githubCareersHandler) BuildListingAPIURL(site model.Site) string {
	parsed, err := url.Parse(site.RootURL)
	if err != nil {
		return ""
	}
	if strings.TrimRight(parsed.Path, "/") == "/api/jobs" {
		return site.RootURL
	}
	query := parsed.Query()
	query.Del("page")
	host := parsed.Hostname()
	if host == "" {
		host = "www.github.careers"
	}
	base := fmt.Sprintf("%s://%s/api/jobs", schemeOrHTTPS(parsed.Scheme), host)
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

type githubCareersListing struct {
	Jobs []struct {
		Slug      string   `json:"slug"`
		Language  string   `json:"language"`
		Languages []string `json:"languages"`
		Data      *struct {
			Slug      string   `json:"slug"`
			Language  string   `json:"language"`
			Languages []string `json:"languages"`
		} `json:"data"`
	} `json:"jobs"`
}

func (h *githubCareersHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	var listing githubCareersListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	seen := make(map[string]bool, len(listing.Jobs))
	out := make([]string, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		slug, language, languages := j.Slug, j.Language, j.Languages
		if j.Data != nil {
			if j.Data.Slug != "" {
				slug = j.Data.Slug
			}
			if j.Data.Language != "" {
				language = j.Data.Language
			}
			if len(j.Data.Languages) > 0 {
				languages = j.Data.Languages
			}
		}
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		if language == "" && len(languages) > 0 {
			language = languages[0]
		}
		if language == "" {
			language = "en-us"
		}
		u := fmt.Sprintf("https://www.github.careers/careers-home/jobs/%s?lang=%s", slug, strings.ToLower(language))
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func (h *githubCareersHandler) ExtractPaginationURLs(body []byte, baseURL string) []string { return nil }

func (h *githubCareersHandler) BuildFetchHints(isListing bool) FetchHints {
	return FetchHints{ReturnFormat: []FetchFormat{FormatJSON}, RequestProfile: ProfileBasic, FollowRedirects: true}
}

func (h *githubCareersHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] || !strings.Contains(u, "/careers-home/jobs/") {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func schemeOrHTTPS(scheme string) string {
	if scheme == "" {
		return "https"
	}
	return scheme
}
