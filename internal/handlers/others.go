package handlers

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"jobscraper/internal/model"
)

// pathFamilyHandler covers the simpler careers-site families (Confluent,
// Cisco, Netflix, Uber, OpenAI, Notion) that all follow the same shape:
// a listing page at a fixed path prefix, job-detail links matched by a
// regex over the rendered page, and, where a page parameter is
// configured, page-number pagination via that query parameter (Confluent,
// OpenAI and Notion have none and yield no pagination URLs). Each gets
// its own fetch-format and request-profile
// preference per spec section 4.1.
type pathFamilyHandler struct {
	siteType       model.SiteType
	host           string
	listingPrefix  string
	detailPattern  *regexp.Regexp
	pageParam      string
	maxPageGuess   int
	listingFormat  FetchFormat
	detailFormat   FetchFormat
	profile        RequestProfile
}

func newPathFamilyHandler(siteType model.SiteType, host, listingPrefix string, detailPattern *regexp.Regexp, pageParam string, listingFormat, detailFormat FetchFormat, profile RequestProfile) *pathFamilyHandler {
	return &pathFamilyHandler{
		siteType:      siteType,
		host:          host,
		listingPrefix: listingPrefix,
		detailPattern: detailPattern,
		pageParam:     pageParam,
		maxPageGuess:  20,
		listingFormat: listingFormat,
		detailFormat:  detailFormat,
		profile:       profile,
	}
}

func (h *pathFamilyHandler) Name() model.SiteType { return h.siteType }

func (h *pathFamilyHandler) MatchesURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Hostname()), h.host)
}

func (h *pathFamilyHandler) IsListingURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.HasPrefix(parsed.Path, h.listingPrefix)
}

func (h *pathFamilyHandler) BuildListingAPIURL(site model.Site) string {
	if site.RootURL != "" {
		return site.RootURL
	}
	return "https://" + h.host + h.listingPrefix
}

func (h *pathFamilyHandler) ExtractJobURLs(body []byte, baseURL string) []string {
	matches := h.detailPattern.FindAllString(string(body), -1)
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

// ExtractPaginationURLs increments the page-number query param up to
// the handler's guessed page ceiling; the enqueue layer deduplicates
// against already-seen URLs so an over-estimate costs nothing but one
// wasted fetch per site.
func (h *pathFamilyHandler) ExtractPaginationURLs(body []byte, baseURL string) []string {
	if h.pageParam == "" {
		return nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	current := 1
	if v := parsed.Query().Get(h.pageParam); v != "" {
		if n, perr := strconv.Atoi(v); perr == nil {
			current = n
		}
	}
	if len(h.detailPattern.FindAllString(string(body), -1)) == 0 {
		return nil
	}
	next := current + 1
	if next > h.maxPageGuess {
		return nil
	}
	q := parsed.Query()
	q.Set(h.pageParam, strconv.Itoa(next))
	u := *parsed
	u.RawQuery = q.Encode()
	return []string{u.String()}
}

func (h *pathFamilyHandler) BuildFetchHints(isListing bool) FetchHints {
	if isListing {
		return FetchHints{ReturnFormat: []FetchFormat{h.listingFormat}, RequestProfile: h.profile, FollowRedirects: true}
	}
	return FetchHints{ReturnFormat: []FetchFormat{h.detailFormat}, RequestProfile: h.profile, FollowRedirects: true}
}

func (h *pathFamilyHandler) FilterJobURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] || !h.detailPattern.MatchString(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Confluent's listing pages are enumerated by US-location shards, e.g.
// /jobs/united_states-*, with job details under /jobs/{slug}.
var confluentDetailPattern = regexp.MustCompile(`/jobs/[a-z0-9-]+-\d+`)

func newConfluentHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeConfluent, "confluent.io", "/jobs/", confluentDetailPattern, "", FormatRawHTML, FormatCommonmark, ProfileSmart)
}

var ciscoDetailPattern = regexp.MustCompile(`/jobs/[a-zA-Z0-9-]+/[0-9]+`)

func newCiscoHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeCisco, "jobs.cisco.com", "/jobs/search", ciscoDetailPattern, "p", FormatRawHTML, FormatCommonmark, ProfileSmart)
}

var netflixDetailPattern = regexp.MustCompile(`/jobs/\d+`)

func newNetflixHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeNetflix, "explore.jobs.netflix.net", "/careers", netflixDetailPattern, "page", FormatJSON, FormatCommonmark, ProfileBasic)
}

var uberDetailPattern = regexp.MustCompile(`/careers/list/\d+`)

func newUberHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeUber, "uber.com", "/careers/list", uberDetailPattern, "offset", FormatJSON, FormatCommonmark, ProfileBasic)
}

var openAIDetailPattern = regexp.MustCompile(`/careers/[a-z0-9-]+`)

func newOpenAIHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeOpenAI, "openai.com", "/careers", openAIDetailPattern, "", FormatRawHTML, FormatCommonmark, ProfileChrome)
}

var notionDetailPattern = regexp.MustCompile(`/apply/[a-z0-9-]+`)

func newNotionHandler() *pathFamilyHandler {
	return newPathFamilyHandler(model.SiteTypeNotion, "notion.com", "/careers", notionDetailPattern, "", FormatRawHTML, FormatCommonmark, ProfileChrome)
}
