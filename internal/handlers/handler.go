// Package handlers implements the site-handler registry (spec section
// 4.1): per-careers-site-family strategies that turn a raw URL or
// listing payload into canonical job-detail URLs, pagination URLs, and
// provider fetch hints. Handlers are pure transformations with no I/O.
package handlers

import "jobscraper/internal/model"

// FetchFormat is the requested representation a provider should return
// for a fetched page.
type FetchFormat string

const (
	FormatRawHTML    FetchFormat = "raw_html"
	FormatCommonmark FetchFormat = "commonmark"
	FormatJSON       FetchFormat = "json"
)

// RequestProfile selects how aggressively a provider should render the
// page before returning it (plain HTTP vs a JS-capable renderer).
type RequestProfile string

const (
	ProfileBasic  RequestProfile = "basic"
	ProfileSmart  RequestProfile = "smart"
	ProfileChrome RequestProfile = "chrome"
)

// FetchHints is the small configuration object a handler hands to the
// provider adapter for one fetch.
type FetchHints struct {
	ReturnFormat             []FetchFormat
	RequestProfile           RequestProfile
	FollowRedirects          bool
	PreserveHost             bool
	WaitForSelector          string
	ExtractPaginationFromDOM bool
}

// Handler is the capability set spec section 4.1 requires of every
// site-family strategy.
type Handler interface {
	// Name identifies the handler for logging and explicit site-type
	// matching.
	Name() model.SiteType

	// MatchesURL reports whether this handler's host/path predicate
	// recognizes u. Used for implicit (non site-type-declared) matching.
	MatchesURL(u string) bool

	// IsListingURL reports whether u is a careers listing page rather
	// than a single job-detail page.
	IsListingURL(u string) bool

	// BuildListingAPIURL rewrites a site's root/listing URL into the
	// canonical URL the provider should fetch to enumerate jobs.
	BuildListingAPIURL(site model.Site) string

	// ExtractJobURLs pulls job-detail URLs out of a listing response
	// body (JSON or HTML, depending on the handler).
	ExtractJobURLs(body []byte, baseURL string) []string

	// ExtractPaginationURLs pulls further listing-page URLs (next pages)
	// out of a listing response body.
	ExtractPaginationURLs(body []byte, baseURL string) []string

	// BuildFetchHints returns the provider hints for fetching either a
	// listing page (isListing=true) or a job-detail page.
	BuildFetchHints(isListing bool) FetchHints

	// FilterJobURLs drops URLs that are not real job-detail pages
	// (e.g. login/search/save-job actions on the same host).
	FilterJobURLs(urls []string) []string
}

// ApplyURLRewriter is implemented by handlers whose canonical job URL
// can be derived from an API URL the provider actually fetched (spec
// section 4.5 step 7, "apply-URL preference"). Handlers without a
// marketing/API URL split do not implement this.
type ApplyURLRewriter interface {
	// MarketingURL returns the canonical (marketing) URL for an API
	// detail URL, or ("", false) if apiURL is not recognized.
	MarketingURL(apiURL string) (string, bool)
}
