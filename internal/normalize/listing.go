package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

var errorTitleRe = regexp.MustCompile(`(?i)\b(404|not found|page not found|access denied|forbidden|error)\b`)
var errorBodyRe = regexp.MustCompile(`(?i)(the page you(?:'|’)re looking for|this page (?:doesn't|does not) exist|sorry, we couldn't find)`)

// isErrorLanding reports whether the fragment is an error/landing page
// rather than a job detail (spec section 4.5's error-landing filter).
func isErrorLanding(title, body string) bool {
	if errorTitleRe.MatchString(title) {
		return true
	}
	return errorBodyRe.MatchString(body)
}

var listingTitleRe = regexp.MustCompile(`(?i)\b(open positions|current openings|job openings|all jobs|careers at|search jobs|search for opportunities)\b`)

// listingURLPathRe matches a job-board's location/category filter path,
// e.g. "/jobs/united_states-new_york", Confluent's listing shape from
// spec section 4.5 step 6: a locale-ish slug joined by an underscore,
// hyphenated onto a second segment, with no trailing numeric job id.
var listingURLPathRe = regexp.MustCompile(`(?i)/jobs?/[a-z]+(?:_[a-z]+)+-[a-z][a-z0-9_-]*/?$`)

// isListingPage reports whether the fragment is a listing/index page
// rather than a single job detail: a listing-style title or body chrome
// ("Open Positions", "Search for Opportunities") is sufficient on its
// own; a known listing-filter URL path shape is an independent signal;
// repeated "apply now" chrome is a third, independent secondary signal.
func isListingPage(jobURL, title, body string) bool {
	if listingTitleRe.MatchString(title) || listingTitleRe.MatchString(body) {
		return true
	}
	if parsed, err := url.Parse(jobURL); err == nil && listingURLPathRe.MatchString(parsed.Path) {
		return true
	}
	jobCount := strings.Count(strings.ToLower(body), "apply now")
	return jobCount >= 3
}
