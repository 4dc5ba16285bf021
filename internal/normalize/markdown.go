package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seniorLevelRe = regexp.MustCompile(`(?i)\b(senior|sr\.?|staff|principal|lead)\b`)
var juniorLevelRe = regexp.MustCompile(`(?i)\b(junior|jr\.?|entry[- ]level|associate)\b`)
var midLevelRe = regexp.MustCompile(`(?i)\b(mid[- ]level|intermediate)\b`)

// parseLevel guesses a seniority level from title+body keywords. The
// first matching tier wins; unmatched text yields "" (unknown), never a
// guessed default.
func parseLevel(text string) string {
	switch {
	case seniorLevelRe.MatchString(text):
		return "senior"
	case juniorLevelRe.MatchString(text):
		return "junior"
	case midLevelRe.MatchString(text):
		return "mid"
	default:
		return ""
	}
}

var remoteRe = regexp.MustCompile(`(?i)\b(remote|work from home|wfh|fully distributed)\b`)
var onsiteRe = regexp.MustCompile(`(?i)\b(on[- ]site only|no remote|hybrid)\b`)

// parseRemote reports whether the text signals a remote role. An
// explicit onsite/hybrid signal overrides an earlier remote mention.
func parseRemote(text string) bool {
	if !remoteRe.MatchString(text) {
		return false
	}
	return !onsiteRe.MatchString(text)
}

var locationLineRe = regexp.MustCompile(`(?im)^\s*(?:location|office)\s*:\s*(.+)$`)
var usCityStateRe = regexp.MustCompile(`\b([A-Z][a-zA-Z.]+(?:\s[A-Z][a-zA-Z.]+)*),\s*([A-Z]{2})\b`)

// parseLocations pulls candidate location strings out of a job body: an
// explicit "Location:" line first, then any City, ST pattern found in
// the text, most specific first.
func parseLocations(body string) []string {
	var out []string
	if m := locationLineRe.FindStringSubmatch(body); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	for _, m := range usCityStateRe.FindAllStringSubmatch(body, -1) {
		out = append(out, fmt.Sprintf("%s, %s", strings.TrimSpace(m[1]), m[2]))
	}
	return out
}

var (
	usdRangeRe   = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*(?:k|K)?\s*(?:-|–|to)\s*\$?\s*([\d,]+(?:\.\d+)?)\s*(k|K)?`)
	usdSingleRe  = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*(k|K)\b`)
	inrRangeRe   = regexp.MustCompile(`(?i)(?:INR|Rs\.?|₹)\s*([\d,]+(?:\.\d+)?)\s*(?:-|–|to)\s*(?:INR|Rs\.?|₹)?\s*([\d,]+(?:\.\d+)?)`)
	lpaRe        = regexp.MustCompile(`(?i)([\d.]+)\s*LPA`)
)

// ParseCompensation extracts a compensation figure from body, trying
// each currency pattern in order: USD range, USD single "$Nk" value,
// INR range, then "N LPA". A matched range collapses to the plain
// arithmetic average in the currency's stated unit (not minor units);
// this mirrors the one worked compensation example in the retrieved
// corpus, where a $140,400-$372,300 JSON-LD range resolves to 256350.
// Returns (amount, currencyCode, unknown, reason, matchedPattern).
func ParseCompensation(body string) (int64, string, bool, string, string) {
	if m := usdRangeRe.FindStringSubmatch(body); m != nil {
		lo := parseCompNumber(m[1], m[3] != "")
		hi := parseCompNumber(m[2], m[3] != "")
		if lo > 0 && hi > 0 {
			return (lo + hi) / 2, "USD", false, "", "usd_range"
		}
	}
	if m := usdSingleRe.FindStringSubmatch(body); m != nil {
		v := parseCompNumber(m[1], true)
		if v > 0 {
			return v, "USD", false, "", "usd_single_k"
		}
	}
	if m := inrRangeRe.FindStringSubmatch(body); m != nil {
		lo := parseCompNumber(m[1], false)
		hi := parseCompNumber(m[2], false)
		if lo > 0 && hi > 0 {
			return (lo + hi) / 2, "INR", false, "", "inr_range"
		}
	}
	if m := lpaRe.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return int64(v * 100000), "INR", false, "", "lpa"
		}
	}
	return 0, "", true, "no_compensation_pattern_matched", ""
}

// compensationFromJSONLD reads a JobPosting's baseSalary.value
// minValue/maxValue (or a flat value) out of JSON-LD, the structured
// source a JSON-LD-carrying fragment should prefer over regex scraping
// of its rendered body.
func compensationFromJSONLD(jsonLD map[string]any) (int64, string, bool) {
	if jsonLD == nil {
		return 0, "", false
	}
	baseSalary, _ := jsonLD["baseSalary"].(map[string]any)
	if baseSalary == nil {
		return 0, "", false
	}
	currency, _ := baseSalary["currency"].(string)
	value, _ := baseSalary["value"].(map[string]any)
	if value == nil {
		return 0, "", false
	}
	min, hasMin := compNumberFromAny(value["minValue"])
	max, hasMax := compNumberFromAny(value["maxValue"])
	if hasMin && hasMax {
		return (min + max) / 2, currency, true
	}
	if single, hasSingle := compNumberFromAny(value["value"]); hasSingle {
		return single, currency, true
	}
	return 0, "", false
}

func compNumberFromAny(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if val, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64); err == nil {
			return int64(val), true
		}
	}
	return 0, false
}

func parseCompNumber(raw string, kilo bool) int64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if kilo {
		v *= 1000
	}
	return int64(v)
}

var postedAtLineRe = regexp.MustCompile(`(?im)^\s*(?:posted|date)\s*:?\s*(\d{4}-\d{2}-\d{2})`)

// parsePostedAt prefers JSON-LD's datePosted field, then a "Posted:"
// line in the body, falling back to the fetch timestamp when neither is
// present (spec section 4.5 step 6).
func parsePostedAt(jsonLD map[string]any, body string, fetchedAtMs int64) int64 {
	if jsonLD != nil {
		if raw, ok := jsonLD["datePosted"].(string); ok && raw != "" {
			if ms, ok := parseDateMs(raw); ok {
				return ms
			}
		}
	}
	if m := postedAtLineRe.FindStringSubmatch(body); m != nil {
		if ms, ok := parseDateMs(m[1]); ok {
			return ms
		}
	}
	return fetchedAtMs
}

func parseDateMs(raw string) (int64, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
