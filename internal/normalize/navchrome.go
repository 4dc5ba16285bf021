package normalize

import (
	"regexp"
	"strings"
)

// navTerms are the site-chrome words that, found in a contiguous run at
// the start of a converted body, mark navigation/menu boilerplate
// rather than job content.
var navTerms = []string{
	"home", "about", "about us", "careers", "jobs", "benefits", "culture",
	"life at", "our team", "mission", "values", "blog", "news", "contact",
	"login", "sign in", "apply now", "search jobs", "all jobs",
}

var navBlockRe = regexp.MustCompile(`(?im)^(?:\s*[-*]?\s*(?:` + strings.Join(navTermsEscaped(), "|") + `)\s*)+$`)

func navTermsEscaped() []string {
	out := make([]string, len(navTerms))
	for i, t := range navTerms {
		out[i] = regexp.QuoteMeta(t)
	}
	return out
}

var careersAnchorRe = regexp.MustCompile(`(?im)^#{1,6}\s*careers\s*$`)

// stripNavChrome drops a leading run of nav-menu lines from a converted
// markdown body. When a "### Careers" heading anchors the chrome block,
// everything up to and including that heading is removed; otherwise
// only the leading contiguous run of recognized nav terms is dropped.
func stripNavChrome(body string) string {
	if loc := careersAnchorRe.FindStringIndex(body); loc != nil && loc[0] < 400 {
		return strings.TrimLeft(body[loc[1]:], "\n \t")
	}
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if !navBlockRe.MatchString(line) {
			break
		}
		i++
	}
	if i == 0 {
		return body
	}
	return strings.TrimLeft(strings.Join(lines[i:], "\n"), "\n \t")
}
