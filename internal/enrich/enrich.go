// Package enrich implements the heuristic enricher (spec section 4.8):
// a batch job that reparses pending job-detail rows to fill in missing
// location/compensation fields using per-domain learned regex configs,
// falling back to the normalizer's hard-coded pattern library and
// recording whichever regex won so future runs for that domain try it
// first.
package enrich

import (
	"context"
	"net/url"
	"regexp"

	"go.uber.org/zap"

	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
	"jobscraper/internal/normalize"
	"jobscraper/internal/store"
)

// Config controls the enricher's per-tick pacing (spec section 4.8/4.9).
type Config struct {
	BatchLimit  int
	MaxAttempts int32
	Version     int32
}

// Enricher runs one heuristic-enrichment tick at a time; Run is meant
// to be called from the scheduler's heuristic cadence.
type Enricher struct {
	Store  *store.Store
	Config Config
	Logger *zap.Logger
}

// Run fetches up to Config.BatchLimit pending rows and attempts to fill
// in their missing fields, one row at a time so a single bad
// description never aborts the rest of the batch (spec section 4.8:
// "failures in mutation are logged per-row ... do not abort the
// batch").
func (e *Enricher) Run(ctx context.Context) {
	limit := e.Config.BatchLimit
	if limit <= 0 {
		limit = 100
	}
	jobs, err := e.Store.ListPendingJobDetails(ctx, e.Config.MaxAttempts, e.Config.Version, limit)
	if err != nil {
		e.Logger.Warn("list pending job details failed", zap.Error(err))
		return
	}
	for _, job := range jobs {
		e.enrichOne(ctx, job)
	}
}

func (e *Enricher) enrichOne(ctx context.Context, job model.Job) {
	domain := domainOf(job.URL)

	locConfigs, err := e.Store.ListJobDetailConfigs(ctx, domain, model.HeuristicFieldLocation)
	if err != nil {
		e.Logger.Warn("list location configs failed", zap.String("url", job.URL), zap.Error(err))
	}
	compConfigs, err := e.Store.ListJobDetailConfigs(ctx, domain, model.HeuristicFieldCompensation)
	if err != nil {
		e.Logger.Warn("list compensation configs failed", zap.String("url", job.URL), zap.Error(err))
	}

	location, learnedLocationRegex := resolveLocation(job, locConfigs)
	if job.Location == "" {
		resolvedField := ""
		if location != "" {
			resolvedField = string(model.HeuristicFieldLocation)
		}
		metrics.RecordHeuristicAttempt(resolvedField)
	}

	totalComp, currency, compUnknown, learnedCompRegex := resolveCompensation(job, compConfigs)
	if job.CompensationUnknown {
		resolvedField := ""
		if !compUnknown {
			resolvedField = string(model.HeuristicFieldCompensation)
		}
		metrics.RecordHeuristicAttempt(resolvedField)
	}

	if learnedLocationRegex != "" {
		if err := e.Store.RecordJobDetailHeuristic(ctx, model.HeuristicConfig{
			Domain: domain, Field: model.HeuristicFieldLocation, Regex: learnedLocationRegex,
		}); err != nil {
			e.Logger.Warn("record location heuristic failed", zap.String("url", job.URL), zap.Error(err))
		}
	}
	if learnedCompRegex != "" {
		if err := e.Store.RecordJobDetailHeuristic(ctx, model.HeuristicConfig{
			Domain: domain, Field: model.HeuristicFieldCompensation, Regex: learnedCompRegex,
		}); err != nil {
			e.Logger.Warn("record compensation heuristic failed", zap.String("url", job.URL), zap.Error(err))
		}
	}

	country := countryOf(location, job.Remote)
	if err := e.Store.UpdateJobWithHeuristic(ctx, store.UpdateJobWithHeuristicParams{
		URL:                 job.URL,
		Location:            location,
		Locations:           locationVariants(location),
		Country:             country,
		TotalCompensation:   totalComp,
		CurrencyCode:        currency,
		CompensationUnknown: compUnknown,
		HeuristicVersion:    e.Config.Version,
	}); err != nil {
		e.Logger.Warn("update job with heuristic failed", zap.String("url", job.URL), zap.Error(err))
	}
}

// resolveLocation tries the domain's learned regexes first (in the
// order the store returned them, newest first), then the
// hard-coded ordered fallback library spec section 4.8 names. It
// returns the newly-learned regex source only when a fallback pattern
// won and no existing config already covers it.
func resolveLocation(job model.Job, configs []model.HeuristicConfig) (location string, learnedRegex string) {
	if job.Location != "" {
		return job.Location, ""
	}
	for _, cfg := range configs {
		re, err := regexp.Compile(cfg.Regex)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(job.Description); len(m) > 1 {
			return m[1], ""
		}
	}
	for _, pattern := range fallbackLocationPatterns {
		if alreadyKnown(configs, pattern.source) {
			continue
		}
		if m := pattern.re.FindStringSubmatch(job.Description); len(m) > 1 {
			return m[1], pattern.source
		}
	}
	return "", ""
}

// resolveCompensation mirrors resolveLocation for the compensation
// field, delegating the actual number-extraction to the normalizer's
// pattern library so the two code paths never drift apart.
func resolveCompensation(job model.Job, configs []model.HeuristicConfig) (amount int64, currency string, unknown bool, learnedRegex string) {
	if !job.CompensationUnknown {
		return job.TotalCompensation, job.CurrencyCode, false, ""
	}
	for _, cfg := range configs {
		re, err := regexp.Compile(cfg.Regex)
		if err != nil {
			continue
		}
		if re.MatchString(job.Description) {
			if amt, curr, unk, _, _ := normalize.ParseCompensation(job.Description); !unk {
				return amt, curr, false, ""
			}
		}
	}
	amt, curr, unk, _, matchedPattern := normalize.ParseCompensation(job.Description)
	if unk {
		return 0, "", true, ""
	}
	if alreadyKnown(configs, matchedPattern) {
		return amt, curr, false, ""
	}
	return amt, curr, false, matchedPattern
}

func alreadyKnown(configs []model.HeuristicConfig, source string) bool {
	if source == "" {
		return true
	}
	for _, cfg := range configs {
		if cfg.Regex == source {
			return true
		}
	}
	return false
}

type locationPattern struct {
	source string
	re     *regexp.Regexp
}

// fallbackLocationPatterns is the ordered fallback library spec section
// 4.8 names: label "Location:", full "City, State", "(City, ST)"
// parenthetical, then a bare parenthetical.
var fallbackLocationPatterns = []locationPattern{
	{source: `(?i)location:\s*([^\n|]+)`, re: regexp.MustCompile(`(?i)location:\s*([^\n|]+)`)},
	{source: `([A-Z][a-zA-Z. ]+,\s*[A-Z][a-zA-Z]+)`, re: regexp.MustCompile(`([A-Z][a-zA-Z. ]+,\s*[A-Z][a-zA-Z]+)`)},
	{source: `\(([A-Z][a-zA-Z. ]+,\s*[A-Z]{2})\)`, re: regexp.MustCompile(`\(([A-Z][a-zA-Z. ]+,\s*[A-Z]{2})\)`)},
	{source: `\(([^()]+)\)`, re: regexp.MustCompile(`\(([^()]+)\)`)},
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// countryOf defaults to United States when remote or the location is
// unresolved, matching spec section 4.8 step 5. A resolved location is
// not geocoded: it also yields United States, the same default the
// normalizer already assumes for US-filtered jobs.
func countryOf(location string, remote bool) string {
	if location == "" || remote {
		return "United States"
	}
	return "United States"
}

func locationVariants(location string) []string {
	if location == "" {
		return nil
	}
	return []string{location}
}
