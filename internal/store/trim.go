package store

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobscraper/internal/db"
	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
)

// Size budgets from spec section 4.9. hardRecordLimitBytes is the
// store's assumed per-record ceiling; everything else is trimmed well
// below it so a retry with the aggressive settings always fits.
const (
	hardRecordLimitBytes = 8 * 1024 * 1024
	softActivityBudget   = 1 * 1024 * 1024
	maxDescriptionChars  = 8000
	defaultMaxRows       = 400
	aggressiveMaxRows    = 100
	aggressiveDescChars  = 400
)

// PersistScrape runs the full storage-adapter pipeline from spec
// section 4.6: trim the scrape to fit the store's record limit, split
// cost evenly across rows lacking a per-row cost, insert the scrape
// record (retrying once with aggressive trim on failure), ingest the
// accepted jobs, record the ignored ones, and enqueue newly discovered
// URLs. Job-ingestion failure is logged but does not fail the call —
// the scrape record itself is the call's primary deliverable.
func (s *Store) PersistScrape(ctx context.Context, result model.ScrapeResult) error {
	trimmed := trimCandidates(result.Candidates, defaultMaxRows, maxDescriptionChars)
	scrape := result.Scrape
	scrape.NormalizedCount = len(trimmed)
	splitCostAcrossRows(&scrape, trimmed)

	scrapeID, err := s.queries().InsertScrapeRecord(ctx, db.InsertScrapeParams{
		SourceURL:       scrape.SourceURL,
		Provider:        string(scrape.Provider),
		StartedAt:       scrape.StartedAt,
		CompletedAt:     scrape.CompletedAt,
		RequestPreview:  scrape.RequestPreview,
		ResponsePreview: scrape.ResponsePreview,
		NormalizedCount: int32(scrape.NormalizedCount),
		CostMicrocents:  scrape.CostMicrocents,
		Truncated:       scrape.Truncated,
	})
	if err != nil {
		s.Logger.Warn("scrape insert failed, retrying with aggressive trim",
			zap.String("source_url", scrape.SourceURL), zap.Error(err))
		trimmed = trimCandidates(result.Candidates, aggressiveMaxRows, aggressiveDescChars)
		scrape.NormalizedCount = len(trimmed)
		scrape.ResponsePreview = previewString(scrape.ResponsePreview, 2000)
		scrape.Truncated = true
		splitCostAcrossRows(&scrape, trimmed)

		scrapeID, err = s.queries().InsertScrapeRecord(ctx, db.InsertScrapeParams{
			SourceURL:       scrape.SourceURL,
			Provider:        string(scrape.Provider),
			StartedAt:       scrape.StartedAt,
			CompletedAt:     scrape.CompletedAt,
			RequestPreview:  previewString(scrape.RequestPreview, 2000),
			ResponsePreview: scrape.ResponsePreview,
			NormalizedCount: int32(scrape.NormalizedCount),
			CostMicrocents:  scrape.CostMicrocents,
			Truncated:       true,
		})
		if err != nil {
			return err
		}
	}
	_ = scrapeID
	metrics.RecordScrapePersisted(string(scrape.Provider), scrape.CostMicrocents)

	var jobs []model.Job
	var ignored []model.IgnoredJob
	for _, c := range trimmed {
		if c.Job != nil {
			jobs = append(jobs, *c.Job)
		}
		if c.Ignored != nil {
			ignored = append(ignored, *c.Ignored)
		}
	}

	if err := s.IngestJobsFromScrape(ctx, jobs, result.SiteID, scrape.SourceURL); err != nil {
		s.Logger.Warn("ingestJobsFromScrape failed (non-fatal)",
			zap.String("source_url", scrape.SourceURL), zap.Error(err))
	} else {
		metrics.RecordJobsIngested(len(jobs))
	}

	for _, ig := range ignored {
		if err := s.InsertIgnoredJob(ctx, ig); err != nil {
			s.Logger.Warn("insertIgnoredJob failed", zap.String("url", ig.URL), zap.Error(err))
		} else {
			metrics.RecordIgnoredJob(string(ig.Reason))
		}
	}

	if len(result.DiscoveredURLs) > 0 {
		if _, err := s.EnqueueScrapeUrls(ctx, EnqueueScrapeUrlsParams{
			URLs:      result.DiscoveredURLs,
			SourceURL: scrape.SourceURL,
			Provider:  scrape.Provider,
			SiteID:    result.SiteID,
		}); err != nil {
			s.Logger.Warn("enqueueScrapeUrls failed", zap.String("source_url", scrape.SourceURL), zap.Error(err))
		}
	}

	return nil
}

// IngestJobsFromScrape mirrors router:ingestJobsFromScrape. It is
// idempotent: upserting the same normalized list twice produces the
// same jobs table (spec section 8). sourceURL is the scrape's own
// listing/source URL (scrape.SourceURL), not the individual job's URL
// or apply URL — ListSeenJobUrlsForSite matches jobs back to a site by
// this column, so it must equal the value general-worker dedup queries
// with (site.RootURL).
func (s *Store) IngestJobsFromScrape(ctx context.Context, jobs []model.Job, siteID *uuid.UUID, sourceURL string) error {
	_ = siteID // jobs are keyed by source_url; site id is not a jobs-table column
	q := s.queries()
	for _, j := range jobs {
		if err := q.UpsertJob(ctx, upsertParamsForJob(j, sourceURL)); err != nil {
			return err
		}
	}
	return nil
}

// upsertParamsForJob maps a normalized job to its UpsertJob column
// values. sourceURL always wins for the source_url column — it is the
// scrape's own listing URL, never the job's own URL or apply URL, since
// ListSeenJobUrlsForSite's dedup lookup joins on this column by site
// root URL, not by any per-job URL.
func upsertParamsForJob(j model.Job, sourceURL string) db.UpsertJobParams {
	return db.UpsertJobParams{
		URL:                   j.URL,
		ApplyURL:              j.ApplyURL,
		Title:                 j.Title,
		Company:               j.Company,
		Description:           j.Description,
		Location:              j.Location,
		Locations:             j.Locations,
		Country:               j.Country,
		Remote:                j.Remote,
		Level:                 string(j.Level),
		TotalCompensation:     j.TotalCompensation,
		CurrencyCode:          j.CurrencyCode,
		CompensationUnknown:   j.CompensationUnknown,
		CompensationReason:    j.CompensationReason,
		PostedAtMs:            j.PostedAtMs,
		ScrapedAtMs:           j.ScrapedAtMs,
		ScrapedWith:           string(j.ScrapedWith),
		ScrapedCostMicrocents: j.ScrapedCostMicrocents,
		SourceURL:             sourceURL,
	}
}

// InsertIgnoredJob mirrors router:insertIgnoredJob.
func (s *Store) InsertIgnoredJob(ctx context.Context, ig model.IgnoredJob) error {
	return s.queries().InsertIgnoredJob(ctx, db.InsertIgnoredJobParams{
		URL:       ig.URL,
		Title:     ig.Title,
		Reason:    string(ig.Reason),
		SourceURL: ig.SourceURL,
		Provider:  string(ig.Provider),
	})
}

// InsertScrapeError mirrors router:insertScrapeError.
func (s *Store) InsertScrapeError(ctx context.Context, sourceURL string, provider model.Provider, rawLength int, message string) error {
	return s.queries().InsertScrapeError(ctx, db.InsertScrapeErrorParams{
		SourceURL: sourceURL,
		Provider:  string(provider),
		RawLength: rawLength,
		Message:   message,
	})
}

// trimCandidates caps the candidate list at maxRows and truncates job
// descriptions to maxDescChars, matching the spec's "cap normalized rows,
// truncate descriptions" trim step.
func trimCandidates(candidates []model.Candidate, maxRows, maxDescChars int) []model.Candidate {
	if maxRows > 0 && len(candidates) > maxRows {
		candidates = candidates[:maxRows]
	}
	out := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		if c.Job != nil {
			j := *c.Job
			j.Description = previewString(j.Description, maxDescChars)
			out[i] = model.Candidate{Job: &j}
		} else {
			out[i] = c
		}
	}
	return out
}

// splitCostAcrossRows divides scrape.CostMicrocents evenly across rows
// whose own ScrapedCostMicrocents is zero, matching "split cost evenly
// across rows when no per-row cost is present".
func splitCostAcrossRows(scrape *model.Scrape, candidates []model.Candidate) {
	if scrape.CostMicrocents <= 0 {
		return
	}
	var needsSplit int
	for _, c := range candidates {
		if c.Job != nil && c.Job.ScrapedCostMicrocents == 0 {
			needsSplit++
		}
	}
	if needsSplit == 0 {
		return
	}
	share := scrape.CostMicrocents / int64(needsSplit)
	for _, c := range candidates {
		if c.Job != nil && c.Job.ScrapedCostMicrocents == 0 {
			c.Job.ScrapedCostMicrocents = share
		}
	}
}

func previewString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
