package db

import (
	"context"
	"encoding/json"
)

// FindExistingJobUrls returns the subset of candidateUrls that already
// exist as rows in the jobs table.
func (q *Queries) FindExistingJobUrls(ctx context.Context, candidateUrls []string) (map[string]bool, error) {
	out := make(map[string]bool, len(candidateUrls))
	if len(candidateUrls) == 0 {
		return out, nil
	}

	rows, err := q.db.QueryContext(ctx, `SELECT url FROM jobs WHERE url = ANY($1)`, candidateUrls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out[u] = true
	}
	return out, rows.Err()
}

// ListSeenJobUrlsForSiteFilter narrows listSeenJobUrlsForSite.
type ListSeenJobUrlsForSiteFilter struct {
	SourceURL string
	Pattern   string
}

// ListSeenJobUrlsForSite returns every job url previously ingested for
// sourceURL (optionally further scoped by pattern).
func (q *Queries) ListSeenJobUrlsForSite(ctx context.Context, f ListSeenJobUrlsForSiteFilter) (map[string]bool, error) {
	query := `SELECT url FROM jobs WHERE source_url = $1`
	args := []any{f.SourceURL}
	if f.Pattern != "" {
		query += ` AND (apply_url LIKE $2 OR url LIKE $2)`
		args = append(args, "%"+f.Pattern+"%")
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out[u] = true
	}
	return out, rows.Err()
}

// UpsertJobParams is the insert/update shape for ingestJobsFromScrape.
type UpsertJobParams struct {
	URL                   string
	ApplyURL              string
	Title                 string
	Company               string
	Description           string
	Location              string
	Locations             []string
	Country               string
	Remote                bool
	Level                 string
	TotalCompensation     int64
	CurrencyCode          string
	CompensationUnknown   bool
	CompensationReason    string
	PostedAtMs            int64
	ScrapedAtMs           int64
	ScrapedWith           string
	ScrapedCostMicrocents int64
	SourceURL             string
}

// UpsertJob inserts a job row or, on conflicting url, overwrites every
// field except the heuristic-enrichment bookkeeping columns, which are
// left untouched so a re-scrape does not erase prior enrichment.
func (q *Queries) UpsertJob(ctx context.Context, p UpsertJobParams) error {
	locations, err := json.Marshal(p.Locations)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (
			url, apply_url, title, company, description, location, locations, country,
			remote, level, total_compensation, currency_code, compensation_unknown,
			compensation_reason, posted_at_ms, scraped_at_ms, scraped_with,
			scraped_cost_microcents, source_url, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19, now())
		ON CONFLICT (url) DO UPDATE SET
			apply_url = EXCLUDED.apply_url,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			locations = EXCLUDED.locations,
			country = EXCLUDED.country,
			remote = EXCLUDED.remote,
			level = EXCLUDED.level,
			total_compensation = EXCLUDED.total_compensation,
			currency_code = EXCLUDED.currency_code,
			compensation_unknown = EXCLUDED.compensation_unknown,
			compensation_reason = EXCLUDED.compensation_reason,
			posted_at_ms = EXCLUDED.posted_at_ms,
			scraped_at_ms = EXCLUDED.scraped_at_ms,
			scraped_with = EXCLUDED.scraped_with,
			scraped_cost_microcents = EXCLUDED.scraped_cost_microcents,
			source_url = EXCLUDED.source_url,
			updated_at = now()`,
		p.URL, p.ApplyURL, p.Title, p.Company, p.Description, p.Location, locations, p.Country,
		p.Remote, p.Level, p.TotalCompensation, p.CurrencyCode, p.CompensationUnknown,
		p.CompensationReason, p.PostedAtMs, p.ScrapedAtMs, p.ScrapedWith,
		p.ScrapedCostMicrocents, p.SourceURL)
	return err
}

// GetJobByURL fetches one job row, or (Job{}, sql.ErrNoRows) if absent.
func (q *Queries) GetJobByURL(ctx context.Context, url string) (Job, error) {
	var j Job
	row := q.db.QueryRowContext(ctx, `
		SELECT url, apply_url, title, company, description, location, locations, country,
			remote, level, total_compensation, currency_code, compensation_unknown,
			compensation_reason, posted_at_ms, scraped_at_ms, scraped_with,
			scraped_cost_microcents, heuristic_attempts, heuristic_version,
			heuristic_last_tried_ms, source_url, created_at, updated_at
		FROM jobs WHERE url = $1`, url)
	err := row.Scan(&j.URL, &j.ApplyURL, &j.Title, &j.Company, &j.Description, &j.Location,
		&j.Locations, &j.Country, &j.Remote, &j.Level, &j.TotalCompensation, &j.CurrencyCode,
		&j.CompensationUnknown, &j.CompensationReason, &j.PostedAtMs, &j.ScrapedAtMs,
		&j.ScrapedWith, &j.ScrapedCostMicrocents, &j.HeuristicAttempts, &j.HeuristicVersion,
		&j.HeuristicLastTriedMs, &j.SourceURL, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// PendingJobDetailsFilter narrows listPendingJobDetails to rows the
// heuristic enricher should reparse: missing location or an unknown
// compensation, below the attempts cap, stale against the current
// heuristic version.
type PendingJobDetailsFilter struct {
	MaxAttempts      int32
	CurrentVersion   int32
	Limit            int
}

func (q *Queries) ListPendingJobDetails(ctx context.Context, f PendingJobDetailsFilter) ([]Job, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT url, apply_url, title, company, description, location, locations, country,
			remote, level, total_compensation, currency_code, compensation_unknown,
			compensation_reason, posted_at_ms, scraped_at_ms, scraped_with,
			scraped_cost_microcents, heuristic_attempts, heuristic_version,
			heuristic_last_tried_ms, source_url, created_at, updated_at
		FROM jobs
		WHERE (location = '' OR compensation_unknown)
		  AND heuristic_attempts < $1
		  AND heuristic_version < $2
		ORDER BY heuristic_last_tried_ms ASC, created_at ASC
		LIMIT $3`, f.MaxAttempts, f.CurrentVersion, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.URL, &j.ApplyURL, &j.Title, &j.Company, &j.Description, &j.Location,
			&j.Locations, &j.Country, &j.Remote, &j.Level, &j.TotalCompensation, &j.CurrencyCode,
			&j.CompensationUnknown, &j.CompensationReason, &j.PostedAtMs, &j.ScrapedAtMs,
			&j.ScrapedWith, &j.ScrapedCostMicrocents, &j.HeuristicAttempts, &j.HeuristicVersion,
			&j.HeuristicLastTriedMs, &j.SourceURL, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountPendingJobDetails mirrors ListPendingJobDetails' predicate but
// returns a count, used for operator dashboards/telemetry.
func (q *Queries) CountPendingJobDetails(ctx context.Context, f PendingJobDetailsFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT count(*) FROM jobs
		WHERE (location = '' OR compensation_unknown)
		  AND heuristic_attempts < $1
		  AND heuristic_version < $2`, f.MaxAttempts, f.CurrentVersion).Scan(&n)
	return n, err
}

// UpdateJobWithHeuristicParams is the mutation shape for
// updateJobWithHeuristic.
type UpdateJobWithHeuristicParams struct {
	URL                 string
	Location            string
	Locations           []string
	Country             string
	TotalCompensation   int64
	CurrencyCode        string
	CompensationUnknown bool
	HeuristicVersion    int32
	HeuristicLastTried  int64
}

func (q *Queries) UpdateJobWithHeuristic(ctx context.Context, p UpdateJobWithHeuristicParams) error {
	locations, err := json.Marshal(p.Locations)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		UPDATE jobs SET
			location = CASE WHEN $2 = '' THEN location ELSE $2 END,
			locations = CASE WHEN $2 = '' THEN locations ELSE $3 END,
			country = CASE WHEN $4 = '' THEN country ELSE $4 END,
			total_compensation = CASE WHEN compensation_unknown AND $5 <> 0 THEN $5 ELSE total_compensation END,
			currency_code = CASE WHEN compensation_unknown AND $5 <> 0 THEN $6 ELSE currency_code END,
			compensation_unknown = compensation_unknown AND $7,
			heuristic_attempts = heuristic_attempts + 1,
			heuristic_version = $8,
			heuristic_last_tried_ms = $9,
			updated_at = now()
		WHERE url = $1`,
		p.URL, p.Location, locations, p.Country, p.TotalCompensation, p.CurrencyCode,
		p.CompensationUnknown, p.HeuristicVersion, p.HeuristicLastTried)
	return err
}

// ListJobDetailConfigs returns the learned regex configs for a domain,
// newest first, so the enricher prefers the most recently confirmed
// pattern.
func (q *Queries) ListJobDetailConfigs(ctx context.Context, domain string, field string) ([]HeuristicConfig, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT domain, field, regex, created_at FROM heuristic_configs
		WHERE domain = $1 AND field = $2
		ORDER BY created_at DESC`, domain, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HeuristicConfig
	for rows.Next() {
		var c HeuristicConfig
		if err := rows.Scan(&c.Domain, &c.Field, &c.Regex, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordJobDetailHeuristic records a regex that successfully matched a
// description for (domain, field), so future runs try it first. Idempotent
// on the (domain, field, regex) primary key.
func (q *Queries) RecordJobDetailHeuristic(ctx context.Context, domain, field, regex string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO heuristic_configs (domain, field, regex) VALUES ($1, $2, $3)
		ON CONFLICT (domain, field, regex) DO NOTHING`, domain, field, regex)
	return err
}
