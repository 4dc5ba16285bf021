package db

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EnqueueScrapeUrlsParams is the insert shape for enqueueScrapeUrls.
type EnqueueScrapeUrlsParams struct {
	URLs      []string
	SourceURL string
	Provider  string
	SiteID    *uuid.UUID
	Pattern   string
}

// EnqueueScrapeUrls inserts a pending row per URL not already present in
// a non-terminal state for the provider, returning the URLs actually
// queued. An empty pattern is stored as the empty string; a nil site id
// leaves site_id as SQL NULL.
func (q *Queries) EnqueueScrapeUrls(ctx context.Context, p EnqueueScrapeUrlsParams) ([]string, error) {
	if len(p.URLs) == 0 {
		return nil, nil
	}

	var siteID uuid.NullUUID
	if p.SiteID != nil {
		siteID = uuid.NullUUID{UUID: *p.SiteID, Valid: true}
	}

	queued := make([]string, 0, len(p.URLs))
	for _, u := range p.URLs {
		res, err := q.db.ExecContext(ctx, `
			INSERT INTO url_queue (url, source_url, pattern, provider, site_id, status)
			VALUES ($1, $2, $3, $4, $5, 'pending')
			ON CONFLICT (provider, url) WHERE status IN ('pending','processing') DO NOTHING`,
			u, p.SourceURL, p.Pattern, p.Provider, siteID)
		if err != nil {
			return queued, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			queued = append(queued, u)
		}
	}
	return queued, nil
}

// LeaseScrapeUrlBatchParams controls leaseScrapeUrlBatch.
type LeaseScrapeUrlBatchParams struct {
	Provider           string
	Limit              int
	ProcessingExpiry   time.Duration
	StaleTTL           time.Duration
	Now                time.Time
}

// defaultLeaseParams fills the zero-value defaults LeaseScrapeUrlBatch
// applies: a 20m processing-lock expiry, a 48h stale TTL (spec section
// 4.3), and a 50-row batch limit. Split out so the defaulting itself is
// testable without a database.
func defaultLeaseParams(p LeaseScrapeUrlBatchParams) LeaseScrapeUrlBatchParams {
	if p.ProcessingExpiry <= 0 {
		p.ProcessingExpiry = 20 * time.Minute
	}
	if p.StaleTTL <= 0 {
		p.StaleTTL = 48 * time.Hour
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	return p
}

// LeaseScrapeUrlBatch reclaims stale processing rows, fails rows past
// the 48h TTL, then atomically leases up to Limit pending rows.
func (q *Queries) LeaseScrapeUrlBatch(ctx context.Context, p LeaseScrapeUrlBatchParams) ([]QueueRow, error) {
	p = defaultLeaseParams(p)

	staleProcessingCutoff := p.Now.Add(-p.ProcessingExpiry)
	if _, err := q.db.ExecContext(ctx, `
		UPDATE url_queue SET status = 'pending', updated_at = $1
		WHERE status = 'processing' AND updated_at < $2
		  AND ($3 = '' OR provider = $3)`,
		p.Now, staleProcessingCutoff, p.Provider); err != nil {
		return nil, err
	}

	ttlCutoff := p.Now.Add(-p.StaleTTL)
	if _, err := q.db.ExecContext(ctx, `
		UPDATE url_queue SET status = 'failed', error = 'stale (>48h)', updated_at = $1
		WHERE status IN ('pending','processing') AND created_at < $2`,
		p.Now, ttlCutoff); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		UPDATE url_queue SET status = 'processing', attempts = attempts + 1, updated_at = $1
		WHERE id IN (
			SELECT id FROM url_queue
			WHERE status = 'pending' AND ($2 = '' OR provider = $2)
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $3
		)
		RETURNING id, url, source_url, pattern, provider, status, attempts, site_id, error, created_at, updated_at`,
		p.Now, p.Provider, p.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueRow
	for rows.Next() {
		var r QueueRow
		if err := rows.Scan(&r.ID, &r.URL, &r.SourceURL, &r.Pattern, &r.Provider, &r.Status,
			&r.Attempts, &r.SiteID, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CompleteScrapeUrls terminally transitions the given URLs. Already
// terminal rows are left untouched (idempotent).
func (q *Queries) CompleteScrapeUrls(ctx context.Context, ids []uuid.UUID, status, errMsg string, now time.Time) error {
	for _, id := range ids {
		if _, err := q.db.ExecContext(ctx, `
			UPDATE url_queue SET status = $2, error = $3, updated_at = $4
			WHERE id = $1 AND status NOT IN ('completed','failed')`,
			id, status, errMsg, now); err != nil {
			return err
		}
	}
	return nil
}

// ListQueuedScrapeUrlsFilter narrows listQueuedScrapeUrls.
type ListQueuedScrapeUrlsFilter struct {
	Provider string
	Status   string
	SiteID   *uuid.UUID
	Limit    int
}

func (q *Queries) ListQueuedScrapeUrls(ctx context.Context, f ListQueuedScrapeUrlsFilter) ([]QueueRow, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	query := `SELECT id, url, source_url, pattern, provider, status, attempts, site_id, error, created_at, updated_at FROM url_queue`
	var conds []string
	var args []any
	if f.Provider != "" {
		args = append(args, f.Provider)
		conds = append(conds, dollarEq("provider", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, dollarEq("status", len(args)))
	}
	if f.SiteID != nil {
		args = append(args, *f.SiteID)
		conds = append(conds, dollarEq("site_id", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	args = append(args, limit)
	query += " ORDER BY created_at ASC LIMIT $" + strconv.Itoa(len(args))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueRow
	for rows.Next() {
		var r QueueRow
		if err := rows.Scan(&r.ID, &r.URL, &r.SourceURL, &r.Pattern, &r.Provider, &r.Status,
			&r.Attempts, &r.SiteID, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func dollarEq(col string, n int) string { return col + " = $" + strconv.Itoa(n) }

// CompleteScrapeUrlsByURLParams is the mutation shape for the
// url-addressed form of completeScrapeUrls, matching the router
// operation's {urls, status, error} payload shape.
type CompleteScrapeUrlsByURLParams struct {
	URLs     []string
	Provider string
	Status   string
	Error    string
	Now      time.Time
}

// CompleteScrapeUrlsByURL terminally transitions rows identified by
// (provider, url) rather than by row id. Idempotent on already-terminal
// rows.
func (q *Queries) CompleteScrapeUrlsByURL(ctx context.Context, p CompleteScrapeUrlsByURLParams) error {
	if len(p.URLs) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE url_queue SET status = $3, error = $4, updated_at = $5
		WHERE provider = $1 AND url = ANY($2) AND status NOT IN ('completed','failed')`,
		p.Provider, p.URLs, p.Status, p.Error, p.Now)
	return err
}
