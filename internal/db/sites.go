package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListSitesFilter narrows ListSites to enabled sites of a given type.
type ListSitesFilter struct {
	Type    string
	Enabled *bool
}

func (q *Queries) ListSites(ctx context.Context, f ListSitesFilter) ([]Site, error) {
	query := `SELECT id, name, root_url, type, url_pattern, preferred_provider, enabled,
		schedule_ref, last_run_at, locked_by, lock_expires_at, manual_trigger_at,
		completion_count, failure_count, created_at, updated_at FROM sites`
	var conds []string
	var args []any
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Enabled != nil {
		args = append(args, *f.Enabled)
		conds = append(conds, fmt.Sprintf("enabled = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.RootURL, &s.Type, &s.URLPattern,
			&s.PreferredProvider, &s.Enabled, &s.ScheduleRef, &s.LastRunAt, &s.LockedBy,
			&s.LockExpiresAt, &s.ManualTriggerAt, &s.CompletionCount, &s.FailureCount,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LeaseSiteParams controls the lease-acquire query.
type LeaseSiteParams struct {
	WorkerID      string
	LockSeconds   int
	SiteType      string
	ScrapeProvider string
	Now           time.Time
}

// LeaseSite atomically claims at most one eligible site, stamping
// locked_by/lock_expires_at, and returns it. A nil Site with no error
// means nothing was eligible.
func (q *Queries) LeaseSite(ctx context.Context, p LeaseSiteParams) (*Site, error) {
	query := `
		UPDATE sites SET locked_by = $1, lock_expires_at = $2, updated_at = $2
		WHERE id = (
			SELECT id FROM sites
			WHERE enabled = true
			  AND (lock_expires_at IS NULL OR lock_expires_at < $3)
			  AND ($4 = '' OR type = $4)
			  AND ($5 = '' OR preferred_provider = $5 OR preferred_provider = '')
			ORDER BY
				CASE WHEN manual_trigger_at IS NOT NULL THEN 0 ELSE 1 END,
				last_run_at ASC NULLS FIRST
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, name, root_url, type, url_pattern, preferred_provider, enabled,
			schedule_ref, last_run_at, locked_by, lock_expires_at, manual_trigger_at,
			completion_count, failure_count, created_at, updated_at`

	lockUntil := p.Now.Add(time.Duration(p.LockSeconds) * time.Second)
	row := q.db.QueryRowContext(ctx, query, p.WorkerID, lockUntil, p.Now, p.SiteType, p.ScrapeProvider)

	var s Site
	err := row.Scan(&s.ID, &s.Name, &s.RootURL, &s.Type, &s.URLPattern,
		&s.PreferredProvider, &s.Enabled, &s.ScheduleRef, &s.LastRunAt, &s.LockedBy,
		&s.LockExpiresAt, &s.ManualTriggerAt, &s.CompletionCount, &s.FailureCount,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// looksLikeStoreID reports whether id has the shape of a store-native
// identifier (a UUID), so complete/fail can silently ignore ids that
// were never issued by the store (e.g. in tests or manual flows).
func looksLikeStoreID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CompleteSite clears a site's lock and bumps its completion counter. An
// id that does not look store-native is a silent no-op.
func (q *Queries) CompleteSite(ctx context.Context, id string, now time.Time) error {
	if !looksLikeStoreID(id) {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE sites SET locked_by = '', lock_expires_at = NULL, manual_trigger_at = NULL,
			last_run_at = $2, completion_count = completion_count + 1, updated_at = $2
		WHERE id = $1`, id, now)
	return err
}

// FailSite clears a site's lock and bumps its failure counter. An id
// that does not look store-native is a silent no-op.
func (q *Queries) FailSite(ctx context.Context, id string, now time.Time) error {
	if !looksLikeStoreID(id) {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE sites SET locked_by = '', lock_expires_at = NULL, manual_trigger_at = NULL,
			failure_count = failure_count + 1, updated_at = $2
		WHERE id = $1`, id, now)
	return err
}
