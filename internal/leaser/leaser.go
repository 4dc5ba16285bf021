// Package leaser implements the site-leasing orchestration (spec
// section 4.3): picking one eligible site per tick and handing it to
// the caller, with the manual-trigger/lock-expiry ordering spec section
// 9 resolves.
package leaser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/db"
	"jobscraper/internal/metrics"
	"jobscraper/internal/model"
	"jobscraper/internal/store"
)

// Store is the subset of *store.Store the leaser needs.
type Store interface {
	ListSites(ctx context.Context, f db.ListSitesFilter) ([]model.Site, error)
	LeaseSite(ctx context.Context, workerID string, lockSeconds int, siteType, scrapeProvider string) (*model.Site, error)
	CompleteSite(ctx context.Context, id string) error
	FailSite(ctx context.Context, id string, cause error) error
}

// Leaser wraps the store's atomic lease call with the worker identity
// and default lease duration a scheduler tick uses.
type Leaser struct {
	store       Store
	workerID    string
	leaseSecond int
	logger      *zap.Logger
}

func New(st *store.Store, workerID string, leaseSeconds int, logger *zap.Logger) *Leaser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leaseSeconds <= 0 {
		leaseSeconds = 300
	}
	return &Leaser{store: st, workerID: workerID, leaseSecond: leaseSeconds, logger: logger}
}

// Lease claims at most one eligible site of siteType (empty = any) for
// this worker. A site with a pending manual trigger is leasable the
// same way any other site is: only once its lock has expired. Nothing
// special-cases the manual trigger into preempting a live lease (spec
// section 9's resolved open question).
func (l *Leaser) Lease(ctx context.Context, siteType, scrapeProvider string) (*model.Site, error) {
	site, err := l.store.LeaseSite(ctx, l.workerID, l.leaseSecond, siteType, scrapeProvider)
	if err != nil {
		l.logger.Warn("lease site failed", zap.Error(err))
		return nil, err
	}
	if site != nil {
		l.logger.Debug("leased site", zap.String("site_id", site.ID.String()), zap.String("name", site.Name))
		metrics.RecordSiteLeased(string(site.Type))
	}
	return site, nil
}

// Complete marks a leased site's run as successful.
func (l *Leaser) Complete(ctx context.Context, siteID string) error {
	if err := l.store.CompleteSite(ctx, siteID); err != nil {
		return err
	}
	metrics.RecordSiteCompleted()
	return nil
}

// Fail marks a leased site's run as failed, releasing its lease.
func (l *Leaser) Fail(ctx context.Context, siteID string, cause error) error {
	if err := l.store.FailSite(ctx, siteID, cause); err != nil {
		return err
	}
	metrics.RecordSiteFailed()
	return nil
}

// HasPendingManualTrigger reports whether site has a manual trigger
// request that is not yet eligible to run because its lease has not
// expired (used by callers that want to log/metric this distinctly
// from "not due yet").
func HasPendingManualTrigger(site model.Site, now time.Time) bool {
	if site.ManualTriggerAt == nil {
		return false
	}
	return site.LockExpiresAt != nil && site.LockExpiresAt.After(now)
}
