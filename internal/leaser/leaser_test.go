package leaser

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobscraper/internal/db"
	"jobscraper/internal/model"
)

type fakeStore struct {
	leaseSite    *model.Site
	leaseErr     error
	completedID  string
	completeErr  error
	failedID     string
	failedCause  error
	failErr      error
	leaseCalls   int
	lastLockSecs int
}

func (f *fakeStore) ListSites(ctx context.Context, filter db.ListSitesFilter) ([]model.Site, error) {
	return nil, nil
}

func (f *fakeStore) LeaseSite(ctx context.Context, workerID string, lockSeconds int, siteType, scrapeProvider string) (*model.Site, error) {
	f.leaseCalls++
	f.lastLockSecs = lockSeconds
	return f.leaseSite, f.leaseErr
}

func (f *fakeStore) CompleteSite(ctx context.Context, id string) error {
	f.completedID = id
	return f.completeErr
}

func (f *fakeStore) FailSite(ctx context.Context, id string, cause error) error {
	f.failedID = id
	f.failedCause = cause
	return f.failErr
}

func TestLease_NoEligibleSiteReturnsNilWithoutError(t *testing.T) {
	fs := &fakeStore{}
	l := &Leaser{store: fs, workerID: "worker-1", leaseSecond: 300}

	site, err := l.Lease(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site != nil {
		t.Fatalf("expected nil site when store has nothing to lease, got %+v", site)
	}
	if fs.leaseCalls != 1 {
		t.Fatalf("expected exactly one LeaseSite call, got %d", fs.leaseCalls)
	}
}

func TestLease_PropagatesLeasedSiteAndLockSeconds(t *testing.T) {
	site := &model.Site{Name: "acme", Type: model.SiteTypeGreenhouse}
	fs := &fakeStore{leaseSite: site}
	l := &Leaser{store: fs, workerID: "worker-1", leaseSecond: 123}

	got, err := l.Lease(context.Background(), "greenhouse", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != site {
		t.Fatalf("expected the store's site to be returned unchanged")
	}
	if fs.lastLockSecs != 123 {
		t.Fatalf("expected the configured lease duration to be forwarded, got %d", fs.lastLockSecs)
	}
}

func TestLease_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("db down")
	fs := &fakeStore{leaseErr: wantErr}
	l := &Leaser{store: fs, workerID: "worker-1", leaseSecond: 300}

	_, err := l.Lease(context.Background(), "", "")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected lease error to propagate, got %v", err)
	}
}

func TestComplete_DelegatesToStore(t *testing.T) {
	fs := &fakeStore{}
	l := &Leaser{store: fs}

	if err := l.Complete(context.Background(), "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.completedID != "site-1" {
		t.Fatalf("expected CompleteSite to be called with site-1, got %q", fs.completedID)
	}
}

func TestFail_DelegatesCauseToStore(t *testing.T) {
	fs := &fakeStore{}
	l := &Leaser{store: fs}
	cause := errors.New("scrape timed out")

	if err := l.Fail(context.Background(), "site-1", cause); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.failedID != "site-1" || !errors.Is(fs.failedCause, cause) {
		t.Fatalf("expected FailSite to receive site id and cause, got id=%q cause=%v", fs.failedID, fs.failedCause)
	}
}

func TestHasPendingManualTrigger(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no trigger set", func(t *testing.T) {
		site := model.Site{}
		if HasPendingManualTrigger(site, now) {
			t.Fatalf("expected false when ManualTriggerAt is nil")
		}
	})

	t.Run("triggered but lock already expired", func(t *testing.T) {
		triggered := now.Add(-time.Minute)
		expired := now.Add(-time.Second)
		site := model.Site{ManualTriggerAt: &triggered, LockExpiresAt: &expired}
		if HasPendingManualTrigger(site, now) {
			t.Fatalf("expected false once the lock has expired, the site is eligible to lease normally")
		}
	})

	t.Run("triggered with lock still live", func(t *testing.T) {
		triggered := now.Add(-time.Minute)
		stillLocked := now.Add(time.Minute)
		site := model.Site{ManualTriggerAt: &triggered, LockExpiresAt: &stillLocked}
		if !HasPendingManualTrigger(site, now) {
			t.Fatalf("expected true while the existing lock has not yet expired")
		}
	})
}
