package db

import (
	"testing"
	"time"
)

func TestDefaultLeaseParams_FillsZeroValues(t *testing.T) {
	p := defaultLeaseParams(LeaseScrapeUrlBatchParams{})

	if p.ProcessingExpiry != 20*time.Minute {
		t.Fatalf("ProcessingExpiry default = %v, want 20m", p.ProcessingExpiry)
	}
	if p.StaleTTL != 48*time.Hour {
		t.Fatalf("StaleTTL default = %v, want 48h", p.StaleTTL)
	}
	if p.Limit != 50 {
		t.Fatalf("Limit default = %d, want 50", p.Limit)
	}
}

func TestDefaultLeaseParams_PreservesExplicitValues(t *testing.T) {
	in := LeaseScrapeUrlBatchParams{
		ProcessingExpiry: 5 * time.Minute,
		StaleTTL:         time.Hour,
		Limit:            10,
	}
	p := defaultLeaseParams(in)

	if p.ProcessingExpiry != 5*time.Minute {
		t.Fatalf("ProcessingExpiry should not be overridden, got %v", p.ProcessingExpiry)
	}
	if p.StaleTTL != time.Hour {
		t.Fatalf("StaleTTL should not be overridden, got %v", p.StaleTTL)
	}
	if p.Limit != 10 {
		t.Fatalf("Limit should not be overridden, got %d", p.Limit)
	}
}

func TestDefaultLeaseParams_NegativeValuesFallBackToDefaults(t *testing.T) {
	p := defaultLeaseParams(LeaseScrapeUrlBatchParams{ProcessingExpiry: -1, StaleTTL: -1, Limit: -1})

	if p.ProcessingExpiry != 20*time.Minute || p.StaleTTL != 48*time.Hour || p.Limit != 50 {
		t.Fatalf("negative inputs should be treated like zero values, got %+v", p)
	}
}
