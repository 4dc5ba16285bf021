package store

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"jobscraper/internal/db"
	"jobscraper/internal/model"
)

// ListPendingJobDetails mirrors router:listPendingJobDetails.
func (s *Store) ListPendingJobDetails(ctx context.Context, maxAttempts, currentVersion int32, limit int) ([]model.Job, error) {
	rows, err := s.queries().ListPendingJobDetails(ctx, db.PendingJobDetailsFilter{
		MaxAttempts:    maxAttempts,
		CurrentVersion: currentVersion,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Job, 0, len(rows))
	for _, r := range rows {
		out = append(out, jobFromRow(r))
	}
	return out, nil
}

// CountPendingJobDetails mirrors router:countPendingJobDetails.
func (s *Store) CountPendingJobDetails(ctx context.Context, maxAttempts, currentVersion int32) (int64, error) {
	return s.queries().CountPendingJobDetails(ctx, db.PendingJobDetailsFilter{
		MaxAttempts:    maxAttempts,
		CurrentVersion: currentVersion,
	})
}

// ListJobDetailConfigs mirrors router:listJobDetailConfigs.
func (s *Store) ListJobDetailConfigs(ctx context.Context, domain string, field model.HeuristicField) ([]model.HeuristicConfig, error) {
	rows, err := s.queries().ListJobDetailConfigs(ctx, domain, string(field))
	if err != nil {
		return nil, err
	}
	out := make([]model.HeuristicConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.HeuristicConfig{Domain: r.Domain, Field: model.HeuristicField(r.Field), Regex: r.Regex})
	}
	return out, nil
}

// RecordJobDetailHeuristic mirrors router:recordJobDetailHeuristic. The
// enricher computes which regex matched (a pure function, spec section 9
// "heuristic regex library learning") and this call is the caller's
// explicit side effect of persisting it.
func (s *Store) RecordJobDetailHeuristic(ctx context.Context, cfg model.HeuristicConfig) error {
	return s.queries().RecordJobDetailHeuristic(ctx, cfg.Domain, string(cfg.Field), cfg.Regex)
}

// UpdateJobWithHeuristic mirrors router:updateJobWithHeuristic.
type UpdateJobWithHeuristicParams struct {
	URL                 string
	Location            string
	Locations           []string
	Country             string
	TotalCompensation   int64
	CurrencyCode        string
	CompensationUnknown bool
	HeuristicVersion    int32
}

func (s *Store) UpdateJobWithHeuristic(ctx context.Context, p UpdateJobWithHeuristicParams) error {
	return s.queries().UpdateJobWithHeuristic(ctx, db.UpdateJobWithHeuristicParams{
		URL:                 p.URL,
		Location:            p.Location,
		Locations:           p.Locations,
		Country:             p.Country,
		TotalCompensation:   p.TotalCompensation,
		CurrencyCode:        p.CurrencyCode,
		CompensationUnknown: p.CompensationUnknown,
		HeuristicVersion:    p.HeuristicVersion,
		HeuristicLastTried:  time.Now().UTC().UnixMilli(),
	})
}

func jobFromRow(r db.Job) model.Job {
	var locations []string
	_ = json.Unmarshal(r.Locations, &locations)
	return model.Job{
		URL:                   r.URL,
		ApplyURL:              r.ApplyURL,
		Title:                 r.Title,
		Company:               r.Company,
		Description:           r.Description,
		Location:              r.Location,
		Locations:             locations,
		Country:               r.Country,
		Remote:                r.Remote,
		Level:                 model.Level(r.Level),
		TotalCompensation:     r.TotalCompensation,
		CurrencyCode:          r.CurrencyCode,
		CompensationUnknown:   r.CompensationUnknown,
		CompensationReason:    r.CompensationReason,
		PostedAtMs:            r.PostedAtMs,
		ScrapedAtMs:           r.ScrapedAtMs,
		ScrapedWith:           model.Provider(r.ScrapedWith),
		ScrapedCostMicrocents: r.ScrapedCostMicrocents,
		HeuristicAttempts:     r.HeuristicAttempts,
		HeuristicVersion:      r.HeuristicVersion,
		HeuristicLastTriedMs:  r.HeuristicLastTriedMs,
	}
}

// RecordWorkflowRun mirrors temporal:recordWorkflowRun. It is a
// best-effort log: callers must swallow cancellation/error rather than
// fail the operation they are reporting on (spec section 5/7).
func (s *Store) RecordWorkflowRun(ctx context.Context, name, status, detail string, startedAt, finishedAt time.Time) {
	if err := s.queries().RecordWorkflowRun(ctx, db.RecordWorkflowRunParams{
		Name: name, Status: status, Detail: detail, StartedAt: startedAt, FinishedAt: finishedAt,
	}); err != nil {
		s.Logger.Debug("recordWorkflowRun failed (best-effort)", zap.Error(err))
	}
}
