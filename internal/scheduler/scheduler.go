// Package scheduler wires the worker roles and the heuristic enricher
// to cron cadences (spec section 4.3), using the same non-overlapping
// guarantee the teacher's job runner enforces with its own semaphore:
// here it comes from cron.SkipIfStillRunning so a slow tick never
// doubles up with the next one.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobscraper/internal/config"
)

// Runnable is anything that can run one dispatch tick; *worker.GeneralWorker,
// *worker.DetailWorker and *enrich.Enricher all satisfy this shape via the
// small adapter closures Register builds.
type Runnable func(ctx context.Context)

// Scheduler wraps a *cron.Cron configured with SkipIfStillRunning and a
// recovering logger, matching the teacher's preference for a library
// dispatcher over a hand-rolled ticker loop once more than one cadence
// is involved.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{logger}),
		cron.Recover(cronLogger{logger}),
	))
	return &Scheduler{cron: c, logger: logger}
}

// Register schedules fn on spec, returning the error if the cron
// expression is malformed. An empty spec disables that cadence
// entirely, letting a deployment turn off e.g. the heuristic pass.
func (s *Scheduler) Register(name, spec string, ctx context.Context, fn Runnable) error {
	if spec == "" {
		s.logger.Info("schedule disabled", zap.String("job", name))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		fn(ctx)
		s.logger.Debug("tick complete", zap.String("job", name), zap.Duration("elapsed", time.Since(started)))
	})
	if err != nil {
		return err
	}
	s.logger.Info("schedule registered", zap.String("job", name), zap.String("cron", spec))
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop blocks until any in-flight tick finishes, matching the teacher's
// preference for a graceful drain over an abrupt process exit.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// CatchupWindow returns how far back a missed tick may still be
// considered "due", per config.ScheduleConfig.CatchupWindowHours.
func CatchupWindow(cfg config.ScheduleConfig) time.Duration {
	hours := cfg.CatchupWindowHours
	if hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}

// cronLogger adapts *zap.Logger to cron.Logger.
type cronLogger struct{ logger *zap.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
