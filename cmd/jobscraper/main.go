// Command jobscraper is the single-binary composition root: it loads
// config, runs migrations, wires every component via platform.Build,
// registers the four cron cadences, and serves the webhook ingress
// until signalled to shut down. Mirrors the teacher's cmd/raito-api/main.go
// shape, generalized from one HTTP API process to a scheduler-plus-webhook
// process.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/internal/migrate"
	"jobscraper/internal/platform"
	"jobscraper/internal/scheduler"
	"jobscraper/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config/runtime.yaml", "path to config file")
	addr := flag.String("addr", ":8080", "webhook ingress listen address")
	dev := flag.Bool("dev", false, "use human-readable console logging")
	flag.Parse()

	logger := logging.Must(*dev)
	defer logger.Sync()

	cfg := config.Load(*configPath)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	if err := migrate.Run(cfg.Database.DSN, "", logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("open db failed", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	deps := platform.Build(cfg, db, logger)

	reconciler := &webhook.Reconciler{
		Store:     deps.Store,
		Firecrawl: deps.Providers.Firecrawl,
		Deps:      deps.NormalizeDeps,
		Logger:    logger,
	}
	server := webhook.NewServer(reconciler, logger)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(logger)
	registerCadence(sched, "general-scrape", cfg.Schedule.GeneralCron, rootCtx, func(ctx context.Context) {
		deps.General.RunTick(ctx, "")
	}, logger)
	registerCadence(sched, "job-details", cfg.Schedule.JobDetailsCron, rootCtx, deps.Detail.RunTick, logger)
	registerCadence(sched, "heuristic-enrich", cfg.Schedule.HeuristicCron, rootCtx, deps.Enricher.Run, logger)
	registerCadence(sched, "webhook-sweep", cfg.Schedule.WebhookSweepCron, rootCtx, reconciler.Sweep, logger)
	sched.Start()

	go func() {
		logger.Info("webhook server listening", zap.String("addr", *addr))
		if err := server.Listen(*addr); err != nil {
			logger.Error("webhook server stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	sched.Stop(stopCtx)
	cancel()
	if err := server.Shutdown(); err != nil {
		logger.Warn("webhook server shutdown error", zap.Error(err))
	}
}

func registerCadence(sched *scheduler.Scheduler, name, spec string, ctx context.Context, fn scheduler.Runnable, logger *zap.Logger) {
	if err := sched.Register(name, spec, ctx, fn); err != nil {
		logger.Fatal("failed to register schedule", zap.String("job", name), zap.Error(err))
	}
}
