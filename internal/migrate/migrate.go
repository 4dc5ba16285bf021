package migrate

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// defaultMigrationsDir is where goose looks for migration files when the
// caller doesn't override it; every environment this binary runs in
// ships the same db/migrations tree relative to the working directory.
const defaultMigrationsDir = "db/migrations"

// Run connects to dsn, waiting out Postgres's own startup window before
// giving up, then applies any pending goose migrations from dir. An
// empty dir falls back to defaultMigrationsDir. Each connect retry is
// logged at debug so a slow database start-up shows up in the same
// structured log as the rest of the process, rather than a silent
// sleep loop.
func Run(dsn string, dir string, logger *zap.Logger) error {
	if dir == "" {
		dir = defaultMigrationsDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := waitForDB(db, 30*time.Second, logger); err != nil {
		return err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	logger.Info("applying migrations", zap.String("dir", dir))
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// waitForDB polls db.Ping until it succeeds or budget elapses, logging
// each failed attempt so a stuck dependency is visible before the
// process gives up and returns an error to the caller.
func waitForDB(db *sql.DB, budget time.Duration, logger *zap.Logger) error {
	deadline := time.Now().Add(budget)
	attempt := 0
	for {
		attempt++
		err := db.Ping()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("db not ready after %d attempts: %w", attempt, err)
		}
		logger.Debug("db not ready yet, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(500 * time.Millisecond)
	}
}
