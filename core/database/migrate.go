package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/migrations"
)

// Migrate applies every pending up migration for cfg.Driver from the embedded set.
// SQLite runs on db itself so that in-memory databases see the schema. PostgreSQL
// uses a dedicated connection that is closed afterwards.
func Migrate(ctx context.Context, db *sqlx.DB, cfg Config) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	files := listMigrationFiles(cfg.Driver)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve",
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	src, err := iofs.New(migrations.FS, cfg.Driver)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	var m *migrate.Migrate
	switch cfg.Driver {
	case DriverSQLite:
		if db == nil {
			return errors.New("sqlite migrations need an open database")
		}
		drv, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("init sqlite migrate driver: %w", err)
		}
		// Closing m would close db, which the caller still owns.
		m, err = migrate.NewWithInstance("iofs", src, DriverSQLite, drv)
		if err != nil {
			return fmt.Errorf("failed to initialize migrations: %w", err)
		}
	default:
		if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate", logger.Err(err))
			return fmt.Errorf("database not ready: %w", err)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
		if err != nil {
			return fmt.Errorf("failed to initialize migrations: %w", err)
		}
		defer func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				logger.LogEvent(ctx, logger.MIG, slog.LevelWarn, "close",
					logger.Err(errors.Join(srcErr, dbErr)))
			}
		}()
	}

	return apply(ctx, m, files)
}

func apply(ctx context.Context, m *migrate.Migrate, files []string) error {
	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "apply",
			slog.Duration("duration", took),
			logger.Err(upErr),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := appliedBetween(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		preview, truncated := logger.SummarizeStrings(applied, 6)
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "apply",
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", preview),
			slog.Bool("files_truncated", truncated),
		)
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func listMigrationFiles(driver string) []string {
	entries, err := fs.ReadDir(migrations.FS, driver)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
