package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/bakerybot/core/logger"
)

// Source picks the migration files: cfg.MigrationsDir when set, otherwise
// the embedded set.
func Source(cfg Config, embedded fs.FS) (fs.FS, error) {
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		return os.DirFS(dir), nil
	}
	if embedded == nil {
		return nil, errors.New("migrations: no source configured")
	}
	return embedded, nil
}

// RunMigrations applies every pending up migration from src.
func RunMigrations(ctx context.Context, cfg Config, src fs.FS) error {
	files, err := upFiles(src)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, "db.migrate", "resolve",
		slog.Int("count", len(files)),
		slog.String("files", preview),
		slog.Bool("truncated", truncated),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "init", slog.String("status", "fail"), slog.Any("err", err))
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "close", slog.Any("err", errors.Join(srcErr, dbErr)))
		}
	}()

	from, dirty, _ := m.Version()
	if dirty {
		logger.Warn(ctx, "db.migrate", "dirty", slog.Uint64("version", uint64(from)))
	}

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			slog.Any("err", upErr),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := appliedBetween(files, uint64(from), uint64(to))
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("files", strings.Join(applied, ",")),
		slog.Duration("duration", took),
	)
	return nil
}

func upFiles(src fs.FS) ([]string, error) {
	names, err := fs.Glob(src, "*.up.sql")
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	sort.Strings(names)
	return names, nil
}

// version parses the numeric prefix of a migration file name.
func version(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns files with from < version <= to.
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := version(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
