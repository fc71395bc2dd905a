// Package bootstrap brings up the shared infrastructure in order: logger,
// then the optional order journal database and its schema.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/bakerybot/core/config"
	coredatabase "github.com/m3rciful/bakerybot/core/database"
	"github.com/m3rciful/bakerybot/core/logger"
)

// Options control the bootstrap pipeline. The function fields default to
// the real implementations and exist for tests.
type Options struct {
	Config *coreconfig.Config
	// Database is optional; a config without host skips connect and migrations.
	Database coredatabase.Config
	// Migrations is the embedded schema, used unless Database.MigrationsDir is set.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database is configured.
	DB *sqlx.DB
}

// Run initializes the logger and, when configured, connects to the database
// and applies migrations. A migration failure closes the pool.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if !opts.Database.Enabled() {
		logger.Info(ctx, "app", "journal.disabled")
		return &Result{}, nil
	}

	src, err := coredatabase.Source(opts.Database, opts.Migrations)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}

	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := migrate(ctx, opts.Database, src); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), db.Close())
	}
	return &Result{DB: db}, nil
}
