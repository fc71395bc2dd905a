package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/netutil"
)

const (
	defaultMaxConnections = 4
	// Postgres started alongside the bot may take a while to accept connections.
	connectAttempts = 15
	connectDelay    = 2 * time.Second
	attemptTimeout  = 5 * time.Second
)

func connAttrs(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
}

// Connect opens the pool and pings it, retrying while the server is still
// starting up. The pool size defaults to 4: the journal writes one row per
// order and reads only for the admin /orders command.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	return connect(ctx, cfg, netutil.Policy{Attempts: connectAttempts, Delay: connectDelay})
}

func connect(ctx context.Context, cfg Config, policy netutil.Policy) (*sqlx.DB, error) {
	start := time.Now()
	var db *sqlx.DB
	attempts, err := netutil.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		actx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()
		conn, err := sqlx.ConnectContext(actx, "postgres", cfg.DSN())
		if err != nil {
			logger.Debug(ctx, "db", "db.connect",
				append(connAttrs(cfg), slog.String("status", "retry"), slog.Int("attempt", attempt), slog.Any("err", err))...)
			return err
		}
		db = conn
		return nil
	})
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, "db", "db.connect",
			append(connAttrs(cfg),
				slog.String("status", "fail"),
				slog.Int("attempts", attempts),
				slog.Duration("duration", took),
				slog.Any("err", err),
			)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if pool <= 0 {
		pool = defaultMaxConnections
	}
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info(ctx, "db", "db.connect",
		append(connAttrs(cfg),
			slog.String("status", "ok"),
			slog.Int("pool_open", pool),
			slog.Int("attempts", attempts),
			slog.Duration("duration", took),
		)...)
	return db, nil
}
