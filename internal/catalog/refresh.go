package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/netutil"
)

var (
	// ErrFetch is returned when either upstream list could not be fetched.
	ErrFetch = errors.New("catalog: upstream fetch failed")
	// ErrEmpty is returned when the upstream returned no products and no categories.
	ErrEmpty = errors.New("catalog: upstream returned an empty catalog")
)

const (
	defaultInterval = 60 * time.Second
	defaultAttempts = 3
	defaultDelay    = 5 * time.Second
)

// Upstream is the source of raw catalog data.
type Upstream interface {
	FetchProducts(ctx context.Context) ([]RawProduct, error)
	FetchCategories(ctx context.Context) ([]RawCategory, error)
}

// RefresherOptions tunes the refresh loop. Zero values select defaults:
// 60s interval and 3 attempts 5s apart.
type RefresherOptions struct {
	Interval time.Duration
	Retry    netutil.Policy
	Now      func() time.Time
	Version  func() string
}

// Refresher periodically mirrors the upstream catalog into a Store.
// Cycles never overlap.
type Refresher struct {
	upstream Upstream
	store    *Store
	opts     RefresherOptions

	mu sync.Mutex
}

// NewRefresher wires a refresher for upstream and store.
func NewRefresher(upstream Upstream, store *Store, opts RefresherOptions) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry.Attempts = defaultAttempts
	}
	if opts.Retry.Delay <= 0 {
		opts.Retry.Delay = defaultDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == nil {
		opts.Version = func() string { return uuid.NewString() }
	}
	return &Refresher{upstream: upstream, store: store, opts: opts}
}

// Run performs one cycle immediately and then one per interval until ctx is
// cancelled. Cycle failures are logged and never stop the loop.
func (r *Refresher) Run(ctx context.Context) error {
	logger.Info(ctx, "catalog.refresh", "loop.start",
		slog.Duration("interval", r.opts.Interval),
		slog.Int("attempts", r.opts.Retry.Attempts),
	)
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		_, _ = r.RefreshNow(ctx)
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "catalog.refresh", "loop.stop")
			return nil
		case <-ticker.C:
		}
	}
}

// RefreshNow runs a single refresh cycle and returns the published snapshot.
// On failure the previously published snapshot and cache file stay untouched.
func (r *Refresher) RefreshNow(ctx context.Context) (snap *Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			snap = nil
			err = fmt.Errorf("catalog: refresh panic: %v", rec)
		}
		if err != nil {
			logger.Error(ctx, "catalog.refresh", "cycle",
				slog.String("status", "fail"),
				slog.Duration("duration", time.Since(start)),
				slog.Any("err", err),
			)
			return
		}
		logger.Info(ctx, "catalog.refresh", "cycle",
			slog.String("status", "ok"),
			slog.String("version", snap.Metadata.Version),
			slog.Int("products_count", snap.Metadata.ProductsCount),
			slog.Int("categories_count", snap.Metadata.CategoriesCount),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	var (
		products   []RawProduct
		categories []RawCategory
		prodErr    error
		catErr     error
	)
	var g errgroup.Group
	g.Go(func() error {
		products, prodErr = fetchWithRetry(ctx, r.opts.Retry, "products", r.upstream.FetchProducts)
		return nil
	})
	g.Go(func() error {
		categories, catErr = fetchWithRetry(ctx, r.opts.Retry, "categories", r.upstream.FetchCategories)
		return nil
	})
	_ = g.Wait()

	if prodErr != nil || catErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, errors.Join(prodErr, catErr))
	}
	if len(products) == 0 && len(categories) == 0 {
		return nil, ErrEmpty
	}

	next := BuildSnapshot(products, categories, r.opts.Now(), r.opts.Version())
	if err := r.store.Publish(next); err != nil {
		return nil, err
	}
	return next, nil
}

func fetchWithRetry[T any](ctx context.Context, p netutil.Policy, what string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	calls, err := netutil.Do(ctx, p, func(ctx context.Context, attempt int) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		items, err := fetch(ctx)
		if err != nil {
			logger.Warn(ctx, "catalog.upstream", "fetch",
				slog.String("status", "retry"),
				slog.String("operation", what),
				slog.Int("attempt", attempt),
				slog.Int("attempts", p.Attempts),
				slog.Any("err", err),
			)
			return err
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s after %d attempts: %w", what, calls, err)
	}
	return out, nil
}
