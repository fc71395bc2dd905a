// Package app assembles the bakery bot from configuration: catalog mirror,
// REST API, order pipeline and Telegram routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/bakerybot/core/bootstrap"
	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/netutil"
	tg "github.com/m3rciful/bakerybot/core/telegram"
	"github.com/m3rciful/bakerybot/core/telegram/router"
	"github.com/m3rciful/bakerybot/internal/api"
	"github.com/m3rciful/bakerybot/internal/bot"
	"github.com/m3rciful/bakerybot/internal/cart"
	"github.com/m3rciful/bakerybot/internal/catalog"
	"github.com/m3rciful/bakerybot/internal/config"
	"github.com/m3rciful/bakerybot/internal/journal"
	"github.com/m3rciful/bakerybot/internal/notify"
	"github.com/m3rciful/bakerybot/internal/orders"
	"github.com/m3rciful/bakerybot/migrations"
)

const journalTimeout = 5 * time.Second

// App holds the wired services.
type App struct {
	cfg *config.Config
	db  *sqlx.DB

	store     *catalog.Store
	refresher *catalog.Refresher
	api       *api.Server
	telegram  *notify.Telegram
	handlers  *bot.Handlers
	registry  *tg.Registry

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New runs the bootstrap pipeline and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	return build(cfg, res.DB)
}

func build(cfg *config.Config, db *sqlx.DB) (*App, error) {
	a := &App{cfg: cfg, db: db}

	a.store = catalog.NewStore(cfg.Catalog.CacheFile)
	client := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.FetchTimeout, nil)
	a.refresher = catalog.NewRefresher(client, a.store, catalog.RefresherOptions{
		Interval: cfg.Catalog.RefreshInterval,
		Retry: netutil.Policy{
			Attempts: cfg.Catalog.RetryAttempts,
			Delay:    cfg.Catalog.RetryDelay,
		},
	})
	a.api = api.NewServer(a.store, api.Options{
		Listen:         cfg.API.Listen,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})

	carts := cart.NewStore()
	seq := orders.NewSequencer(cfg.Orders.CounterFile, orders.SequencerOptions{
		Location: cfg.Orders.Location(),
	})

	a.telegram = notify.NewTelegram(cfg.Telegram.OrdersChatID)
	channels := []notify.Channel{{Name: "telegram", Notifier: a.telegram}}
	if cfg.Email.Enabled() {
		channels = append(channels, notify.Channel{Name: "email", Notifier: notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Timeout:  cfg.Email.Timeout,
		})})
	}
	deps := bot.Deps{
		Carts:     carts,
		Catalog:   a.store,
		Refresher: a.refresher,
		WebAppURL: cfg.API.WebAppURL,
	}
	if db != nil {
		repo := journal.NewRepository(db)
		channels = append(channels, notify.Channel{Name: "journal", Notifier: journal.NewNotifier(repo, journalTimeout)})
		deps.Journal = repo
	}
	fanout := notify.NewFanout(channels...)
	deps.Checkout = orders.NewCheckout(seq, fanout, carts, nil)

	a.handlers = bot.New(deps)
	a.registry = tg.NewRegistry()
	if err := a.handlers.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	a.registry.SetCallbackNotFound(a.handlers.Fallbacks().UnknownCallback())

	logger.Info(context.Background(), "app", "wired",
		slog.Any("notify_channels", fanout.Channels()),
		slog.Bool("journal", db != nil),
		slog.String("catalog_url", cfg.Catalog.BaseURL),
		slog.String("api_listen", cfg.API.Listen),
	)
	return a, nil
}

// TelegramRunOptions returns the runtime options for the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	fb := a.handlers.Fallbacks()
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	routes = append(routes,
		router.CallbackRoute(a.registry, router.CallbackOptions{NotFound: fb.UnknownCallback()}),
		router.WebAppRoute(a.handlers.WebAppHandler()),
	)

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

// start binds the bot to the orders-chat notifier, loads the cached catalog
// and launches the refresh loop and the API server.
func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.telegram.Bind(rt.Bot, rt.Dispatcher)
	}

	snap, err := a.store.Load()
	switch {
	case err != nil:
		logger.Warn(ctx, "catalog.cache", "load",
			slog.String("status", "fail"),
			slog.String("path", a.store.Path()),
			slog.String("err", err.Error()),
		)
	case snap == nil:
		logger.Info(ctx, "catalog.cache", "load",
			slog.String("status", "skip"),
			slog.String("path", a.store.Path()),
		)
	default:
		logger.Info(ctx, "catalog.cache", "load",
			slog.String("status", "ok"),
			slog.String("version", snap.Metadata.Version),
			slog.Int("products", snap.Metadata.ProductsCount),
		)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// The refresher and the API fail independently; only stop cancels them.
	runCtx, cancel := context.WithCancel(ctx)
	g := new(errgroup.Group)
	g.Go(func() error { return a.refresher.Run(runCtx) })
	g.Go(func() error {
		err := a.api.Run(runCtx)
		if err != nil {
			logger.Error(runCtx, "api", "serve",
				slog.String("status", "fail"),
				slog.String("listen", a.cfg.API.Listen),
				slog.String("err", err.Error()),
			)
		}
		return err
	})
	a.cancel = cancel
	a.group = g
	return nil
}

// stop cancels background tasks and releases the database.
func (a *App) stop(ctx context.Context, rt tg.Runtime) error {
	a.mu.Lock()
	cancel, g := a.cancel, a.group
	a.cancel, a.group = nil, nil
	a.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	err := errors.Join(errs...)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	attrs := []slog.Attr{slog.String("status", status)}
	if rt.Dispatcher != nil {
		attrs = append(attrs,
			slog.Uint64("sent", rt.Dispatcher.SentCount()),
			slog.Uint64("send_errors", rt.Dispatcher.ErrorCount()),
		)
	}
	logger.Info(ctx, "app", "background.stop", attrs...)
	return err
}
