// Package logger is the structured slog setup shared by the bot and its
// services: one event per line, a fixed key order, context-carried request
// ids and masking of contact data.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/bakerybot/core/buildinfo"
	coreconfig "github.com/m3rciful/bakerybot/core/config"
)

var (
	// L is the root logger. It stays nil until InitLogger, and every helper
	// in this package is a no-op while it is nil.
	L *slog.Logger

	initOnce sync.Once
	level    slog.LevelVar
	sampler  = newRatioSampler(defaultSampleNum, defaultSampleDen)
	trace    bool

	sinkMu sync.Mutex
	sink   *asyncWriter
	files  []io.Closer
)

// InitLogger installs L and the slog default from cfg. Only the first call
// has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		sampler.Set(s.sampleNum, s.sampleDen)
		trace = s.trace

		outputs := []io.Writer{os.Stdout}
		var fileErr error
		if s.file != "" {
			f, err := openFile(s.file)
			if err != nil {
				fileErr = err
			} else {
				outputs = append(outputs, f)
				files = append(files, f)
			}
		}

		sinkMu.Lock()
		sink = newAsyncWriter(outputs, writerBufferSize)
		sinkMu.Unlock()

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(L)

		attrs := []slog.Attr{
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
		}
		if cfg != nil {
			attrs = append(attrs,
				slog.String("cfg_profile", s.profile),
				slog.String("mode", cfg.Telegram.RunMode),
			)
		}
		Info(context.Background(), "app", "startup", attrs...)
		if fileErr != nil {
			// The bot keeps running on stdout alone.
			Warn(context.Background(), "logger", "file.open",
				slog.String("status", "fail"),
				slog.String("path", s.file),
				slog.Any("err", fileErr),
			)
		}
	})
	return nil
}

// Shutdown flushes pending lines and closes the log file. Later calls do
// nothing.
func Shutdown() error {
	sinkMu.Lock()
	w, closers := sink, files
	sink, files = nil, nil
	sinkMu.Unlock()
	if w == nil {
		return nil
	}

	errs := []error{w.Flush(), w.Close()}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Background is the context for events outside any update or request.
func Background() context.Context { return context.Background() }

// LogEvent writes one event through logg, falling back to the logger stored
// in ctx and then to L.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(orBackground(ctx), lvl, "", attrs...)
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event under component at lvl.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether the next high-volume debug event should
// be written. TRACE=1 or LOG_TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}
