package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/bakerybot/core/logger"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"
	"github.com/m3rciful/bakerybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handled runs fn as the named handler and logs one handler.handled line
// with its outcome, reply counters and latency.
func handled(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := fn(c)

	replies := middleware.RepliesFrom(c)
	attrs := make([]slog.Attr, 0, 8+len(extras))
	attrs = append(attrs,
		slog.String("status", statusOf(err)),
		slog.String("handler", name),
		slog.Int("messages", replies.Messages),
		slog.Bool("kb", replies.Keyboard),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

// ignored logs an update no handler took.
func ignored(c tele.Context, name string) {
	logger.Info(tghelpers.WithHandler(c, name), "tg", "handler.handled",
		slog.String("status", "skip"),
		slog.String("handler", name),
	)
}

func statusOf(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		return "unknown"
	}
	return strings.ReplaceAll(key, " ", "_")
}

// errorCode prefers a Code() method anywhere in the chain, e.g. a checkout
// error kind; Bot API errors map to their status.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return code
		}
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "tg_api"
	}
	return "internal"
}
