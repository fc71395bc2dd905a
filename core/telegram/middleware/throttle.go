package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/bakerybot/core/logger"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ThrottleOptions configures Throttle.
type ThrottleOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists UpdateKind values that are never throttled.
	Exclude []string
	// OnLimited answers a dropped update. Nil drops silently.
	OnLimited tele.HandlerFunc
}

// Throttle drops updates that arrive within Interval of the previous one
// from the same user. A zero Interval disables it.
func Throttle(opts ThrottleOptions) tele.MiddlewareFunc {
	skip := make(map[string]bool, len(opts.Exclude))
	for _, k := range opts.Exclude {
		skip[k] = true
	}
	w := &window{every: opts.Interval, last: make(map[int64]time.Time)}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.Interval <= 0 || skip[UpdateKind(c.Update())] {
				return next(c)
			}
			if w.admit(u.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "throttle", slog.String("status", "rate_limited"))
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}

// window remembers the last admitted update per user.
type window struct {
	mu    sync.Mutex
	every time.Duration
	last  map[int64]time.Time
	swept time.Time
}

func (w *window) admit(userID int64, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.last[userID]; ok && now.Sub(prev) < w.every {
		return false
	}
	w.last[userID] = now
	w.sweep(now)
	return true
}

// sweep forgets users idle for longer than the interval, at most once per
// minute. The caller holds mu.
func (w *window) sweep(now time.Time) {
	if now.Sub(w.swept) < time.Minute {
		return
	}
	w.swept = now
	for id, at := range w.last {
		if now.Sub(at) >= w.every {
			delete(w.last, id)
		}
	}
}
