package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/bakerybot/core/config"
	"github.com/m3rciful/bakerybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the bot-wide chain, outermost first: panic
// recovery, request context, per-user ordering, optional throttling and
// reply counting. onLimited answers throttled updates.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{
		{Name: "recover", Use: middleware.Recover},
		{Name: "trace", Use: middleware.Trace},
		{Name: "serialize_user", Use: middleware.SerializeUserMiddleware()},
	}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		chain = append(chain, Middleware{
			Name: "throttle",
			Use: middleware.Throttle(middleware.ThrottleOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   cfg.RateLimit.ExcludeUpdates,
				OnLimited: onLimited,
			}),
		})
	}
	return append(chain, Middleware{Name: "count_replies", Use: middleware.CountReplies})
}
