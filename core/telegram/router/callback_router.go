package router

import (
	"log/slog"

	tg "github.com/m3rciful/bakerybot/core/telegram"
	"github.com/m3rciful/bakerybot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises the answer to unknown callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every callback query by its key through reg.
// The query is acknowledged first so the client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.Key(c)
			_ = c.Respond()

			if h, ok := reg.GetCallback(key); ok {
				return handled(c, "callback."+handlerName(key), h, slog.String("cb_key", key))
			}
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			if fallback == nil {
				ignored(c, "callback.unknown")
				return nil
			}
			return handled(c, "callback.unknown", fallback,
				slog.String("cb_key", key),
				slog.String("reason", "not_found"),
			)
		},
	}
}
