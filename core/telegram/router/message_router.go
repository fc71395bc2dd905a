package router

import (
	tg "github.com/m3rciful/bakerybot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions answers text and documents that match nothing.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes handles plain text and documents. Text equal to a public command
// name or alias runs that command; admin commands need their slash form.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handled(c, handlerName(key), cmd.Handler)
			}
		}
		return orIgnore(c, "unknown_text", opts.UnknownText)
	}
	onDocument := func(c tele.Context) error {
		return orIgnore(c, "unexpected_document", opts.UnknownDocument)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: onText},
		{Endpoint: tele.OnDocument, Handler: onDocument},
	}
}

// WebAppRoute routes data sent by the mini app to h.
func WebAppRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnWebApp,
		Handler: func(c tele.Context) error {
			if msg := c.Message(); msg == nil || msg.WebAppData == nil {
				return nil
			}
			return handled(c, "web_app", h)
		},
	}
}

func orIgnore(c tele.Context, name string, h tele.HandlerFunc) error {
	if h == nil {
		ignored(c, name)
		return nil
	}
	return handled(c, name, h)
}
