package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/bakerybot/core/logger"
	tg "github.com/m3rciful/bakerybot/core/telegram"
	"github.com/m3rciful/bakerybot/core/telegram/commands"
	"github.com/m3rciful/bakerybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command. Admin-only
// commands are gated by AdminOnly.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for key, cmd := range cmds {
		routes = append(routes, tg.Route{Endpoint: key, Handler: commandHandler(key, cmd, opts)})
	}
	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(key string, cmd commands.Command, opts CommandRouteOptions) tele.HandlerFunc {
	name := handlerName(key)
	h := func(c tele.Context) error { return handled(c, name, cmd.Handler) }
	if cmd.AdminOnly {
		h = middleware.AdminOnly(opts.AdminID, opts.OnAdminReject)(h)
	}
	return h
}
