package helpers

import (
	"context"

	"github.com/m3rciful/bakerybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ctxSlot is the tele.Context key holding the request context of an update.
const ctxSlot = "bakery.ctx"

// IDs returns the update, chat and sender IDs of c. Missing parts are zero.
func IDs(c tele.Context) (updateID int, chatID, userID int64) {
	updateID = c.Update().ID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	return updateID, chatID, userID
}

// BuildContext returns the request context of the update handled by c. The
// first call derives it from the update (rid, ids, tg logger) and caches it
// on c; later calls return the cached value.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxSlot).(context.Context); ok && ctx != nil {
		return ctx
	}
	updateID, chatID, userID := IDs(c)
	ctx := logger.WithRID(logger.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(ctxSlot, ctx)
	return ctx
}

// WithHandler tags the request context of c with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(ctxSlot, ctx)
	return ctx
}
