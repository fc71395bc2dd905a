package middleware

import (
	"log/slog"

	"github.com/m3rciful/bakerybot/core/logger"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOnly lets only adminID through. Others get reject, or silence when
// reject is nil. With adminID zero every admin command is closed.
func AdminOnly(adminID int64, reject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); adminID != 0 && u != nil && u.ID == adminID {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("status", "skip"),
				slog.String("reason", "not_admin"),
			)
			if reject != nil {
				return reject(c)
			}
			return nil
		}
	}
}
