package middleware

import (
	"log/slog"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const payloadLogLimit = 256

// Trace seeds the request context of every update and, when debug sampling
// allows it, logs one update.received line describing it.
func Trace(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", describe(c)...)
		}
		return next(c)
	}
}

func describe(c tele.Context) []slog.Attr {
	upd := c.Update()
	kind := UpdateKind(upd)
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", kind),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	var payload string
	switch kind {
	case KindCallback:
		key, data := callbacks.Split(upd.Callback)
		attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		payload = data
	case KindWebApp:
		// Order forms carry personal data; only the size is logged.
		attrs = append(attrs, slog.Int("payload_bytes", len(upd.Message.WebAppData.Data)))
	case KindMessage:
		payload = c.Text()
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, payloadLogLimit)))
	}
	return attrs
}

// Update kinds reported by UpdateKind.
const (
	KindCallback = "callback"
	KindWebApp   = "web_app"
	KindMessage  = "message"
	KindOther    = "other"
)

// UpdateKind classifies an update for logging and throttling exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil && upd.Message.WebAppData != nil:
		return KindWebApp
	case upd.Message != nil:
		return KindMessage
	}
	return KindOther
}
