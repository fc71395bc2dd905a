package helpers

import (
	"sync/atomic"

	"github.com/m3rciful/bakerybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var outbound atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. Nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) { outbound.Store(d) }

// SendText replies to the current chat with plain text. Only the first opts
// value is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var o *tele.SendOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return sender.Submit(BuildContext(c), outbound.Load(), "send.text", "sendMessage", func() error {
		if o == nil {
			return c.Send(text)
		}
		return c.Send(text, o)
	})
}

// SendMD replies with legacy Markdown and an optional keyboard.
func SendMD(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}

// EditOrSendMD rewrites the message behind a callback, or sends a new one
// when there is nothing to edit. It runs inline so the edit lands before
// the callback is answered.
func EditOrSendMD(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return c.EditOrSend(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}
