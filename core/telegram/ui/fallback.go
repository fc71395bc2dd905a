package ui

import (
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, or expected documents.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

var _ FallbackProvider = Messages{}

// Messages is a FallbackProvider that answers with fixed plain-text replies.
// An empty reply yields a nil handler so the router keeps its own default.
type Messages struct {
	Text     string
	Document string
	Callback string
	// TextMarkup, when set, builds the keyboard attached to the Text reply.
	TextMarkup func() *tele.ReplyMarkup
}

func (m Messages) UnknownText() tele.HandlerFunc     { return reply(m.Text, m.TextMarkup) }
func (m Messages) UnknownDocument() tele.HandlerFunc { return reply(m.Document, nil) }
func (m Messages) UnknownCallback() tele.HandlerFunc { return reply(m.Callback, nil) }

func reply(text string, markup func() *tele.ReplyMarkup) tele.HandlerFunc {
	if text == "" {
		return nil
	}
	return func(c tele.Context) error {
		if markup != nil {
			if rm := markup(); rm != nil {
				return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: rm})
			}
		}
		return tghelpers.SendText(c, text)
	}
}
