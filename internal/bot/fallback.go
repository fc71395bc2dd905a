package bot

import (
	"github.com/m3rciful/bakerybot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Fallbacks returns the replies for updates no route claims. Stale inline
// buttons are already acknowledged by the callback router, so the callback
// reply is a regular message.
func (h *Handlers) Fallbacks() ui.Messages {
	return ui.Messages{
		Text:     "I did not get that. Open the shop to browse and order, or send /cart to see your cart.",
		Document: "Files are not supported here.",
		Callback: "This button is no longer active. Send /cart again.",
		TextMarkup: func() *tele.ReplyMarkup {
			return h.startView().Markup
		},
	}
}
