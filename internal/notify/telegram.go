package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/bakerybot/core/telegram/sender"
	"github.com/m3rciful/bakerybot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by Telegram before a bot has been bound.
var ErrNotBound = errors.New("notify: telegram bot not bound")

// Poster is the part of *tele.Bot used to post orders.
type Poster interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram posts orders to the staff chat. The bot only exists once the
// runtime has started, so it is bound late through Bind.
type Telegram struct {
	chatID int64

	mu   sync.RWMutex
	bot  Poster
	disp *sender.Dispatcher
}

// NewTelegram creates a notifier for chatID.
func NewTelegram(chatID int64) *Telegram {
	return &Telegram{chatID: chatID}
}

// Bind attaches the bot and the outbound dispatcher. disp may be nil, in
// which case messages are sent synchronously.
func (t *Telegram) Bind(bot Poster, disp *sender.Dispatcher) {
	t.mu.Lock()
	t.bot = bot
	t.disp = disp
	t.mu.Unlock()
}

// Notify queues the order message on the dispatcher, falling back to a
// direct send when the queue is unavailable. Queued sends report success
// here; their failures are logged by the dispatcher.
func (t *Telegram) Notify(ctx context.Context, o orders.PendingOrder) error {
	t.mu.RLock()
	bot, disp := t.bot, t.disp
	t.mu.RUnlock()
	if bot == nil {
		return ErrNotBound
	}
	if t.chatID == 0 {
		return errors.New("notify: orders chat id not configured")
	}

	text := Markdown(o)
	return sender.Submit(ctx, disp, "order.notify", "sendMessage", func() error {
		_, err := bot.Send(tele.ChatID(t.chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		return err
	})
}
