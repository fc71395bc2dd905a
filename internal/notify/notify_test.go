package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bakerybot/core/telegram/sender"
	"github.com/m3rciful/bakerybot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

func sampleOrder() orders.PendingOrder {
	return orders.PendingOrder{
		Number:   "#060525/003",
		Customer: orders.Customer{UserID: 42, Username: "anna_b"},
		Details: orders.OrderDetails{
			Name:           "Anna",
			Phone:          "+7 900",
			DeliveryMethod: orders.MethodDelivery,
			Address:        "Main st 1",
			Date:           "2025-05-07",
			Time:           "10:00",
		},
		Items: []orders.LineItem{
			{ProductID: "p1", Name: "Rye_bread", Price: decimal.RequireFromString("350"), Quantity: 2},
			{ProductID: "p2", Price: decimal.RequireFromString("45.5"), Quantity: 1},
		},
		Total:    decimal.RequireFromString("745.5"),
		PlacedAt: time.Date(2025, 5, 6, 12, 30, 0, 0, time.UTC),
	}
}

func TestPlainText(t *testing.T) {
	text := PlainText(sampleOrder())
	assert.Contains(t, text, "New order #060525/003")
	assert.Contains(t, text, "Telegram: @anna_b")
	assert.Contains(t, text, "Delivery to: Main st 1")
	assert.Contains(t, text, "When: 07.05.2025 10:00")
	assert.Contains(t, text, "1. Rye_bread x2 = 700.00")
	assert.Contains(t, text, "2. p2 x1 = 45.50")
	assert.Contains(t, text, "Total: 745.50")
}

func TestMarkdownEscapesUserText(t *testing.T) {
	text := Markdown(sampleOrder())
	assert.Contains(t, text, "*New order #060525/003*")
	assert.Contains(t, text, `@anna\_b`)
	assert.Contains(t, text, `Rye\_bread`)
}

func TestDeliveryWhenKeepsUnparsableDate(t *testing.T) {
	assert.Equal(t, "tomorrow 9:00", deliveryWhen(orders.OrderDetails{Date: "tomorrow", Time: "9:00"}))
	assert.Equal(t, "", deliveryWhen(orders.OrderDetails{}))
}

func TestEmailDisabledWithoutHost(t *testing.T) {
	assert.Nil(t, NewEmail(EmailConfig{To: []string{"a@b"}}))
	assert.Nil(t, NewEmail(EmailConfig{Host: "smtp"}))
}

func TestEmailSendsMessage(t *testing.T) {
	e := NewEmail(EmailConfig{
		Host:     "smtp.example.com",
		Username: "shop@example.com",
		Password: "secret",
		To:       []string{"staff@example.com"},
	})
	require.NotNil(t, e)

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	e.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	require.NoError(t, e.Notify(context.Background(), sampleOrder()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"staff@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: New order #060525/003\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, gotMsg, "Total: 745.50\r\n")
}

func TestEmailFailureAndTimeout(t *testing.T) {
	e := NewEmail(EmailConfig{Host: "smtp", To: []string{"x@y"}, Timeout: 20 * time.Millisecond})
	boom := errors.New("535 auth failed")
	e.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	require.ErrorIs(t, e.Notify(context.Background(), sampleOrder()), boom)

	release := make(chan struct{})
	defer close(release)
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}
	err := e.Notify(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type fakePoster struct {
	mu   sync.Mutex
	to   []string
	text []string
	err  error
}

func (p *fakePoster) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.to = append(p.to, to.Recipient())
	p.text = append(p.text, what.(string))
	return &tele.Message{}, p.err
}

func TestTelegramNotifier(t *testing.T) {
	n := NewTelegram(-100123)
	require.ErrorIs(t, n.Notify(context.Background(), sampleOrder()), ErrNotBound)

	poster := &fakePoster{}
	n.Bind(poster, nil)
	require.NoError(t, n.Notify(context.Background(), sampleOrder()))
	assert.Equal(t, []string{"-100123"}, poster.to)
	assert.Contains(t, poster.text[0], "#060525/003")

	poster.err = errors.New("chat not found")
	require.Error(t, n.Notify(context.Background(), sampleOrder()))
}

func TestTelegramNotifierUsesDispatcher(t *testing.T) {
	poster := &fakePoster{}
	disp := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 4})
	n := NewTelegram(7)
	n.Bind(poster, disp)

	require.NoError(t, n.Notify(context.Background(), sampleOrder()))
	disp.Close()

	poster.mu.Lock()
	defer poster.mu.Unlock()
	assert.Equal(t, []string{"7"}, poster.to)
}

type funcNotifier func(context.Context, orders.PendingOrder) error

func (f funcNotifier) Notify(ctx context.Context, o orders.PendingOrder) error { return f(ctx, o) }

func TestFanoutCollectsFailures(t *testing.T) {
	var delivered sync.Map
	ok := funcNotifier(func(_ context.Context, o orders.PendingOrder) error {
		delivered.Store("ok", o.Number)
		return nil
	})
	failing := funcNotifier(func(context.Context, orders.PendingOrder) error { return errors.New("smtp down") })
	panicking := funcNotifier(func(context.Context, orders.PendingOrder) error { panic("boom") })

	var nilEmail *Email
	f := NewFanout(
		Channel{Name: "telegram", Notifier: ok},
		Channel{Name: "email", Notifier: failing},
		Channel{Name: "journal", Notifier: panicking},
		Channel{Name: "disabled", Notifier: nilEmail},
	)
	assert.Equal(t, []string{"telegram", "email", "journal"}, f.Channels())

	err := f.Notify(context.Background(), sampleOrder())
	require.Error(t, err)
	joined, isJoined := err.(interface{ Unwrap() []error })
	require.True(t, isJoined)
	require.Len(t, joined.Unwrap(), 2)
	assert.True(t, strings.HasPrefix(joined.Unwrap()[0].Error(), "email: "))
	assert.Contains(t, joined.Unwrap()[1].Error(), "journal: panic: boom")

	got, _ := delivered.Load("ok")
	assert.Equal(t, "#060525/003", got)
}

func TestFanoutAllSucceed(t *testing.T) {
	noop := funcNotifier(func(context.Context, orders.PendingOrder) error { return nil })
	assert.NoError(t, NewFanout(Channel{Name: "a", Notifier: noop}).Notify(context.Background(), sampleOrder()))
	assert.NoError(t, NewFanout().Notify(context.Background(), sampleOrder()))
}
