// Package bot wires the storefront commands, callbacks and mini-app events
// into the Telegram runtime.
package bot

import (
	"context"
	"errors"
	"strings"

	tg "github.com/m3rciful/bakerybot/core/telegram"
	"github.com/m3rciful/bakerybot/core/telegram/commands"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"
	"github.com/m3rciful/bakerybot/internal/cart"
	"github.com/m3rciful/bakerybot/internal/catalog"
	"github.com/m3rciful/bakerybot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// Callback keys.
const (
	CallbackCartRemove = "cart_rm"
	CallbackCartClear  = "cart_clear"
)

// Snapshots is the read side of the catalog store.
type Snapshots interface {
	Current() *catalog.Snapshot
}

// Refresher runs an immediate catalog refresh.
type Refresher interface {
	RefreshNow(ctx context.Context) (*catalog.Snapshot, error)
}

// Checkout places orders.
type Checkout interface {
	Handle(ctx context.Context, customer orders.Customer, sub orders.Submission) orders.Result
}

// Deps are the services the handlers operate on. Refresher and Journal
// may be nil.
type Deps struct {
	Carts     *cart.Store
	Catalog   Snapshots
	Refresher Refresher
	Checkout  Checkout
	Journal   Journal
	WebAppURL string
}

// Handlers implements the bot surface.
type Handlers struct {
	carts     *cart.Store
	catalog   Snapshots
	refresher Refresher
	checkout  Checkout
	journal   Journal
	webAppURL string
}

// New builds the handlers.
func New(d Deps) *Handlers {
	return &Handlers{
		carts:     d.Carts,
		catalog:   d.Catalog,
		refresher: d.Refresher,
		checkout:  d.Checkout,
		journal:   d.Journal,
		webAppURL: strings.TrimSpace(d.WebAppURL),
	}
}

// Register adds commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: h.onStart, Description: "Open the bakery shop"}},
		{"/cart", commands.Command{Handler: h.onCart, Description: "Show your cart", Aliases: []string{"cart", "Cart"}}},
		{"/clear", commands.Command{Handler: h.onClear, Description: "Empty your cart"}},
		{"/catalog", commands.Command{Handler: h.onCatalogInfo, Description: "Catalog cache status", AdminOnly: true}},
		{"/refresh", commands.Command{Handler: h.onRefresh, Description: "Refresh the catalog now", AdminOnly: true}},
		{"/orders", commands.Command{Handler: h.onOrders, Description: "Recently placed orders", AdminOnly: true}},
	}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, reg.RegisterCommand(c.name, c.cmd))
	}
	errs = append(errs,
		reg.RegisterCallback(CallbackCartRemove, h.onCartRemove),
		reg.RegisterCallback(CallbackCartClear, h.onCartClear),
	)
	return errors.Join(errs...)
}

// WebAppHandler handles web_app_data messages.
func (h *Handlers) WebAppHandler() tele.HandlerFunc {
	return h.onWebApp
}

// Reply is a rendered answer: text plus optional markup.
type Reply struct {
	Text     string
	Markup   *tele.ReplyMarkup
	Markdown bool
}

func send(c tele.Context, r Reply) error {
	if r.Markdown {
		return tghelpers.SendMD(c, r.Text, r.Markup)
	}
	if r.Markup != nil {
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: r.Markup})
	}
	return tghelpers.SendText(c, r.Text)
}

func edit(c tele.Context, r Reply) error {
	if r.Markdown {
		return tghelpers.EditOrSendMD(c, r.Text, r.Markup)
	}
	return c.EditOrSend(r.Text, &tele.SendOptions{ReplyMarkup: r.Markup})
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func customerFrom(c tele.Context) orders.Customer {
	u := c.Sender()
	if u == nil {
		return orders.Customer{}
	}
	return orders.Customer{
		UserID:   u.ID,
		Username: u.Username,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}
