package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/bakerybot/core/telegram/callbacks"
	"github.com/m3rciful/bakerybot/core/telegram/format"
	"github.com/m3rciful/bakerybot/core/telegram/keyboard"
	"github.com/m3rciful/bakerybot/internal/cart"
	"github.com/m3rciful/bakerybot/internal/catalog"

	tele "gopkg.in/telebot.v4"
)

const emptyCartText = "Your cart is empty. Open the shop to add something tasty."

func (h *Handlers) onStart(c tele.Context) error {
	return send(c, h.startView())
}

func (h *Handlers) startView() Reply {
	text := "Welcome to the bakery! Browse the catalog and place an order right here in Telegram."
	if h.webAppURL == "" {
		return Reply{Text: text}
	}
	return Reply{
		Text:   text + "\n\nTap \"Open shop\" below to start.",
		Markup: keyboard.WebApp("🛒 Open shop", h.webAppURL),
	}
}

func (h *Handlers) onCart(c tele.Context) error {
	return send(c, h.cartView(senderID(c)))
}

func (h *Handlers) onClear(c tele.Context) error {
	h.carts.Clear(senderID(c))
	return send(c, Reply{Text: "Your cart is now empty."})
}

func (h *Handlers) onCartRemove(c tele.Context) error {
	productID := strings.TrimSpace(callbacks.Payload(c))
	if productID != "" {
		h.carts.SetQuantity(senderID(c), productID, 0)
	}
	return edit(c, h.cartView(senderID(c)))
}

func (h *Handlers) onCartClear(c tele.Context) error {
	h.carts.Clear(senderID(c))
	return edit(c, Reply{Text: emptyCartText})
}

// cartView renders the cart against the current snapshot. Products missing
// from the snapshot are listed by id without a price.
func (h *Handlers) cartView(userID int64) Reply {
	items := h.carts.Items(userID)
	if len(items) == 0 {
		return Reply{Text: emptyCartText}
	}
	var snap *catalog.Snapshot
	if h.catalog != nil {
		snap = h.catalog.Current()
	}
	return renderCart(items, snap)
}

func renderCart(items []cart.Item, snap *catalog.Snapshot) Reply {
	var (
		b       strings.Builder
		total   = decimal.Zero
		buttons = make([]keyboard.Button, 0, len(items)+1)
		priced  = true
	)
	b.WriteString("*Your cart*\n\n")
	for _, it := range items {
		name := it.ProductID
		p, found := snap.Product(it.ProductID)
		if found && p.Name != "" {
			name = p.Name
		}
		price, ok := p.PriceDecimal()
		switch {
		case !found:
			fmt.Fprintf(&b, "• %s x%d (no longer in the catalog)\n", format.MD(name), it.Quantity)
			priced = false
		case !ok:
			fmt.Fprintf(&b, "• %s x%d\n", format.MD(name), it.Quantity)
			priced = false
		default:
			sub := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			total = total.Add(sub)
			fmt.Fprintf(&b, "• %s x%d = %s\n", format.MD(name), it.Quantity, sub.StringFixed(2))
		}
		if found && !p.Orderable() {
			b.WriteString("  _currently unavailable_\n")
		}
		buttons = append(buttons, keyboard.Button{
			Text:    "❌ " + name,
			Key:     CallbackCartRemove,
			Payload: it.ProductID,
		})
	}
	if priced {
		fmt.Fprintf(&b, "\n*Total: %s*", total.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "\nTotal of priced items: %s", total.StringFixed(2))
	}
	buttons = append(buttons, keyboard.Button{Text: "🗑 Clear cart", Key: CallbackCartClear, Payload: "all"})
	return Reply{
		Text:     b.String(),
		Markup:   keyboard.Column(buttons...),
		Markdown: true,
	}
}
