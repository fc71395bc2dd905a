package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/telegram/format"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"
	"github.com/m3rciful/bakerybot/internal/cart"
	"github.com/m3rciful/bakerybot/internal/catalog"
	"github.com/m3rciful/bakerybot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// Mini-app event types.
const (
	EventCartSync        = "cart_sync"
	EventOrderSubmission = "order_submission"
)

var (
	errBadEvent     = errors.New("malformed web app event")
	errUnknownEvent = errors.New("unknown web app event")
)

type envelope struct {
	Type string `json:"type"`
}

// syncItem is one cart line as the mini app reports it. Only id and
// quantity are kept; names and prices are resolved from the catalog.
type syncItem struct {
	ID       productID       `json:"id"`
	Quantity orders.Quantity `json:"quantity"`
}

type cartSync struct {
	Items []syncItem `json:"items"`
}

// productID accepts both JSON strings and numbers.
type productID string

func (p *productID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = productID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*p = productID(n.String())
	return nil
}

func eventType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", errBadEvent, err)
	}
	t := strings.ToLower(strings.TrimSpace(env.Type))
	if t == "" {
		return "", fmt.Errorf("%w: missing type", errBadEvent)
	}
	return t, nil
}

// parseCartSync converts a cart_sync event into cart lines. Lines without an
// id or with a non-positive quantity are dropped; duplicate ids are summed.
func parseCartSync(data []byte) ([]cart.Item, error) {
	var ev cartSync
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadEvent, err)
	}
	pos := make(map[string]int, len(ev.Items))
	items := make([]cart.Item, 0, len(ev.Items))
	for _, it := range ev.Items {
		id := string(it.ID)
		if id == "" || it.Quantity <= 0 {
			continue
		}
		if i, ok := pos[id]; ok {
			items[i].Quantity += int(it.Quantity)
			continue
		}
		pos[id] = len(items)
		items = append(items, cart.Item{ProductID: id, Quantity: int(it.Quantity)})
	}
	return items, nil
}

func (h *Handlers) onWebApp(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.WebAppData == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return send(c, h.handleWebAppData(ctx, customerFrom(c), []byte(msg.WebAppData.Data)))
}

// handleWebAppData dispatches one mini-app event and returns the reply.
func (h *Handlers) handleWebAppData(ctx context.Context, customer orders.Customer, data []byte) Reply {
	typ, err := eventType(data)
	if err == nil {
		switch typ {
		case EventCartSync:
			return h.syncCart(ctx, customer, data)
		case EventOrderSubmission:
			return h.submitOrder(ctx, customer, data)
		default:
			err = fmt.Errorf("%w: %q", errUnknownEvent, typ)
		}
	}
	logger.Warn(ctx, "webapp", "event",
		slog.String("status", "skip"),
		slog.Int64("user_id", customer.UserID),
		slog.String("err", err.Error()),
	)
	return Reply{Text: "Sorry, we could not read data from the shop. Please try again."}
}

func (h *Handlers) syncCart(ctx context.Context, customer orders.Customer, data []byte) Reply {
	items, err := parseCartSync(data)
	if err != nil {
		logger.Warn(ctx, "webapp", "cart_sync",
			slog.String("status", "fail"),
			slog.Int64("user_id", customer.UserID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: "Sorry, we could not read your cart. Please try again."}
	}

	var snap *catalog.Snapshot
	if h.catalog != nil {
		snap = h.catalog.Current()
	}
	kept, dropped := filterOrderable(items, snap)
	h.carts.Replace(customer.UserID, kept)

	count := 0
	for _, it := range kept {
		count += it.Quantity
	}
	logger.Info(ctx, "webapp", "cart_sync",
		slog.String("status", "ok"),
		slog.Int64("user_id", customer.UserID),
		slog.Int("lines", len(kept)),
		slog.Int("items", count),
		slog.Int("dropped", len(dropped)),
	)

	var b strings.Builder
	if count == 0 {
		b.WriteString("Your cart is empty.")
	} else {
		fmt.Fprintf(&b, "Cart updated: %d item(s). Send /cart to review it.", count)
	}
	if len(dropped) > 0 {
		b.WriteString("\n\nNot available right now: ")
		b.WriteString(strings.Join(dropped, ", "))
	}
	return Reply{Text: b.String()}
}

// filterOrderable drops lines whose product is marked unavailable in snap.
// Products unknown to snap are kept since the catalog may lag the mini app.
func filterOrderable(items []cart.Item, snap *catalog.Snapshot) (kept []cart.Item, dropped []string) {
	kept = make([]cart.Item, 0, len(items))
	for _, it := range items {
		if p, ok := snap.Product(it.ProductID); ok && !p.Orderable() {
			name := p.Name
			if name == "" {
				name = it.ProductID
			}
			dropped = append(dropped, name)
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}

func (h *Handlers) submitOrder(ctx context.Context, customer orders.Customer, data []byte) Reply {
	sub, err := orders.ParseSubmission(data)
	if err != nil {
		logger.Warn(ctx, "webapp", "order_submission",
			slog.String("status", "fail"),
			slog.Int64("user_id", customer.UserID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: "Sorry, we could not read your order. Please fill in the form again."}
	}
	res := h.checkout.Handle(ctx, customer, sub)
	if !res.Completed() {
		if res.Err != nil {
			return Reply{Text: res.Err.UserMessage()}
		}
		return Reply{Text: "Something went wrong while placing your order. Please try again."}
	}
	return Reply{Text: confirmation(*res.Order), Markdown: true}
}

func confirmation(o orders.PendingOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Thank you! Your order %s is placed.*\n\n", format.MD(o.Number))
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = it.ProductID
		}
		fmt.Fprintf(&b, "• %s x%d = %s\n", format.MD(name), int(it.Quantity), it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n", o.Total.StringFixed(2))
	if o.Details.DeliveryMethod == orders.MethodDelivery {
		fmt.Fprintf(&b, "Delivery to: %s\n", format.MD(o.Details.Address))
	} else {
		b.WriteString("Pickup from the bakery\n")
	}
	b.WriteString("\nWe will contact you at " + format.MD(o.Details.Phone) + " to confirm.")
	return b.String()
}
