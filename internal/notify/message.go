// Package notify delivers placed orders to the bakery staff.
package notify

import (
	"fmt"
	"strings"

	"github.com/m3rciful/bakerybot/core/telegram/format"
	"github.com/m3rciful/bakerybot/core/telegram/helpers"
	"github.com/m3rciful/bakerybot/internal/orders"
)

const dateLayout = "02.01.2006"

// Subject is the email subject line for an order.
func Subject(o orders.PendingOrder) string {
	return fmt.Sprintf("New order %s", o.Number)
}

// PlainText renders an order for email.
func PlainText(o orders.PendingOrder) string {
	return render(o, func(s string) string { return s }, "")
}

// Markdown renders an order for a Telegram message in legacy Markdown.
func Markdown(o orders.PendingOrder) string {
	return render(o, format.MD, "*")
}

func render(o orders.PendingOrder, esc func(string) string, bold string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sNew order %s%s\n", bold, esc(o.Number), bold)
	if !o.PlacedAt.IsZero() {
		fmt.Fprintf(&b, "Placed: %s\n", o.PlacedAt.Format("02.01.2006 15:04"))
	}
	b.WriteString("\n")

	d := o.Details
	fmt.Fprintf(&b, "Customer: %s\n", esc(d.Name))
	fmt.Fprintf(&b, "Phone: %s\n", esc(d.Phone))
	if d.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", esc(d.Email))
	}
	if o.Customer.Username != "" {
		fmt.Fprintf(&b, "Telegram: @%s\n", esc(o.Customer.Username))
	} else if o.Customer.UserID != 0 {
		fmt.Fprintf(&b, "Telegram ID: %d\n", o.Customer.UserID)
	}

	switch d.DeliveryMethod {
	case orders.MethodDelivery:
		fmt.Fprintf(&b, "Delivery to: %s\n", esc(d.Address))
	case orders.MethodPickup:
		b.WriteString("Pickup\n")
	case "":
	default:
		fmt.Fprintf(&b, "Method: %s\n", esc(d.DeliveryMethod))
	}
	if when := deliveryWhen(d); when != "" {
		fmt.Fprintf(&b, "When: %s\n", esc(when))
	}
	if d.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", esc(d.Comment))
	}

	b.WriteString("\n")
	for i, it := range o.Items {
		name := it.Name
		if name == "" {
			name = it.ProductID
		}
		fmt.Fprintf(&b, "%d. %s x%d = %s\n", i+1, esc(name), int(it.Quantity), it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\n%sTotal: %s%s\n", bold, o.Total.StringFixed(2), bold)
	return b.String()
}

// deliveryWhen normalises the requested date to dd.mm.yyyy when it parses.
func deliveryWhen(d orders.OrderDetails) string {
	date := d.Date
	if t, ok := helpers.ParseDate(d.Date); ok {
		date = t.Format(dateLayout)
	}
	return strings.TrimSpace(date + " " + d.Time)
}
