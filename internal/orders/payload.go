package orders

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Delivery methods accepted in OrderDetails.DeliveryMethod.
const (
	MethodDelivery = "delivery"
	MethodPickup   = "pickup"
)

// OrderDetails is the customer block of an order submission.
type OrderDetails struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	DeliveryMethod string `json:"delivery_method"`
	Address        string `json:"address,omitempty"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
	Comment        string `json:"comment,omitempty"`
}

// Empty reports whether no field carries a value.
func (d *OrderDetails) Empty() bool {
	if d == nil {
		return true
	}
	return *d == (OrderDetails{})
}

func (d *OrderDetails) trim() {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
	d.DeliveryMethod = strings.ToLower(strings.TrimSpace(d.DeliveryMethod))
	d.Address = strings.TrimSpace(d.Address)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	d.Comment = strings.TrimSpace(d.Comment)
}

// LineItem is one cart line as agreed in the mini app: price and quantity are
// taken at submission time and never re-read from the catalog.
type LineItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  Quantity        `json:"quantity"`
}

// Subtotal is Price * Quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quantity decodes from a JSON number or a numeric string.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*q = Quantity(f)
	return nil
}

// Submission is the order_submission event sent by the mini app.
type Submission struct {
	Details *OrderDetails   `json:"order_details"`
	Items   []LineItem      `json:"cart_items"`
	Total   decimal.Decimal `json:"total_amount"`
}

// Customer identifies the Telegram user placing the order.
type Customer struct {
	UserID   int64
	Username string
	FullName string
}

// PendingOrder is a validated order on its way to the notification channels.
type PendingOrder struct {
	Number   string
	Customer Customer
	Details  OrderDetails
	Items    []LineItem
	Total    decimal.Decimal
	PlacedAt time.Time
}

// ItemCount sums line quantities.
func (o PendingOrder) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += int(it.Quantity)
	}
	return n
}

// ParseSubmission decodes a raw order_submission document.
func ParseSubmission(data []byte) (Submission, error) {
	var s Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return Submission{}, err
	}
	return s, nil
}
