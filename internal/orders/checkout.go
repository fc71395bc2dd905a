// Package orders turns mini-app order submissions into numbered orders.
//
// Checkout validates a Submission, reserves a number from the Sequencer,
// hands the PendingOrder to a Notifier and clears the customer's cart.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/bakerybot/core/logger"
)

// Numberer reserves order numbers.
type Numberer interface {
	Next(ctx context.Context) (string, error)
}

// Notifier delivers a placed order to staff. A joined error
// (errors.Join) reports one failure per channel.
type Notifier interface {
	Notify(ctx context.Context, order PendingOrder) error
}

// CartClearer empties a user's cart once the order is placed.
type CartClearer interface {
	Clear(userID int64)
}

// Result is the outcome of one submission. Err is nil for completed orders;
// Warnings lists notification channels that failed and any fault hit after
// the order was numbered.
type Result struct {
	Order    *PendingOrder
	Err      *CheckoutError
	Warnings []*CheckoutError
}

// Completed reports whether an order number was assigned.
func (r Result) Completed() bool { return r.Err == nil && r.Order != nil }

// Checkout runs the order session. It is safe for concurrent use; a user may
// have at most one submission in flight.
type Checkout struct {
	seq      Numberer
	notifier Notifier
	carts    CartClearer
	now      func() time.Time

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewCheckout wires a checkout. now may be nil.
func NewCheckout(seq Numberer, notifier Notifier, carts CartClearer, now func() time.Time) *Checkout {
	if now == nil {
		now = time.Now
	}
	return &Checkout{
		seq:      seq,
		notifier: notifier,
		carts:    carts,
		now:      now,
		inflight: make(map[int64]struct{}),
	}
}

// Handle validates sub and, when valid, numbers, dispatches and completes the order.
func (c *Checkout) Handle(ctx context.Context, customer Customer, sub Submission) (res Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			perr := &CheckoutError{Kind: KindUnexpectedFailure, Reason: fmt.Sprintf("panic: %v", rec)}
			if res.Order != nil {
				// The number is spent and staff may have been told: the order stands.
				res.Warnings = append(res.Warnings, perr)
			} else {
				res = Result{Err: perr}
			}
		}
		c.logResult(ctx, customer, res, time.Since(start))
	}()

	if !c.acquire(customer.UserID) {
		return Result{Err: newError(KindInProgress, "user %d has a submission in flight", customer.UserID)}
	}
	defer c.release(customer.UserID)

	order, verr := validate(sub)
	if verr != nil {
		return Result{Err: verr}
	}
	order.Customer = customer
	order.PlacedAt = c.now()

	number, err := c.seq.Next(ctx)
	if err != nil {
		return Result{Err: &CheckoutError{Kind: KindSequencingFailure, Reason: "reserve order number", Err: err}}
	}
	order.Number = number
	ctx = logger.WithOrderNumber(ctx, number)

	res = Result{Order: &order}
	res.Warnings = c.dispatch(ctx, order)

	c.carts.Clear(customer.UserID)
	return res
}

// validate checks sub in a fixed order so that an empty cart with a zero
// total reports the amount problem rather than missing items.
func validate(sub Submission) (PendingOrder, *CheckoutError) {
	if sub.Details.Empty() {
		return PendingOrder{}, newError(KindIncompleteData, "order details missing")
	}
	if !sub.Total.IsPositive() {
		return PendingOrder{}, newError(KindZeroAmount, "total %s", sub.Total.String())
	}

	items := make([]LineItem, 0, len(sub.Items))
	for _, it := range sub.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return PendingOrder{}, newError(KindIncompleteData, "no line items")
	}

	details := *sub.Details
	details.trim()
	if details.Name == "" || details.Phone == "" {
		return PendingOrder{}, newError(KindIncompleteData, "name or phone missing")
	}
	if details.DeliveryMethod == MethodDelivery && details.Address == "" {
		return PendingOrder{}, newError(KindIncompleteData, "delivery address missing")
	}

	return PendingOrder{Details: details, Items: items, Total: sub.Total}, nil
}

// dispatch never fails the order: errors and panics become warnings.
func (c *Checkout) dispatch(ctx context.Context, order PendingOrder) (warnings []*CheckoutError) {
	if c.notifier == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			warnings = append(warnings, &CheckoutError{
				Kind:   KindNotificationFailure,
				Reason: fmt.Sprintf("notifier panic: %v", rec),
			})
		}
	}()

	err := c.notifier.Notify(ctx, order)
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			warnings = append(warnings, &CheckoutError{Kind: KindNotificationFailure, Err: e})
		}
		return warnings
	}
	return []*CheckoutError{{Kind: KindNotificationFailure, Err: err}}
}

func (c *Checkout) acquire(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[userID]; busy {
		return false
	}
	c.inflight[userID] = struct{}{}
	return true
}

func (c *Checkout) release(userID int64) {
	c.mu.Lock()
	delete(c.inflight, userID)
	c.mu.Unlock()
}

func (c *Checkout) logResult(ctx context.Context, customer Customer, res Result, took time.Duration) {
	if res.Err != nil {
		attrs := []slog.Attr{
			slog.String("outcome", "rejected"),
			slog.Int64("user_id", customer.UserID),
			slog.String("err_code", res.Err.Code()),
			slog.Any("err", res.Err),
			slog.Duration("duration", took),
		}
		if res.Err.Kind == KindUnexpectedFailure || res.Err.Kind == KindSequencingFailure {
			logger.Error(ctx, "orders.checkout", "submit", attrs...)
			return
		}
		logger.Warn(ctx, "orders.checkout", "submit", attrs...)
		return
	}
	for _, w := range res.Warnings {
		event := "notify"
		if w.Kind != KindNotificationFailure {
			event = "finalize"
		}
		logger.Warn(ctx, "orders.checkout", event,
			slog.String("status", "fail"),
			slog.String("order_number", res.Order.Number),
			slog.String("err_code", w.Code()),
			slog.Any("err", w),
		)
	}
	logger.Info(ctx, "orders.checkout", "submit",
		slog.String("outcome", "ok"),
		slog.Int64("user_id", customer.UserID),
		slog.String("order_number", res.Order.Number),
		slog.Int("items", res.Order.ItemCount()),
		slog.String("total", res.Order.Total.String()),
		slog.Duration("duration", took),
	)
}
