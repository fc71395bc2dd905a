package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bakerybot/internal/orders"
)

func placedOrder() orders.PendingOrder {
	return orders.PendingOrder{
		Number:   "#010625/004",
		Customer: orders.Customer{UserID: 9, Username: "bob"},
		Details:  orders.OrderDetails{Name: "Bob", Phone: "555", DeliveryMethod: orders.MethodPickup},
		Items: []orders.LineItem{
			{ProductID: "p1", Name: "Rye", Price: decimal.RequireFromString("350.00"), Quantity: 2},
		},
		Total:    decimal.RequireFromString("700"),
		PlacedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
	}
}

func TestEntryFromOrder(t *testing.T) {
	e, err := EntryFromOrder(placedOrder())
	require.NoError(t, err)

	assert.Equal(t, "#010625/004", e.OrderNumber)
	assert.Equal(t, int64(9), e.UserID)
	assert.Equal(t, "bob", e.Username)
	assert.Equal(t, "700", e.Total)
	assert.Equal(t, time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), e.PlacedAt)

	var items []itemRow
	require.NoError(t, json.Unmarshal([]byte(e.Items), &items))
	assert.Equal(t, []itemRow{{ProductID: "p1", Name: "Rye", Price: "350", Quantity: 2}}, items)
}

type fakeInserter struct {
	entries []Entry
	err     error
	hasDL   bool
}

func (f *fakeInserter) Insert(ctx context.Context, e Entry) error {
	_, f.hasDL = ctx.Deadline()
	f.entries = append(f.entries, e)
	return f.err
}

func TestNotifierInsertsWithDeadline(t *testing.T) {
	repo := &fakeInserter{}
	n := NewNotifier(repo, time.Second)
	require.NoError(t, n.Notify(context.Background(), placedOrder()))
	require.Len(t, repo.entries, 1)
	assert.True(t, repo.hasDL)

	repo.err = errors.New("connection refused")
	assert.ErrorIs(t, n.Notify(context.Background(), placedOrder()), repo.err)
}

func TestNewNotifierNilRepo(t *testing.T) {
	assert.Nil(t, NewNotifier(nil, 0))
}
