// Package journal records placed orders in Postgres as an extra
// notification channel. It is optional and only wired when a database is
// configured; a failed insert never affects the order itself.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/internal/orders"
)

// Entry is a journal row.
type Entry struct {
	ID             int64  `db:"id"`
	OrderNumber    string `db:"order_number"`
	UserID         int64  `db:"user_id"`
	Username       string `db:"username"`
	CustomerName   string `db:"customer_name"`
	Phone          string `db:"phone"`
	DeliveryMethod string `db:"delivery_method"`
	Address        string `db:"address"`
	// Items is the JSON-encoded line item list.
	Items    string    `db:"items"`
	Total    string    `db:"total"`
	PlacedAt time.Time `db:"placed_at"`
}

type itemRow struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// EntryFromOrder maps a placed order to its journal row.
func EntryFromOrder(o orders.PendingOrder) (Entry, error) {
	items := make([]itemRow, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemRow{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.String(),
			Quantity:  int(it.Quantity),
		})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: encode items: %w", err)
	}
	placed := o.PlacedAt
	if placed.IsZero() {
		placed = time.Now()
	}
	return Entry{
		OrderNumber:    o.Number,
		UserID:         o.Customer.UserID,
		Username:       o.Customer.Username,
		CustomerName:   o.Details.Name,
		Phone:          o.Details.Phone,
		DeliveryMethod: o.Details.DeliveryMethod,
		Address:        o.Details.Address,
		Items:          string(raw),
		Total:          o.Total.String(),
		PlacedAt:       placed.UTC(),
	}, nil
}

// Repository reads and writes journal rows.
type Repository struct {
	conn sqlx.ExtContext
}

// NewRepository wraps a connection or transaction.
func NewRepository(conn sqlx.ExtContext) *Repository {
	return &Repository{conn: conn}
}

const insertEntry = `
	INSERT INTO order_journal (
		order_number, user_id, username, customer_name, phone,
		delivery_method, address, items, total, placed_at
	) VALUES (
		:order_number, :user_id, :username, :customer_name, :phone,
		:delivery_method, :address, :items, :total, :placed_at
	)
	ON CONFLICT (order_number) DO NOTHING`

// Insert stores e. Re-inserting an existing order number is a no-op.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	if _, err := sqlx.NamedExecContext(ctx, r.conn, insertEntry, e); err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.OrderNumber, err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Entry
	err := sqlx.SelectContext(ctx, r.conn, &out, `
		SELECT id, order_number, user_id, username, customer_name, phone,
		       delivery_method, address, items, total, placed_at
		FROM order_journal
		ORDER BY placed_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return out, nil
}

// Inserter is the write side used by Notifier.
type Inserter interface {
	Insert(ctx context.Context, e Entry) error
}

// Notifier adapts a Repository to orders.Notifier.
type Notifier struct {
	repo    Inserter
	timeout time.Duration
}

// NewNotifier returns nil when repo is nil so callers can wire it unconditionally.
func NewNotifier(repo Inserter, timeout time.Duration) *Notifier {
	if repo == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{repo: repo, timeout: timeout}
}

// Notify writes the order to the journal.
func (n *Notifier) Notify(ctx context.Context, o orders.PendingOrder) error {
	e, err := EntryFromOrder(o)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.repo.Insert(ctx, e); err != nil {
		return err
	}
	logger.Debug(ctx, "journal", "insert",
		slog.String("status", "ok"),
		slog.String("order_number", e.OrderNumber),
	)
	return nil
}
