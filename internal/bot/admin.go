package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/bakerybot/core/telegram/format"
	tghelpers "github.com/m3rciful/bakerybot/core/telegram/helpers"
	"github.com/m3rciful/bakerybot/internal/catalog"
	"github.com/m3rciful/bakerybot/internal/journal"

	tele "gopkg.in/telebot.v4"
)

const (
	refreshTimeout = 2 * time.Minute
	recentOrders   = 10
)

// Journal lists recently placed orders.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

func (h *Handlers) onCatalogInfo(c tele.Context) error {
	var snap *catalog.Snapshot
	if h.catalog != nil {
		snap = h.catalog.Current()
	}
	return send(c, Reply{Text: catalogInfo(snap), Markdown: true})
}

func catalogInfo(snap *catalog.Snapshot) string {
	if snap == nil {
		return "Catalog is not loaded yet."
	}
	m := snap.Metadata
	return fmt.Sprintf("*Catalog*\nVersion: %s\nUpdated: %s\nProducts: %d\nCategories: %d",
		format.MD(m.Version),
		m.LastUpdated.Format("02.01.2006 15:04:05 MST"),
		m.ProductsCount,
		m.CategoriesCount,
	)
}

func (h *Handlers) onRefresh(c tele.Context) error {
	if h.refresher == nil {
		return send(c, Reply{Text: "Catalog refresh is not available."})
	}
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), refreshTimeout)
	defer cancel()

	snap, err := h.refresher.RefreshNow(ctx)
	if err != nil {
		return send(c, Reply{Text: "Refresh failed, the previous catalog stays active: " + err.Error()})
	}
	return send(c, Reply{Text: "Refreshed.\n\n" + catalogInfo(snap), Markdown: true})
}

func (h *Handlers) onOrders(c tele.Context) error {
	if h.journal == nil {
		return send(c, Reply{Text: "Order journal is disabled."})
	}
	entries, err := h.journal.Recent(tghelpers.BuildContext(c), recentOrders)
	if err != nil {
		return err
	}
	return send(c, Reply{Text: recentOrdersText(entries), Markdown: true})
}

func recentOrdersText(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "No orders yet."
	}
	var b strings.Builder
	b.WriteString("*Recent orders*\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			format.MD(e.OrderNumber),
			e.PlacedAt.Format("02.01 15:04"),
			format.MD(e.CustomerName),
			e.Total,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
