package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotGroupsAndSorts(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	products := []RawProduct{
		{ID: "p3", Name: "Croissant", Price: "120.50", ParentID: "2", Sort: 5},
		{ID: "p1", Name: "Rye", Price: "350.00", ParentID: "1", Sort: 2},
		{ID: "p2", Name: "Baguette", Price: "180", ParentID: "1", Sort: 1},
		{ID: "p4", Name: "Sourdough", Price: "ask", ParentID: "1", Sort: 2, Availability: Unavailable},
	}
	categories := []RawCategory{
		{ID: "2", Name: "Pastry", Sort: 2},
		{ID: "1", Name: "Bread", Sort: 1},
	}

	snap := BuildSnapshot(products, categories, now, "v1")

	require.Len(t, snap.Products, 2)
	bread := snap.Products["category_1"]
	require.Len(t, bread, 3)
	assert.Equal(t, []string{"p2", "p1", "p4"}, []string{bread[0].ID, bread[1].ID, bread[2].ID})
	assert.Equal(t, "350", bread[1].Price)
	assert.Equal(t, "ask", bread[2].Price)
	assert.Equal(t, "120.5", snap.Products["category_2"][0].Price)

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "Bread", snap.Categories[0].Name)
	assert.Equal(t, "category_1", snap.Categories[0].Key)

	assert.Equal(t, Metadata{LastUpdated: now, Version: "v1", ProductsCount: 4, CategoriesCount: 2}, snap.Metadata)

	p, ok := snap.Product("p4")
	require.True(t, ok)
	assert.False(t, p.Orderable())
	_, ok = snap.Product("missing")
	assert.False(t, ok)
}

func TestProductOrderable(t *testing.T) {
	assert.True(t, Product{Availability: ""}.Orderable())
	assert.True(t, Product{Availability: "in stock"}.Orderable())
	assert.True(t, Product{Availability: "n/a"}.Orderable(), "only the exact marker blocks ordering")
	assert.False(t, Product{Availability: Unavailable}.Orderable())
}

func TestProductPriceDecimal(t *testing.T) {
	d, ok := Product{Price: "120.5"}.PriceDecimal()
	require.True(t, ok)
	assert.Equal(t, "120.5", d.String())

	_, ok = Product{Price: "ask"}.PriceDecimal()
	assert.False(t, ok)
}

func TestNilSnapshotLookup(t *testing.T) {
	var snap *Snapshot
	_, ok := snap.Product("x")
	assert.False(t, ok)
}
