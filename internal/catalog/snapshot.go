package catalog

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSnapshot groups raw products under CategoryKey(parent_id) and orders
// every group and the category list by ascending sort index. Ties keep the
// upstream order.
func BuildSnapshot(products []RawProduct, categories []RawCategory, now time.Time, version string) *Snapshot {
	snap := &Snapshot{
		Products:   make(map[string][]Product),
		Categories: make([]Category, 0, len(categories)),
		Metadata: Metadata{
			LastUpdated: now.UTC(),
			Version:     version,
		},
	}

	for _, raw := range products {
		p := Product{
			ID:           string(raw.ID),
			Name:         string(raw.Name),
			Price:        normalizePrice(string(raw.Price)),
			Description:  string(raw.Description),
			Weight:       string(raw.Weight),
			Availability: string(raw.Availability),
			Images:       append([]string(nil), raw.Images...),
			ParentID:     string(raw.ParentID),
			SortIndex:    int(raw.Sort),
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		key := CategoryKey(p.ParentID)
		snap.Products[key] = append(snap.Products[key], p)
		snap.Metadata.ProductsCount++
	}
	for key := range snap.Products {
		group := snap.Products[key]
		sort.SliceStable(group, func(i, j int) bool { return group[i].SortIndex < group[j].SortIndex })
	}

	for _, raw := range categories {
		snap.Categories = append(snap.Categories, Category{
			ID:        string(raw.ID),
			Key:       CategoryKey(string(raw.ID)),
			Name:      string(raw.Name),
			ParentID:  string(raw.ParentID),
			Image:     string(raw.Image),
			SortIndex: int(raw.Sort),
		})
	}
	sort.SliceStable(snap.Categories, func(i, j int) bool {
		return snap.Categories[i].SortIndex < snap.Categories[j].SortIndex
	})
	snap.Metadata.CategoriesCount = len(snap.Categories)

	snap.buildIndex()
	return snap
}

// normalizePrice canonicalises numeric prices ("350.00" -> "350") and keeps
// anything unparsable verbatim.
func normalizePrice(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return d.String()
}
