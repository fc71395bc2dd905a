// Package cart keeps the per-user shopping carts in memory.
//
// Carts are never persisted: a restart empties every cart.
package cart

import (
	"math"
	"sort"
	"sync"
)

// Item is one product line as sent by the mini app.
type Item struct {
	ProductID string
	Quantity  int
}

// Store maps a Telegram user to its cart (product id -> quantity).
// A product with quantity <= 0 is never stored. No quantity ceiling is enforced
// here; the mini app caps quantities before sending them.
type Store struct {
	mu    sync.RWMutex
	carts map[int64]map[string]int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{carts: make(map[int64]map[string]int)}
}

// Get returns a copy of the user's cart; an empty map when the user has none.
func (s *Store) Get(userID int64) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.carts[userID]
	out := make(map[string]int, len(src))
	for id, qty := range src {
		out[id] = qty
	}
	return out
}

// Items returns the user's cart as lines sorted by product id.
func (s *Store) Items(userID int64) []Item {
	cart := s.Get(userID)
	items := make([]Item, 0, len(cart))
	for id, qty := range cart {
		items = append(items, Item{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}

// SetQuantity inserts or overwrites a product quantity. A quantity <= 0 removes the product.
func (s *Store) SetQuantity(userID int64, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[userID]
	if quantity <= 0 {
		if cart == nil {
			return
		}
		delete(cart, productID)
		if len(cart) == 0 {
			delete(s.carts, userID)
		}
		return
	}
	if cart == nil {
		cart = make(map[string]int)
		s.carts[userID] = cart
	}
	cart[productID] = quantity
}

// Replace swaps the whole cart for items, dropping lines with quantity <= 0.
// Duplicate product ids are summed, saturating at math.MaxInt.
func (s *Store) Replace(userID int64, items []Item) {
	next := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			continue
		}
		if have := next[it.ProductID]; have > math.MaxInt-it.Quantity {
			next[it.ProductID] = math.MaxInt
		} else {
			next[it.ProductID] = have + it.Quantity
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(next) == 0 {
		delete(s.carts, userID)
		return
	}
	s.carts[userID] = next
}

// Clear empties the user's cart. Clearing an absent cart is a no-op.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// TotalItemCount sums all quantities in the user's cart.
func (s *Store) TotalItemCount(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, qty := range s.carts[userID] {
		total += qty
	}
	return total
}
