package store

import (
	"sort"
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

type productState struct {
	p     model.Product
	known bool
	stock int
}

// Store is an in-memory product catalog with per-product stock.
type Store struct {
	mu sync.RWMutex
	m  map[string]productState
}

func New() *Store {
	return &Store{m: make(map[string]productState)}
}

// Default returns a store loaded with the factory catalog, five of each.
func Default() *Store {
	s := New()
	for _, p := range []model.Product{
		{Code: "A1", Name: "Coca Cola", Price: 150, Category: "Soda"},
		{Code: "A2", Name: "Pepsi", Price: 140, Category: "Soda"},
		{Code: "B1", Name: "Snickers", Price: 120, Category: "Candy"},
		{Code: "B2", Name: "Mars Bar", Price: 130, Category: "Candy"},
		{Code: "C1", Name: "Water Bottle", Price: 100, Category: "Water"},
		{Code: "C2", Name: "Orange Juice", Price: 160, Category: "Juice"},
	} {
		s.Upsert(p, 5)
	}
	return s
}

// Upsert registers p in the catalog and sets its stock.
func (s *Store) Upsert(p model.Product, stock int) {
	if p.Code == "" {
		return
	}
	if stock < 0 {
		stock = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.Code] = productState{p: p, known: true, stock: stock}
}

func (s *Store) GetProduct(code string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[code]
	if !ok || !st.known {
		return model.Product{}, false
	}
	return st.p, true
}

func (s *Store) GetStock(code string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[code].stock
}

func (s *Store) HasStock(code string) bool {
	return s.GetStock(code) > 0
}

// RemoveItem takes one unit out of stock; empty stock is left alone.
func (s *Store) RemoveItem(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[code]
	if !ok || st.stock <= 0 {
		return
	}
	st.stock--
	s.m[code] = st
}

// AddStock increases the stock of code. Stock for a code without a catalog
// entry is kept but not listed.
func (s *Store) AddStock(code string, quantity int) {
	if code == "" || quantity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[code]
	st.stock += quantity
	s.m[code] = st
}

// ListProducts returns the catalog ordered by code.
func (s *Store) ListProducts() []model.ProductListing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProductListing, 0, len(s.m))
	for _, st := range s.m {
		if !st.known {
			continue
		}
		out = append(out, model.ProductListing{Product: st.p, Stock: st.stock})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
