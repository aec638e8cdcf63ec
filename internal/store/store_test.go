package store

import (
	"sync"
	"testing"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

func TestStoreDefaultCatalog(t *testing.T) {
	s := Default()
	got := s.ListProducts()
	if len(got) != 6 {
		t.Fatalf("expected 6 products, got %d", len(got))
	}
	if got[0].Code != "A1" || got[0].Name != "Coca Cola" || got[0].Price != 150 || got[0].Stock != 5 {
		t.Fatalf("unexpected first listing: %+v", got[0])
	}
	if got[5].Code != "C2" {
		t.Fatalf("expected listings ordered by code, last=%s", got[5].Code)
	}
}

func TestStoreGetProduct(t *testing.T) {
	s := Default()
	p, ok := s.GetProduct("B1")
	if !ok {
		t.Fatalf("not found")
	}
	if p.Name != "Snickers" || p.Category != "Candy" {
		t.Fatalf("unexpected: %+v", p)
	}
	if _, ok := s.GetProduct("Z9"); ok {
		t.Fatalf("expected unknown code to be absent")
	}
}

func TestStoreRemoveItemStopsAtZero(t *testing.T) {
	s := New()
	s.Upsert(model.Product{Code: "x", Name: "X", Price: 10}, 1)
	s.RemoveItem("x")
	if s.HasStock("x") {
		t.Fatalf("expected no stock")
	}
	s.RemoveItem("x")
	if got := s.GetStock("x"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	s.RemoveItem("unknown")
	if got := s.GetStock("unknown"); got != 0 {
		t.Fatalf("expected 0 for unknown, got %d", got)
	}
}

func TestStoreAddStock(t *testing.T) {
	s := Default()
	s.AddStock("A1", 3)
	if got := s.GetStock("A1"); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	s.AddStock("A1", -2)
	s.AddStock("A1", 0)
	if got := s.GetStock("A1"); got != 8 {
		t.Fatalf("expected non-positive quantities ignored, got %d", got)
	}
	s.AddStock("Q1", 4)
	if got := s.GetStock("Q1"); got != 4 {
		t.Fatalf("expected stock kept for uncataloged code, got %d", got)
	}
	if _, ok := s.GetProduct("Q1"); ok {
		t.Fatalf("uncataloged code must not become a product")
	}
	if n := len(s.ListProducts()); n != 6 {
		t.Fatalf("expected 6 listings, got %d", n)
	}
}

func TestStoreConcurrentRemoves(t *testing.T) {
	s := New()
	s.Upsert(model.Product{Code: "p3", Name: "P3", Price: 1}, 50)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RemoveItem("p3")
		}()
	}
	wg.Wait()
	if got := s.GetStock("p3"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
