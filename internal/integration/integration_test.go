package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	httpapi "github.com/fairyhunter13/vending-machine-simulator/internal/http"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/machine"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/queue"
	"github.com/fairyhunter13/vending-machine-simulator/internal/store"
)

type stack struct {
	mgr     *queue.Manager
	journal *journal.Journal
	machine *machine.Machine
	h       http.Handler
}

func newStack(t *testing.T, j *journal.Journal) *stack {
	t.Helper()
	cfg := config.Load()
	obs.InitLogger()
	mgr := queue.NewManager(cfg, queue.New(128), j)
	mgr.SeedSequence(j.LastSequence())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { cancel(); mgr.Stop() })
	mgr.Start(ctx)
	coins := money.NewCoinStock()
	for d, n := range cfg.CoinSeed {
		coins.AddCoins(d, n)
	}
	m := machine.New(store.Default(), machine.WithCoinStock(coins), machine.WithLogger(mgr))
	return &stack{mgr: mgr, journal: j, machine: m, h: httpapi.NewRouter(httpapi.NewApp(cfg, m, j, mgr))}
}

func (s *stack) post(t *testing.T, path, body string) int {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(http.MethodPost, path, nil)
	} else {
		r = httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, r)
	return w.Code
}

func (s *stack) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if ok := s.mgr.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
}

func TestIntegration_SessionThenJournal(t *testing.T) {
	s := newStack(t, journal.New())

	steps := []struct {
		path, body string
		want       int
	}{
		{"/money", `{"amount":200}`, http.StatusOK},
		{"/selection", `{"code":"A1"}`, http.StatusOK},
		{"/purchase", "", http.StatusOK},
		{"/selection", `{"code":"X1"}`, http.StatusNotFound},
		{"/money", `{"amount":100}`, http.StatusOK},
		{"/selection", `{"code":"B1"}`, http.StatusOK},
		{"/purchase", "", http.StatusPaymentRequired},
		{"/refund", "", http.StatusOK},
		{"/restock", `{"code":"A1","quantity":2}`, http.StatusOK},
	}
	for i, st := range steps {
		if got := s.post(t, st.path, st.body); got != st.want {
			t.Fatalf("step %d %s: expected %d, got %d", i, st.path, st.want, got)
		}
	}
	s.drain(t)

	all := s.journal.All()
	if len(all) != 4 {
		t.Fatalf("expected 4 journal entries, got %d", len(all))
	}
	wantTypes := []model.EntryType{model.EntrySale, model.EntryError, model.EntryError, model.EntryRestock}
	for i, e := range all {
		if e.Type != wantTypes[i] || e.Sequence != uint64(i+1) {
			t.Fatalf("entry %d: got type=%s seq=%d", i, e.Type, e.Sequence)
		}
	}
	if all[0].Sale.Change != 50 || all[0].Sale.SessionID != s.machine.SessionID() {
		t.Fatalf("unexpected sale: %+v", all[0].Sale)
	}
	if all[3].Restock.NewStock != 6 {
		t.Fatalf("expected A1 stock 6 after sale and restock, got %d", all[3].Restock.NewStock)
	}
	if s.journal.TodaysRevenue() != 150 {
		t.Fatalf("expected revenue 150, got %d", s.journal.TodaysRevenue())
	}
}

func TestIntegration_ConcurrentBuyersKeepInvariants(t *testing.T) {
	s := newStack(t, journal.New())
	startTotal := s.machine.CoinStock().Total()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.post(t, "/money", `{"amount":200}`)
			_ = s.post(t, "/selection", `{"code":"C2"}`)
			if s.post(t, "/purchase", "") == http.StatusOK {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.drain(t)

	if sold > 5 {
		t.Fatalf("sold %d units of a product stocked at 5", sold)
	}
	// every cent inserted is either still credit, kept as a sale, or paid out
	paidOut := startTotal - s.machine.CoinStock().Total()
	if 30*200 != s.machine.TotalInserted()+sold*160+paidOut {
		t.Fatalf("money not conserved: credit=%d sold=%d paid_out=%d", s.machine.TotalInserted(), sold, paidOut)
	}
	if got := len(s.journal.ByType(model.EntrySale)); got != sold {
		t.Fatalf("expected %d sale entries, got %d", sold, got)
	}
}

func TestIntegration_JournalSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	newJournal := func() *journal.Journal {
		p := journal.NewRedisPersister(client, "vm-logs", journal.BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Second}, nil)
		return journal.New(journal.WithPersister(p, time.Second))
	}

	first := newStack(t, newJournal())
	_ = first.post(t, "/money", `{"amount":150}`)
	_ = first.post(t, "/selection", `{"code":"A1"}`)
	if got := first.post(t, "/purchase", ""); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
	first.drain(t)

	j := newJournal()
	if err := j.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	second := newStack(t, j)
	_ = second.post(t, "/selection", `{"code":"Q7"}`)
	second.drain(t)

	all := second.journal.All()
	if len(all) != 2 || all[0].Type != model.EntrySale || all[1].Sequence != 2 {
		b, _ := json.Marshal(all)
		t.Fatalf("unexpected restored journal: %s", b)
	}
}
