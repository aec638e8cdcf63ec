package money

import "sync"

// CoinStock is the ledger of physical coins held by the machine.
type CoinStock struct {
	mu    sync.RWMutex
	coins map[Denomination]int
}

// NewCoinStock returns an empty ledger.
func NewCoinStock() *CoinStock {
	return &CoinStock{coins: make(map[Denomination]int)}
}

// AddCoins puts quantity coins of d into the ledger. Non-positive quantities
// are ignored.
func (s *CoinStock) AddCoins(d Denomination, quantity int) {
	if quantity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coins[d] += quantity
}

// CoinCount returns how many coins of d are held.
func (s *CoinStock) CoinCount(d Denomination) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coins[d]
}

// AllCoins returns a copy of the ledger.
func (s *CoinStock) AllCoins() map[Denomination]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Denomination]int, len(s.coins))
	for d, n := range s.coins {
		out[d] = n
	}
	return out
}

// Total returns the value of all coins held.
func (s *CoinStock) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for d, n := range s.coins {
		total += int(d) * n
	}
	return total
}

// CanMakeChange reports whether MakeChange(amount) would succeed.
func (s *CoinStock) CanMakeChange(amount int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := CalculateChange(amount, s.coins)
	return ok
}

// MakeChange removes coins worth amount from the ledger and returns them.
// The ledger is left untouched when ok is false.
func (s *CoinStock) MakeChange(amount int) (coins []Denomination, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coins, ok = CalculateChange(amount, s.coins)
	if !ok {
		return nil, false
	}
	for _, c := range coins {
		s.coins[c]--
	}
	return coins, true
}
