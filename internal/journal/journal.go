// Package journal records machine events and answers sales and error
// queries over them. Entries can be mirrored to a Persister so they survive
// restarts.
package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

const dateLayout = "2006-01-02"

// Persister stores journal entries outside the process.
type Persister interface {
	Load(ctx context.Context) ([]model.LogEntry, error)
	Append(ctx context.Context, entry model.LogEntry) error
	Clear(ctx context.Context) error
}

// Popularity counts the sales of one product.
type Popularity struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
}

// Journal is an ordered, in-memory list of log entries. It implements
// machine.Logger.
type Journal struct {
	mu      sync.RWMutex
	entries []model.LogEntry
	lastSeq uint64
	gen     uint64 // bumped by Clear

	// persistMu is held shared while an entry is written out and exclusively
	// by Clear, so a write never lands after the persisted copy is dropped.
	persistMu sync.RWMutex

	now            func() time.Time
	persister      Persister
	persistTimeout time.Duration
	log            *zap.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithPersister mirrors every entry to p.
func WithPersister(p Persister, timeout time.Duration) Option {
	return func(j *Journal) {
		j.persister = p
		j.persistTimeout = timeout
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(j *Journal) { j.log = l }
}

func New(opts ...Option) *Journal {
	j := &Journal{
		now:            time.Now,
		persistTimeout: 500 * time.Millisecond,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Restore replaces the in-memory entries with those held by the persister.
func (j *Journal) Restore(ctx context.Context) error {
	if j.persister == nil {
		return nil
	}
	entries, err := j.persister.Load(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].Sequence < entries[b].Sequence })
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = entries
	j.lastSeq = 0
	if n := len(entries); n > 0 {
		j.lastSeq = entries[n-1].Sequence
	}
	return nil
}

func (j *Journal) LogSale(s model.Sale)       { j.Append(model.SaleEntry(s)) }
func (j *Journal) LogError(f model.Failure)   { j.Append(model.ErrorEntry(f)) }
func (j *Journal) LogRestock(r model.Restock) { j.Append(model.RestockEntry(r)) }

// Append records entry. Entries without a sequence or timestamp are stamped
// here; stamped entries are kept in sequence order whatever order they
// arrive in.
func (j *Journal) Append(entry model.LogEntry) {
	j.mu.Lock()
	if entry.Sequence == 0 {
		entry.Sequence = j.lastSeq + 1
	}
	if entry.Sequence > j.lastSeq {
		j.lastSeq = entry.Sequence
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now().UTC()
	}
	i := sort.Search(len(j.entries), func(i int) bool { return j.entries[i].Sequence > entry.Sequence })
	j.entries = append(j.entries, model.LogEntry{})
	copy(j.entries[i+1:], j.entries[i:])
	j.entries[i] = entry
	gen := j.gen
	j.mu.Unlock()

	j.persist(entry, gen)
}

// persist writes entry unless the journal was cleared after it was recorded.
func (j *Journal) persist(entry model.LogEntry, gen uint64) {
	if j.persister == nil {
		return
	}
	j.persistMu.RLock()
	defer j.persistMu.RUnlock()
	j.mu.RLock()
	cleared := j.gen != gen
	j.mu.RUnlock()
	if cleared {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.persistTimeout)
	defer cancel()
	if err := j.persister.Append(ctx, entry); err != nil {
		j.log.Warn("journal_persist_failed",
			zap.Uint64("sequence", entry.Sequence),
			zap.String("type", string(entry.Type)),
			zap.Error(err),
		)
	}
}

// LastSequence returns the highest sequence number recorded so far.
func (j *Journal) LastSequence() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastSeq
}

// All returns every entry in sequence order.
func (j *Journal) All() []model.LogEntry {
	return j.filter(func(model.LogEntry) bool { return true })
}

// ByType returns the entries of type t.
func (j *Journal) ByType(t model.EntryType) []model.LogEntry {
	return j.filter(func(e model.LogEntry) bool { return e.Type == t })
}

// ByDate returns the entries stamped on date (YYYY-MM-DD, UTC).
func (j *Journal) ByDate(date string) []model.LogEntry {
	return j.filter(func(e model.LogEntry) bool { return e.Timestamp.UTC().Format(dateLayout) == date })
}

// Today returns the entries stamped on the current UTC date.
func (j *Journal) Today() []model.LogEntry {
	return j.ByDate(j.today())
}

// Clear drops every entry, including the persisted copy. It waits for
// writes already in flight; entries recorded before the call and not yet
// written are not persisted.
func (j *Journal) Clear(ctx context.Context) error {
	j.persistMu.Lock()
	defer j.persistMu.Unlock()
	j.mu.Lock()
	j.entries = nil
	j.gen++
	j.mu.Unlock()
	if j.persister == nil {
		return nil
	}
	return j.persister.Clear(ctx)
}

// SalesTotal sums the prices of the sales on date, or of all sales when date
// is empty.
func (j *Journal) SalesTotal(date string) int {
	total := 0
	for _, e := range j.sales(date) {
		total += e.Sale.Price
	}
	return total
}

// ErrorCount counts the errors of kind, or all errors when kind is empty.
func (j *Journal) ErrorCount(kind model.ErrorKind) int {
	n := 0
	for _, e := range j.ByType(model.EntryError) {
		if kind == "" || e.Error.Kind == kind {
			n++
		}
	}
	return n
}

// MostPopularProduct returns the product with the most sales. Ties go to the
// product that sold first.
func (j *Journal) MostPopularProduct() (Popularity, bool) {
	sales := j.ByType(model.EntrySale)
	if len(sales) == 0 {
		return Popularity{}, false
	}
	counts := map[string]*Popularity{}
	order := []string{}
	for _, e := range sales {
		p, ok := counts[e.Sale.ProductCode]
		if !ok {
			p = &Popularity{ProductCode: e.Sale.ProductCode, ProductName: e.Sale.ProductName}
			counts[e.Sale.ProductCode] = p
			order = append(order, e.Sale.ProductCode)
		}
		p.Count++
	}
	best := counts[order[0]]
	for _, code := range order[1:] {
		if counts[code].Count > best.Count {
			best = counts[code]
		}
	}
	return *best, true
}

func (j *Journal) TodaysRevenue() int {
	return j.SalesTotal(j.today())
}

func (j *Journal) TodaysSalesCount() int {
	return len(j.sales(j.today()))
}

func (j *Journal) TodaysErrorCount() int {
	n := 0
	for _, e := range j.Today() {
		if e.Type == model.EntryError {
			n++
		}
	}
	return n
}

func (j *Journal) sales(date string) []model.LogEntry {
	if date == "" {
		return j.ByType(model.EntrySale)
	}
	out := []model.LogEntry{}
	for _, e := range j.ByDate(date) {
		if e.Type == model.EntrySale {
			out = append(out, e)
		}
	}
	return out
}

func (j *Journal) today() string {
	return j.now().UTC().Format(dateLayout)
}

func (j *Journal) filter(keep func(model.LogEntry) bool) []model.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]model.LogEntry, 0, len(j.entries))
	for _, e := range j.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
