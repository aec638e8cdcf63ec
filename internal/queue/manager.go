// Package queue dispatches machine events to the transaction journal through
// an in-memory queue drained by an autoscaled pool of workers.
package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
)

// Sink receives stamped entries. Entries may arrive out of sequence order.
type Sink interface {
	Append(model.LogEntry)
}

// Manager stamps machine events, queues them, and runs the workers that hand
// them to the sink. It implements machine.Logger, so the machine never waits
// on the journal.
type Manager struct {
	cfg    config.Config
	q      *Queue
	sink   Sink
	seq    Sequencer
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config, queue, and sink.
func NewManager(cfg config.Config, q *Queue, sink Sink) *Manager {
	return &Manager{cfg: cfg, q: q, sink: sink, now: time.Now}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(m.cfg.InitialWorkerCount)
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

func (m *Manager) LogSale(s model.Sale)       { m.dispatch(model.SaleEntry(s)) }
func (m *Manager) LogError(f model.Failure)   { m.dispatch(model.ErrorEntry(f)) }
func (m *Manager) LogRestock(r model.Restock) { m.dispatch(model.RestockEntry(r)) }

// dispatch stamps e with the next sequence number and the current time so the
// journal order matches the order events happened in, whatever order the
// workers deliver them. Once intake is closed entries go straight to the sink.
func (m *Manager) dispatch(e model.LogEntry) {
	e.Sequence = m.seq.Next()
	e.Timestamp = m.now().UTC()
	if m.q.Enqueue(e) {
		return
	}
	obs.Logger.Warn("queue intake closed, writing entry directly",
		zap.Uint64("sequence", e.Sequence),
		zap.String("type", string(e.Type)),
	)
	m.sink.Append(e)
}

func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.Info("workers scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Info("workers scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.q.Out():
			m.sink.Append(e)
			m.q.MarkProcessed()
		}
	}
}

// SeedSequence continues numbering after last, typically the highest
// sequence restored into the journal.
func (m *Manager) SeedSequence(last uint64) { m.seq.Seed(last) }

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new enqueues are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// DrainUntil blocks until every queued entry reached the sink or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
