package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// ErrPersistenceUnavailable is returned while the breaker around Redis is open.
var ErrPersistenceUnavailable = errors.New("journal persistence unavailable")

// BreakerConfig tunes the circuit breaker guarding Redis writes.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// RedisPersister keeps journal entries as JSON documents in a Redis list.
type RedisPersister struct {
	client  redis.Cmdable
	key     string
	breaker *gobreaker.CircuitBreaker
}

func NewRedisPersister(client redis.Cmdable, key string, cfg BreakerConfig, log *zap.Logger) *RedisPersister {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:    "journal-redis",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &RedisPersister{
		client:  client,
		key:     key,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *RedisPersister) Load(ctx context.Context) ([]model.LogEntry, error) {
	raw, err := p.client.LRange(ctx, p.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load journal %q: %w", p.key, err)
	}
	entries := make([]model.LogEntry, 0, len(raw))
	for i, doc := range raw {
		var e model.LogEntry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("decode journal entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (p *RedisPersister) Append(ctx context.Context, entry model.LogEntry) error {
	doc, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.client.RPush(ctx, p.key, doc).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("clear journal %q: %w", p.key, err)
	}
	return nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (p *RedisPersister) State() string {
	return p.breaker.State().String()
}
