// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
)

const defaultCoinSeed = "200:10,100:10,50:10,20:10,10:10"

// Config holds configuration knobs for the HTTP server, the journal
// dispatcher, and the machine's initial coin float.
type Config struct {
	HTTPAddr                string
	ShutdownTimeout         time.Duration
	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int

	CoinSeed map[money.Denomination]int

	RedisAddr                  string
	RedisLogKey                string
	PersistTimeout             time.Duration
	BreakerConsecutiveFailures int
	BreakerOpenTimeout         time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// posenv is atoienv for values that must be positive; anything else falls
// back to def.
func posenv(key string, def int) int {
	if n := atoienv(key, def); n > 0 {
		return n
	}
	return def
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// LoadDotEnv copies KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set keep their value and missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// ParseCoinSeed reads "value:count" pairs separated by commas. Pairs that do
// not parse, name an unknown denomination, or carry a non-positive count are
// skipped.
func ParseCoinSeed(s string) map[money.Denomination]int {
	out := map[money.Denomination]int{}
	for _, pair := range strings.Split(s, ",") {
		value, count, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || !money.IsLegal(money.Denomination(v)) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n <= 0 {
			continue
		}
		out[money.Denomination(v)] += n
	}
	return out
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		HTTPAddr:                getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:         durenvs("SHUTDOWN_TIMEOUT", 15),
		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 100),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 5000),

		CoinSeed: ParseCoinSeed(getenv("COIN_SEED", defaultCoinSeed)),

		RedisAddr:                  getenv("REDIS_ADDR", ""),
		RedisLogKey:                getenv("REDIS_LOG_KEY", "vending-machine-logs"),
		PersistTimeout:             durenvms("PERSIST_TIMEOUT_MS", 500),
		BreakerConsecutiveFailures: posenv("BREAKER_CONSECUTIVE_FAILURES", 3),
		BreakerOpenTimeout:         durenvs("BREAKER_OPEN_TIMEOUT", 30),
	}
}
