package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
)

var allKeys = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "WORKER_MIN", "WORKER_MAX", "WORKER_COUNT",
	"SCALE_INTERVAL_MS", "SCALE_UP_BACKLOG_PER_WORKER", "SCALE_DOWN_IDLE_TICKS",
	"QUEUE_HIGH_WATERMARK", "COIN_SEED", "REDIS_ADDR", "REDIS_LOG_KEY",
	"PERSIST_TIMEOUT_MS", "BREAKER_CONSECUTIVE_FAILURES", "BREAKER_OPEN_TIMEOUT",
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.WorkerMin != 1 || c.WorkerMax != 4 || c.InitialWorkerCount != 1 {
		t.Fatalf("worker bounds default: %+v", c)
	}
	if c.ScaleInterval != 500*time.Millisecond {
		t.Fatalf("ScaleInterval default")
	}
	if c.ScaleUpBacklogPerWorker != 100 || c.ScaleDownIdleTicks != 6 {
		t.Fatalf("scale thresholds default")
	}
	if c.QueueHighWatermark != 5000 {
		t.Fatalf("high watermark default")
	}
	want := map[money.Denomination]int{200: 10, 100: 10, 50: 10, 20: 10, 10: 10}
	if len(c.CoinSeed) != len(want) {
		t.Fatalf("coin seed default: %v", c.CoinSeed)
	}
	for d, n := range want {
		if c.CoinSeed[d] != n {
			t.Fatalf("coin seed %d: want %d got %d", d, n, c.CoinSeed[d])
		}
	}
	if c.RedisAddr != "" || c.RedisLogKey != "vending-machine-logs" {
		t.Fatalf("redis defaults")
	}
	if c.PersistTimeout != 500*time.Millisecond {
		t.Fatalf("persist timeout default")
	}
	if c.BreakerConsecutiveFailures != 3 || c.BreakerOpenTimeout != 30*time.Second {
		t.Fatalf("breaker defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("WORKER_MIN", "2")
	t.Setenv("WORKER_MAX", "3")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("SCALE_INTERVAL_MS", "250")
	t.Setenv("SCALE_UP_BACKLOG_PER_WORKER", "10")
	t.Setenv("SCALE_DOWN_IDLE_TICKS", "2")
	t.Setenv("QUEUE_HIGH_WATERMARK", "99")
	t.Setenv("COIN_SEED", "50:4,5:2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_LOG_KEY", "vm")
	t.Setenv("PERSIST_TIMEOUT_MS", "100")
	t.Setenv("BREAKER_CONSECUTIVE_FAILURES", "5")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "7")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.ShutdownTimeout != 2*time.Second {
		t.Fatalf("ShutdownTimeout env")
	}
	if c.WorkerMin != 2 || c.WorkerMax != 3 || c.InitialWorkerCount != 2 {
		t.Fatalf("workers env")
	}
	if c.ScaleInterval != 250*time.Millisecond {
		t.Fatalf("ScaleInterval env")
	}
	if c.ScaleUpBacklogPerWorker != 10 || c.ScaleDownIdleTicks != 2 {
		t.Fatalf("scale thresholds env")
	}
	if c.QueueHighWatermark != 99 {
		t.Fatalf("high watermark env")
	}
	if len(c.CoinSeed) != 2 || c.CoinSeed[50] != 4 || c.CoinSeed[5] != 2 {
		t.Fatalf("coin seed env: %v", c.CoinSeed)
	}
	if c.RedisAddr != "localhost:6379" || c.RedisLogKey != "vm" {
		t.Fatalf("redis env")
	}
	if c.PersistTimeout != 100*time.Millisecond {
		t.Fatalf("persist timeout env")
	}
	if c.BreakerConsecutiveFailures != 5 || c.BreakerOpenTimeout != 7*time.Second {
		t.Fatalf("breaker env")
	}
}

func TestLoadBreakerFailuresMustBePositive(t *testing.T) {
	for _, v := range []string{"-1", "0", "abc"} {
		t.Setenv("BREAKER_CONSECUTIVE_FAILURES", v)
		if c := Load(); c.BreakerConsecutiveFailures != 3 {
			t.Fatalf("BREAKER_CONSECUTIVE_FAILURES=%s: expected default 3, got %d", v, c.BreakerConsecutiveFailures)
		}
	}
}

func TestParseCoinSeedSkipsInvalid(t *testing.T) {
	got := ParseCoinSeed("200:2, 3:5,abc:1,100:x,50:-1,20,10:0, 100:1 ,100:2")
	if len(got) != 2 {
		t.Fatalf("expected 2 denominations, got %v", got)
	}
	if got[200] != 2 || got[100] != 3 {
		t.Fatalf("unexpected seed: %v", got)
	}
	if len(ParseCoinSeed("")) != 0 {
		t.Fatalf("expected empty seed")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HTTP_ADDR=:7070\nREDIS_LOG_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")
	t.Setenv("REDIS_LOG_KEY", "from-env")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	c := Load()
	if c.HTTPAddr != ":7070" {
		t.Fatalf("expected HTTP_ADDR from file, got %q", c.HTTPAddr)
	}
	if c.RedisLogKey != "from-env" {
		t.Fatalf("expected existing env to win, got %q", c.RedisLogKey)
	}
}
