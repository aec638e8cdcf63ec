// Package main boots the Vending Machine Simulator HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	httpapi "github.com/fairyhunter13/vending-machine-simulator/internal/http"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/machine"
	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/queue"
	"github.com/fairyhunter13/vending-machine-simulator/internal/store"
)

func main() {
	obs.InitLogger()
	defer obs.Sync()
	if err := config.LoadDotEnv(".env"); err != nil {
		obs.Logger.Warn("env_file_error", zap.Error(err))
	}
	cfg := config.Load()
	obs.Logger.Info("service_starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j, closeJournal := openJournal(ctx, cfg)
	defer closeJournal()

	q := queue.New(128)
	mgr := queue.NewManager(cfg, q, j)
	mgr.SeedSequence(j.LastSequence())
	mgr.Start(ctx)

	coins := money.NewCoinStock()
	for d, n := range cfg.CoinSeed {
		coins.AddCoins(d, n)
	}
	m := machine.New(store.Default(), machine.WithCoinStock(coins), machine.WithLogger(mgr))
	obs.Logger.Info("machine_ready",
		zap.String("session_id", m.SessionID()),
		zap.String("coin_total", money.FormatAmount(coins.Total())),
	)

	app := httpapi.NewApp(cfg, m, j, mgr)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", zap.Error(err))
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", zap.String("signal", s.String()))

	app.StartShutdown()
	obs.Logger.Info("shutdown_drain_begin",
		zap.Int("backlog_size", mgr.BacklogSize()),
		zap.Int("worker_count", mgr.WorkerCount()),
	)

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warn("shutdown_drain_timeout")
	} else {
		obs.Logger.Info("shutdown_drain_complete")
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", zap.Error(err))
	}
	mgr.Stop()
	obs.Logger.Info("service_stopped")
}

// openJournal builds the transaction journal, mirrored to Redis when
// REDIS_ADDR is set. A Redis that cannot be reached at startup is logged and
// the journal starts empty.
func openJournal(ctx context.Context, cfg config.Config) (*journal.Journal, func()) {
	if cfg.RedisAddr == "" {
		return journal.New(journal.WithLogger(obs.Logger)), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	p := journal.NewRedisPersister(client, cfg.RedisLogKey, journal.BreakerConfig{
		ConsecutiveFailures: uint32(cfg.BreakerConsecutiveFailures),
		OpenTimeout:         cfg.BreakerOpenTimeout,
	}, obs.Logger)
	j := journal.New(
		journal.WithPersister(p, cfg.PersistTimeout),
		journal.WithLogger(obs.Logger),
	)
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := j.Restore(rctx); err != nil {
		obs.Logger.Warn("journal_restore_failed", zap.String("redis_addr", cfg.RedisAddr), zap.Error(err))
	} else {
		obs.Logger.Info("journal_restored", zap.Int("entries", len(j.All())))
	}
	return j, func() { _ = client.Close() }
}
