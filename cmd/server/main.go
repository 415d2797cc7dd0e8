package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheikh-saqib/token-ledger/internal/config"
	"github.com/sheikh-saqib/token-ledger/internal/events/kafka"
	eventsmemory "github.com/sheikh-saqib/token-ledger/internal/events/memory"
	"github.com/sheikh-saqib/token-ledger/internal/httpapi"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/metrics"
	"github.com/sheikh-saqib/token-ledger/internal/service"
	"github.com/sheikh-saqib/token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/token-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/token-ledger/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	deployer, err := cfg.DeployerAddress()
	if err != nil {
		return err
	}
	ledgerOpts, err := cfg.LedgerOptions()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher := openPublisher(cfg, logger)
	defer closePublisher()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := service.NewTokenService(deployer, store,
		service.WithLogger(logger),
		service.WithPublisher(publisher),
		service.WithMetrics(metrics.New(reg)),
		service.WithLedgerOptions(ledgerOpts...),
	)
	if err != nil {
		return err
	}
	if err := svc.Restore(ctx); err != nil {
		return err
	}

	info := svc.Info()
	logger.Info("token ledger deployed",
		"name", info.Name,
		"symbol", info.Symbol,
		"deployer", deployer.Hex(),
		"total_supply", info.TotalSupply.String(),
		"seq", info.Seq,
		"store", cfg.Store,
	)

	handler := httpapi.NewHandler(svc,
		httpapi.WithLogger(logger),
		httpapi.WithRateLimiter(httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (interfaces.JournalStore, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s := memory.NewMemoryJournalStore()
		return s, s.Close, nil
	}
}

// openPublisher uses Kafka when brokers are configured and otherwise keeps
// the most recent events in memory.
func openPublisher(cfg config.Config, logger *slog.Logger) (interfaces.EventPublisher, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		p := eventsmemory.NewBoundedPublisher(1024)
		return p, p.Close
	}
	logger.Info("publishing events to kafka", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.KafkaTopicPrefix)
	p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
	return p, p.Close
}
