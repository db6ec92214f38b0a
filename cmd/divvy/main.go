package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"divvy/internal/amqp"
	"divvy/internal/config"
	"divvy/internal/http"
	"divvy/internal/ledger"
	"divvy/internal/ledger/memory"
	applog "divvy/internal/log"
	"divvy/internal/notify"
	"divvy/internal/services"
	"divvy/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "divvy")
	applog.SetDefault(logger)

	logger.Info("Starting divvy API server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("Using SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Using in-memory backend")
	}

	// The AMQP bus relays mutations committed by other processes (the
	// recurring worker) into this server's event stream. Without it the
	// server still sees its own mutations through the in-process notifier.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without the event bus", "error", err)
			events = nil
		} else {
			defer events.Close()
			logger.Info("AMQP event bus connected", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled")
	}

	notifier := notify.New()
	ledgerService := services.NewLedger(store, events, notifier)
	recurring := services.NewRecurringProcessor(store, ledgerService)

	server := http.NewServer(":"+cfg.Port, ledgerService, recurring, notifier, cfg.TransactionWindow, cfg.RateLimitPerMinute, logger.WithComponent("http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	if events != nil {
		g.Go(func() error {
			// Relay bus events into the notifier so SSE subscribers see
			// mutations made by the recurring worker too.
			err := events.ConsumeLedgerEvents(ctx, func(ev notify.Event) error {
				notifier.Publish(ev)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("AMQP consumer stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
