package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"divvy/internal/amqp"
	"divvy/internal/config"
	applog "divvy/internal/log"
	"divvy/internal/services"
	"divvy/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "recurring-worker")
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Publish generated transactions on the bus so the API server can push
	// them to connected clients.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
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

	ledgerService := services.NewLedger(store, events, nil)
	processor := services.NewRecurringProcessor(store, ledgerService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	runPass := func(now time.Time) {
		count, err := processor.ProcessAllUsers(ctx, now)
		if err != nil {
			logger.Error("Recurring pass failed", "error", err)
			return
		}
		logger.Info("Recurring pass complete", "transactions_created", count)
	}

	// One pass on startup, then on every tick. A pass advances each due
	// template by a single period, so catching up after downtime takes one
	// pass per missed period.
	runPass(time.Now())

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			return
		case now := <-ticker.C:
			runPass(now)
		}
	}
}
