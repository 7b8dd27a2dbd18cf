package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rocjay1/spend-analytics/internal/amqp"
	"github.com/rocjay1/spend-analytics/internal/config"
	"github.com/rocjay1/spend-analytics/internal/handler"
	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/recompute"
	"github.com/rocjay1/spend-analytics/internal/storage"
	"github.com/rocjay1/spend-analytics/internal/worker"
	"github.com/shopspring/decimal"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("Starting analytics worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	amqpClient, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewRecomputeWorker(recompute.New(store, store), store, amqpClient, cfg.FanoutLimit)

	// Catch up on anything that changed while the worker was down.
	if err := w.CatchUp(ctx); err != nil {
		logger.Error("Startup catch-up failed", "error", err)
	}

	go func() {
		if err := amqpClient.ConsumeRecompute(ctx, w.HandleRecomputeMessage); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	ticker := time.NewTicker(cfg.RecomputeInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Sweep(ctx, models.ReasonNightly); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	}()

	deps := &handler.Dependencies{
		Database:    store,
		Queue:       amqpClient,
		FanoutLimit: cfg.FanoutLimit,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/analytics", deps.HandleGetAnalytics)
	mux.HandleFunc("POST /api/analytics/recompute", deps.HandleRequestRecompute)
	mux.HandleFunc("POST /api/transactions/changed", deps.HandleTransactionWritten)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	server := &http.Server{Addr: ":" + cfg.HandlerPort, Handler: mux}

	go func() {
		logger.Info("Starting HTTP server", "port", cfg.HandlerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
