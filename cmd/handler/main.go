package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rocjay1/spend-analytics/internal/config"
	"github.com/rocjay1/spend-analytics/internal/handler"
	"github.com/rocjay1/spend-analytics/internal/services"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg := config.Load()

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("Invalid LOG_LEVEL, using info", "error", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Initialize Services
	dbService, err := services.NewDatabaseService()
	if err != nil {
		slog.Error("Failed to init DatabaseService", "error", err)
		os.Exit(1)
	}

	blobService, err := services.NewBlobService()
	if err != nil {
		slog.Error("Failed to init BlobService", "error", err)
		os.Exit(1)
	}

	queueService, err := services.NewQueueService()
	if err != nil {
		slog.Error("Failed to init QueueService", "error", err)
		os.Exit(1)
	}

	deps := &handler.Dependencies{
		Database:    dbService,
		Blob:        blobService,
		Queue:       queueService,
		FanoutLimit: cfg.FanoutLimit,
	}

	// Router
	mux := http.NewServeMux()

	// API Routes
	mux.HandleFunc("GET /api/analytics", deps.HandleGetAnalytics)
	mux.HandleFunc("POST /api/analytics/recompute", deps.HandleRequestRecompute)
	mux.HandleFunc("POST /api/transactions/changed", deps.HandleTransactionWritten)
	mux.HandleFunc("GET /api/analytics/snapshots", deps.HandleSnapshots)

	// Adapter for HTTP Trigger (since enableForwardingHttpRequest is false)
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))

	// Queue and timer triggers are posted by the host without method constraints
	mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	mux.HandleFunc("/NightlyTrigger", deps.HandleNightlyTrigger)

	mux.HandleFunc("/", unmatched)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	slog.Info("Starting server", "port", cfg.HandlerPort)
	if err := http.ListenAndServe(":"+cfg.HandlerPort, loggingMiddleware(mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func unmatched(w http.ResponseWriter, r *http.Request) {
	slog.Debug("unmatched request", "method", r.Method, "path", r.URL.Path)
	http.NotFound(w, r)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// maxBodyPreview bounds how much of a request body is logged at debug level.
const maxBodyPreview = 512

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Read body for logging (and restore it)
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		preview := bodyBytes
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview]
		}
		slog.Debug("incoming request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_type", r.Header.Get("Content-Type"),
			"content_length", r.ContentLength,
			"body_preview", string(preview),
		)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		slog.Info("request completed", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start))
	})
}
