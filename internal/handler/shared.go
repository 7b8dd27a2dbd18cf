package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocjay1/spend-analytics/internal/recompute"
)

const defaultFanoutLimit = 8

// Dependencies holds the services required by the handlers.
type Dependencies struct {
	Database DatabaseClient
	Blob     BlobClient
	Queue    QueueClient

	// FanoutLimit bounds concurrent enqueues in the nightly trigger.
	FanoutLimit int
	// Now overrides the clock used for recompute windows.
	Now func() time.Time
}

func (d *Dependencies) recomputer() *recompute.Recomputer {
	var opts []recompute.Option
	if d.Blob != nil {
		opts = append(opts, recompute.WithArchive(d.Blob))
	}
	if d.Now != nil {
		opts = append(opts, recompute.WithClock(d.Now))
	}
	return recompute.New(d.Database, d.Database, opts...)
}

func (d *Dependencies) fanoutLimit() int {
	if d.FanoutLimit > 0 {
		return d.FanoutLimit
	}
	return defaultFanoutLimit
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
