package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/recompute"
)

// HandleNightlyTrigger enqueues a recompute for every user that has
// transactions, so summaries roll forward when the month changes.
func (d *Dependencies) HandleNightlyTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.Info("Starting nightly trigger processing")

	users, err := d.Database.ListUsers(ctx)
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	var enqueued atomic.Int64
	err = recompute.ForEachUser(ctx, users, d.fanoutLimit(), func(ctx context.Context, userID string) error {
		if err := d.Queue.EnqueueRecompute(ctx, models.NewRecomputeMessage(userID, models.ReasonNightly)); err != nil {
			return err
		}
		enqueued.Add(1)
		return nil
	})

	slog.Info("Nightly trigger processing complete",
		"users_count", len(users),
		"enqueued_count", enqueued.Load(),
	)

	if err != nil {
		http.Error(w, "Failed to enqueue some recomputes", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
