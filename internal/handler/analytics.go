package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/services"
)

func userParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user"))
}

// HandleGetAnalytics returns the stored summary for ?user=.
func (d *Dependencies) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "Missing user")
		return
	}

	summary, err := d.Database.GetSummary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrSummaryNotFound) {
			WriteError(w, http.StatusNotFound, "No analytics summary for user")
			return
		}
		slog.Error("failed to get analytics summary", "user_id", userID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to get analytics summary: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// HandleRequestRecompute queues an on-demand recompute for ?user=.
func (d *Dependencies) HandleRequestRecompute(w http.ResponseWriter, r *http.Request) {
	d.enqueueRecompute(w, r, models.ReasonOnDemand)
}

// HandleTransactionWritten is called by writers after they insert, update or
// delete a transaction for ?user=, and queues a recompute for that user.
func (d *Dependencies) HandleTransactionWritten(w http.ResponseWriter, r *http.Request) {
	d.enqueueRecompute(w, r, models.ReasonTransactionWrite)
}

func (d *Dependencies) enqueueRecompute(w http.ResponseWriter, r *http.Request, reason string) {
	userID := userParam(r)
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "Missing user")
		return
	}

	msg := models.NewRecomputeMessage(userID, reason)
	if err := d.Queue.EnqueueRecompute(r.Context(), msg); err != nil {
		slog.Error("failed to enqueue recompute", "user_id", userID, "reason", reason, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue recompute: "+err.Error())
		return
	}

	slog.Info("queued recompute", "user_id", userID, "reason", reason, "request_id", msg.RequestID)
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"request_id": msg.RequestID,
	})
}

// HandleSnapshots lists a user's archived snapshots, or returns one when
// ?name= is given.
func (d *Dependencies) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "Missing user")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		names, err := d.Blob.ListSnapshots(r.Context(), userID)
		if err != nil {
			slog.Error("failed to list snapshots", "user_id", userID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to list snapshots: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"snapshots": names})
		return
	}

	summary, err := d.Blob.DownloadSnapshot(r.Context(), userID, name)
	switch {
	case errors.Is(err, services.ErrInvalidSnapshotName):
		WriteError(w, http.StatusBadRequest, "Invalid snapshot name")
	case errors.Is(err, services.ErrSnapshotNotFound):
		WriteError(w, http.StatusNotFound, "Snapshot not found")
	case err != nil:
		slog.Error("failed to download snapshot", "user_id", userID, "snapshot", name, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to download snapshot: "+err.Error())
	default:
		WriteJSON(w, http.StatusOK, summary)
	}
}
