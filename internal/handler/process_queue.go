package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/recompute"
)

// invokeRequest represents the payload from Azure Functions Custom Handler.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// ProcessQueue handles the queue trigger that recomputes one user's summary.
// Messages that can never succeed are consumed with 200; store failures
// return 500 so the host retries.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var invokeReq invokeRequest
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	queueItemVal, ok := invokeReq.Data["queueItem"]
	if !ok {
		queueItemVal, ok = invokeReq.Data["queueitem"]
		if !ok {
			WriteError(w, http.StatusBadRequest, "Missing queueItem in Data")
			return
		}
	}

	msg, err := decodeQueueItem(queueItemVal)
	if err != nil {
		slog.Warn("discarding undecodable recompute message", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	slog.Info("processing recompute message",
		"user_id", msg.UserID,
		"request_id", msg.RequestID,
		"reason", msg.Reason,
	)

	summary, err := d.recomputer().Recompute(r.Context(), msg.UserID)
	if err != nil {
		if errors.Is(err, recompute.ErrMissingUser) {
			slog.Warn("discarding recompute message without user", "request_id", msg.RequestID)
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.Error("failed to recompute analytics", "user_id", msg.UserID, "request_id", msg.RequestID, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to recompute analytics: %v", err))
		return
	}

	slog.Info("queue processing complete",
		"user_id", msg.UserID,
		"request_id", msg.RequestID,
		"updated_at", summary.UpdatedAt,
	)
	w.WriteHeader(http.StatusOK)
}

// decodeQueueItem accepts the queue item as JSON text, base64-encoded JSON,
// or an object the host has already parsed.
func decodeQueueItem(v any) (models.RecomputeMessage, error) {
	var msg models.RecomputeMessage

	var raw []byte
	switch item := v.(type) {
	case string:
		raw = []byte(strings.TrimSpace(item))
		if !json.Valid(raw) {
			decoded, err := base64.StdEncoding.DecodeString(string(raw))
			if err != nil {
				return msg, fmt.Errorf("queueItem is neither JSON nor base64")
			}
			raw = decoded
		}
	case map[string]any:
		b, err := json.Marshal(item)
		if err != nil {
			return msg, fmt.Errorf("failed to re-encode queueItem: %w", err)
		}
		raw = b
	default:
		return msg, fmt.Errorf("queueItem has unsupported type %T", v)
	}

	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("invalid queueItem JSON: %w", err)
	}
	msg.UserID = strings.TrimSpace(msg.UserID)
	return msg, nil
}
