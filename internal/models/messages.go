package models

import (
	"time"

	"github.com/google/uuid"
)

// Reasons attached to recompute requests.
const (
	ReasonTransactionWrite = "transaction_write"
	ReasonNightly          = "nightly"
	ReasonOnDemand         = "on_demand"
)

// RecomputeMessage asks for one user's analytics summary to be rebuilt.
type RecomputeMessage struct {
	UserID      string    `json:"user_id"`
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRecomputeMessage creates a message with a fresh request ID.
func NewRecomputeMessage(userID, reason string) RecomputeMessage {
	return RecomputeMessage{
		UserID:      userID,
		RequestID:   uuid.New().String(),
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
}
