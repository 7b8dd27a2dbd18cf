// Package worker runs recomputes for the self-hosted deployment.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/recompute"
)

// UserLister lists every user that owns transactions.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// Publisher sends recompute requests to the queue.
type Publisher interface {
	PublishRecompute(ctx context.Context, msg models.RecomputeMessage) error
}

// RecomputeWorker consumes recompute requests and periodically sweeps all users.
type RecomputeWorker struct {
	recomputer *recompute.Recomputer
	users      UserLister
	publisher  Publisher
	limit      int
}

func NewRecomputeWorker(recomputer *recompute.Recomputer, users UserLister, publisher Publisher, limit int) *RecomputeWorker {
	return &RecomputeWorker{
		recomputer: recomputer,
		users:      users,
		publisher:  publisher,
		limit:      limit,
	}
}

// HandleRecomputeMessage rebuilds the summary named by msg. A message without
// a user is dropped rather than retried.
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg models.RecomputeMessage) error {
	slog.InfoContext(ctx, "Processing recompute message",
		"user_id", msg.UserID,
		"request_id", msg.RequestID,
		"reason", msg.Reason)

	if _, err := w.recomputer.Recompute(ctx, msg.UserID); err != nil {
		if errors.Is(err, recompute.ErrMissingUser) {
			slog.WarnContext(ctx, "Dropping recompute message without user", "request_id", msg.RequestID)
			return nil
		}
		return fmt.Errorf("recompute %s: %w", msg.UserID, err)
	}
	return nil
}

// CatchUp recomputes every known user in place, without going through the
// queue. Used at startup before the consumer is running.
func (w *RecomputeWorker) CatchUp(ctx context.Context) error {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	slog.InfoContext(ctx, "Recomputing all users", "users_count", len(users))
	return w.recomputer.RecomputeAll(ctx, users, w.limit)
}

// Sweep publishes a recompute request for every known user and returns how
// many were published.
func (w *RecomputeWorker) Sweep(ctx context.Context, reason string) (int, error) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var published atomic.Int64
	err = recompute.ForEachUser(ctx, users, w.limit, func(ctx context.Context, userID string) error {
		if err := w.publisher.PublishRecompute(ctx, models.NewRecomputeMessage(userID, reason)); err != nil {
			return err
		}
		published.Add(1)
		return nil
	})

	slog.InfoContext(ctx, "Recompute sweep finished",
		"users_count", len(users),
		"published_count", published.Load(),
		"reason", reason)

	return int(published.Load()), err
}
