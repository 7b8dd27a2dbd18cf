// Package recompute rebuilds a user's analytics summary from a record store
// and writes it to a summary sink.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocjay1/spend-analytics/internal/analytics"
	"github.com/rocjay1/spend-analytics/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrMissingUser is returned when a recompute is requested without a user ID.
var ErrMissingUser = errors.New("user id is required")

// RecordStore supplies a user's transactions dated within [start, end).
type RecordStore interface {
	ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error)
}

// SummarySink merge-writes a summary for a user and returns the updatedAt it assigned.
type SummarySink interface {
	SaveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error)
}

// SnapshotArchiver keeps a copy of every stored summary.
type SnapshotArchiver interface {
	ArchiveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error)
}

// Recomputer wires the analytics engine between a record store and a sink.
type Recomputer struct {
	records RecordStore
	sink    SummarySink
	archive SnapshotArchiver
	now     func() time.Time
}

// Option configures a Recomputer.
type Option func(*Recomputer)

// WithArchive archives each saved summary. Archive failures are logged only.
func WithArchive(a SnapshotArchiver) Option {
	return func(r *Recomputer) { r.archive = a }
}

// WithClock overrides the reference time used to build the window.
func WithClock(now func() time.Time) Option {
	return func(r *Recomputer) { r.now = now }
}

// New creates a Recomputer.
func New(records RecordStore, sink SummarySink, opts ...Option) *Recomputer {
	r := &Recomputer{
		records: records,
		sink:    sink,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recompute rebuilds and stores the summary for one user.
func (r *Recomputer) Recompute(ctx context.Context, userID string) (models.AnalyticsSummary, error) {
	if userID == "" {
		return models.AnalyticsSummary{}, ErrMissingUser
	}

	now := r.now().UTC()
	window := analytics.NewWindow(now)

	txns, err := r.records.ListTransactions(ctx, userID, window.Start(), window.End())
	if err != nil {
		return models.AnalyticsSummary{}, fmt.Errorf("failed to list transactions for %s: %w", userID, err)
	}

	summary := analytics.Compute(now, txns)
	slog.Info("computed analytics summary",
		"user_id", userID,
		"transactions_count", len(txns),
		"forecast", summary.Forecast.NextMonth.StringFixed(2),
		"trend_percent", summary.Forecast.TrendPercent,
		"insights_count", len(summary.Insights),
	)

	updatedAt, err := r.sink.SaveSummary(ctx, userID, summary)
	if err != nil {
		return models.AnalyticsSummary{}, fmt.Errorf("failed to save summary for %s: %w", userID, err)
	}
	summary.UpdatedAt = updatedAt

	if r.archive != nil {
		name, err := r.archive.ArchiveSummary(ctx, userID, summary)
		if err != nil {
			slog.Warn("failed to archive summary snapshot", "user_id", userID, "error", err)
		} else {
			slog.Info("archived summary snapshot", "user_id", userID, "snapshot", name)
		}
	}

	return summary, nil
}

// RecomputeAll recomputes every user with at most limit running at once.
// All users are attempted; the failures are joined into the returned error.
func (r *Recomputer) RecomputeAll(ctx context.Context, userIDs []string, limit int) error {
	return ForEachUser(ctx, userIDs, limit, func(ctx context.Context, userID string) error {
		_, err := r.Recompute(ctx, userID)
		return err
	})
}

// ForEachUser runs fn for every user with bounded concurrency and joins the errors.
func ForEachUser(ctx context.Context, userIDs []string, limit int, fn func(context.Context, string) error) error {
	if limit <= 0 {
		limit = 1
	}

	errs := make([]error, len(userIDs))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, userID := range userIDs {
		g.Go(func() error {
			if err := fn(ctx, userID); err != nil {
				slog.Error("user task failed", "user_id", userID, "error", err)
				errs[i] = err
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
