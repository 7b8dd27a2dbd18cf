package handler

import (
	"context"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
)

// DatabaseClient defines the record store and summary sink used by handlers.
type DatabaseClient interface {
	ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error)
	ListUsers(ctx context.Context) ([]string, error)
	SaveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error)
	GetSummary(ctx context.Context, userID string) (*models.AnalyticsSummary, error)
}

// BlobClient defines the snapshot archive operations used by handlers.
type BlobClient interface {
	ArchiveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error)
	ListSnapshots(ctx context.Context, userID string) ([]string, error)
	DownloadSnapshot(ctx context.Context, userID, name string) (*models.AnalyticsSummary, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueRecompute(ctx context.Context, msg models.RecomputeMessage) error
}
