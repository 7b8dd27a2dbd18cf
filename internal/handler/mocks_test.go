package handler

import (
	"context"
	"sync"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
)

type MockDatabaseClient struct {
	ListTransactionsFunc func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error)
	ListUsersFunc        func(ctx context.Context) ([]string, error)
	SaveSummaryFunc      func(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error)
	GetSummaryFunc       func(ctx context.Context, userID string) (*models.AnalyticsSummary, error)
}

func (m *MockDatabaseClient) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID, start, end)
	}
	return nil, nil
}

func (m *MockDatabaseClient) ListUsers(ctx context.Context) ([]string, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error) {
	if m.SaveSummaryFunc != nil {
		return m.SaveSummaryFunc(ctx, userID, summary)
	}
	return time.Now().UTC(), nil
}

func (m *MockDatabaseClient) GetSummary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	if m.GetSummaryFunc != nil {
		return m.GetSummaryFunc(ctx, userID)
	}
	return nil, nil
}

type MockBlobClient struct {
	ArchiveSummaryFunc   func(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error)
	ListSnapshotsFunc    func(ctx context.Context, userID string) ([]string, error)
	DownloadSnapshotFunc func(ctx context.Context, userID, name string) (*models.AnalyticsSummary, error)
}

func (m *MockBlobClient) ArchiveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error) {
	if m.ArchiveSummaryFunc != nil {
		return m.ArchiveSummaryFunc(ctx, userID, summary)
	}
	return "", nil
}

func (m *MockBlobClient) ListSnapshots(ctx context.Context, userID string) ([]string, error) {
	if m.ListSnapshotsFunc != nil {
		return m.ListSnapshotsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBlobClient) DownloadSnapshot(ctx context.Context, userID, name string) (*models.AnalyticsSummary, error) {
	if m.DownloadSnapshotFunc != nil {
		return m.DownloadSnapshotFunc(ctx, userID, name)
	}
	return nil, nil
}

type MockQueueClient struct {
	mu                   sync.Mutex
	EnqueueRecomputeFunc func(ctx context.Context, msg models.RecomputeMessage) error
	Enqueued             []models.RecomputeMessage
}

func (m *MockQueueClient) EnqueueRecompute(ctx context.Context, msg models.RecomputeMessage) error {
	if m.EnqueueRecomputeFunc != nil {
		if err := m.EnqueueRecomputeFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Enqueued = append(m.Enqueued, msg)
	return nil
}
