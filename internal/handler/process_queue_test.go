package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func queueRequest(t *testing.T, queueItem any) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"Data": map[string]any{"queueItem": queueItem},
	})
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBuffer(body))
}

func TestProcessQueue_Success(t *testing.T) {
	mockDb := &MockDatabaseClient{}
	mockBlob := &MockBlobClient{}
	deps := &Dependencies{
		Database: mockDb,
		Blob:     mockBlob,
		Now:      func() time.Time { return testNow },
	}

	mockDb.ListTransactionsFunc = func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), end)
		return []models.TransactionRecord{
			{Type: models.TransactionTypeExpense, Amount: decimal.NewFromInt(80), Category: "Food", Date: testNow},
		}, nil
	}

	var saved models.AnalyticsSummary
	mockDb.SaveSummaryFunc = func(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error) {
		saved = summary
		return testNow, nil
	}

	archived := ""
	mockBlob.ArchiveSummaryFunc = func(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error) {
		archived = userID
		return userID + "/20250615T120000Z.json", nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"user_id": "user-1", "request_id": "r-1", "reason": "transaction_write"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, saved.WindowMonths)
	assert.True(t, saved.MonthlyTotals[11].Value.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "user-1", archived)
}

func TestProcessQueue_Base64Item(t *testing.T) {
	var listed string
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			ListTransactionsFunc: func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
				listed = userID
				return nil, nil
			},
		},
	}

	item := base64.StdEncoding.EncodeToString([]byte(`{"user_id":"user-2"}`))
	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, item))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", listed)
}

func TestProcessQueue_ObjectItem(t *testing.T) {
	var listed string
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			ListTransactionsFunc: func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
				listed = userID
				return nil, nil
			},
		},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, map[string]any{"user_id": "user-3"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-3", listed)
}

func TestProcessQueue_StoreErrorIsRetried(t *testing.T) {
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			ListTransactionsFunc: func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
				return nil, errors.New("table unavailable")
			},
		},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"user_id": "user-1"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to recompute analytics")
}

func TestProcessQueue_SaveErrorIsRetried(t *testing.T) {
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			SaveSummaryFunc: func(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error) {
				return time.Time{}, errors.New("conflict")
			},
		},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"user_id": "user-1"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProcessQueue_PoisonMessagesAreConsumed(t *testing.T) {
	tests := []struct {
		name string
		item any
	}{
		{"missing user", `{"reason": "nightly"}`},
		{"blank user", `{"user_id": "   "}`},
		{"not json or base64", `%%%`},
		{"wrong type", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			deps := &Dependencies{
				Database: &MockDatabaseClient{
					ListTransactionsFunc: func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
						called = true
						return nil, nil
					},
				},
			}

			w := httptest.NewRecorder()
			deps.ProcessQueue(w, queueRequest(t, tt.item))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.False(t, called)
		})
	}
}

func TestProcessQueue_InvalidBody(t *testing.T) {
	deps := &Dependencies{}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessQueue_MissingQueueItem(t *testing.T) {
	deps := &Dependencies{}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"Data": {}}`))
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing queueItem")
}

func TestProcessQueue_LowercaseQueueItemKey(t *testing.T) {
	var listed string
	deps := &Dependencies{
		Database: &MockDatabaseClient{
			ListTransactionsFunc: func(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
				listed = userID
				return nil, nil
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"Data": {"queueitem": "{\"user_id\":\"user-4\"}"}}`))
	w := httptest.NewRecorder()
	deps.ProcessQueue(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-4", listed)
}
