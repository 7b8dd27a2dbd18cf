// Package storage is the self-hosted record store and summary sink backed by SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/records"

	_ "modernc.org/sqlite"
)

// DateLayout is the layout this package writes to the transactions.date
// column. Rows written by other tools may use any ISO-8601 form SQLite's
// julianday understands; range queries compare instants, not text.
const DateLayout = "2006-01-02T15:04:05Z"

// ErrSummaryNotFound is returned when no summary has been stored for a user.
var ErrSummaryNotFound = models.ErrSummaryNotFound

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ListTransactions returns the user's transactions dated within [start, end).
func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, type, category, date FROM transactions
		 WHERE user_id = ? AND julianday(date) >= julianday(?) AND julianday(date) < julianday(?)
		 ORDER BY julianday(date), id`,
		userID, start.UTC().Format(DateLayout), end.UTC().Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.TransactionRecord{}
	for rows.Next() {
		var id, amount, typ, category, date string
		if err := rows.Scan(&id, &amount, &typ, &category, &date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		rec := models.TransactionRecord{
			ID:       id,
			Amount:   records.ParseAmount(amount),
			Type:     models.TransactionType(typ),
			Category: category,
		}
		if t, ok := records.ParseDate(date); ok {
			rec.Date = t
		} else {
			slog.WarnContext(ctx, "transaction has unparseable date", "user_id", userID, "id", id, "date", date)
		}
		txns = append(txns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txns, nil
}

// ListUsers returns the distinct users that own transactions.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveSummary merge-writes the user's summary row and returns its updated_at.
func (s *SQLiteStore) SaveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error) {
	monthly, err := json.Marshal(summary.MonthlyTotals)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal monthly totals: %w", err)
	}
	forecast, err := json.Marshal(summary.Forecast)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal forecast: %w", err)
	}
	insights, err := json.Marshal(summary.Insights)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal insights: %w", err)
	}

	updatedAt := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analytics_summaries (user_id, updated_at, window_months, monthly_totals, forecast, insights)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   updated_at = excluded.updated_at,
		   window_months = excluded.window_months,
		   monthly_totals = excluded.monthly_totals,
		   forecast = excluded.forecast,
		   insights = excluded.insights`,
		userID, updatedAt.Format(time.RFC3339Nano), summary.WindowMonths,
		string(monthly), string(forecast), string(insights))
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert summary: %w", err)
	}

	slog.InfoContext(ctx, "Summary saved to SQLite", "user_id", userID)
	return updatedAt, nil
}

// GetSummary reads the stored summary for a user.
func (s *SQLiteStore) GetSummary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	var updatedAt, monthly, forecast, insights string
	summary := &models.AnalyticsSummary{}

	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at, window_months, monthly_totals, forecast, insights
		 FROM analytics_summaries WHERE user_id = ?`, userID).
		Scan(&updatedAt, &summary.WindowMonths, &monthly, &forecast, &insights)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	if t, ok := records.ParseDate(updatedAt); ok {
		summary.UpdatedAt = t
	}
	if err := json.Unmarshal([]byte(monthly), &summary.MonthlyTotals); err != nil {
		return nil, fmt.Errorf("decode monthly totals: %w", err)
	}
	if err := json.Unmarshal([]byte(forecast), &summary.Forecast); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	if err := json.Unmarshal([]byte(insights), &summary.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}

	return summary, nil
}
