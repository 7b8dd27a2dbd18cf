package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/records"
)

// summaryRowKey is the RowKey of the single summary entity under each user partition.
const summaryRowKey = "summary"

// DatabaseService handles interactions with Azure Table Storage.
// Transactions are partitioned by user ID; summaries live in their own table
// under PartitionKey = user ID, RowKey = "summary".
type DatabaseService struct {
	serviceClient     *aztables.ServiceClient
	transactionsTable string
	analyticsTable    string
	now               func() time.Time
}

// NewDatabaseService creates a new DatabaseService instance.
func NewDatabaseService() (*DatabaseService, error) {
	tableURL := os.Getenv("TABLE_SERVICE_URL")
	if tableURL == "" {
		return nil, fmt.Errorf("TABLE_SERVICE_URL environment variable is required")
	}

	transactionsTable := getEnv("TRANSACTIONS_TABLE", "transactions")
	analyticsTable := getEnv("ANALYTICS_TABLE", "analytics")

	var client *aztables.ServiceClient

	// Check if running locally with Azurite (http endpoint)
	if isLocal(tableURL) {
		slog.Info("using Azurite credentials for database service")
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		// Production: Managed Identity
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	svc := &DatabaseService{
		serviceClient:     client,
		transactionsTable: transactionsTable,
		analyticsTable:    analyticsTable,
		now:               time.Now,
	}

	// Ensure tables exist
	if err := svc.CreateTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("database service initialized successfully",
		"table_url", tableURL,
		"transactions_table", transactionsTable,
		"analytics_table", analyticsTable,
	)
	return svc, nil
}

// CreateTables ensures all required tables exist in Azure Table Storage.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	for _, tableName := range []string{s.transactionsTable, s.analyticsTable} {
		_, err := s.serviceClient.CreateTable(ctx, tableName, nil)
		if err != nil {
			if hasErrorCode(err, "TableAlreadyExists") {
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *DatabaseService) getClient(tableName string) *aztables.Client {
	return s.serviceClient.NewClient(tableName)
}

// ListTransactions returns the user's transactions dated within [start, end).
func (s *DatabaseService) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionRecord, error) {
	client := s.getClient(s.transactionsTable)

	filter := transactionsFilter(userID, start, end)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
	})

	txns := []models.TransactionRecord{}
	skipped := 0
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}

		for _, entity := range resp.Entities {
			rec, err := recordFromEntity(entity)
			if err != nil {
				skipped++
				continue
			}
			txns = append(txns, rec)
		}
	}

	if skipped > 0 {
		slog.Warn("skipped undecodable transaction entities", "user_id", userID, "skipped_count", skipped)
	}
	return txns, nil
}

// ListUsers returns the distinct user IDs that own at least one transaction,
// in the order the table returns them.
func (s *DatabaseService) ListUsers(ctx context.Context) ([]string, error) {
	client := s.getClient(s.transactionsTable)

	selectFields := "PartitionKey"
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Select: &selectFields,
	})

	seen := make(map[string]bool)
	users := []string{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed struct {
				PartitionKey string `json:"PartitionKey"`
			}
			if err := json.Unmarshal(entity, &parsed); err != nil || parsed.PartitionKey == "" {
				continue
			}
			if !seen[parsed.PartitionKey] {
				seen[parsed.PartitionKey] = true
				users = append(users, parsed.PartitionKey)
			}
		}
	}

	return users, nil
}

// SaveSummary merge-writes the user's summary entity and returns the
// updatedAt timestamp stored with it.
func (s *DatabaseService) SaveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (time.Time, error) {
	updatedAt := s.now().UTC()

	entity, err := summaryEntity(userID, summary, updatedAt)
	if err != nil {
		return time.Time{}, err
	}

	client := s.getClient(s.analyticsTable)
	_, err = client.UpsertEntity(ctx, entity, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to upsert summary entity: %w", err)
	}

	slog.Info("saved analytics summary", "user_id", userID, "table", s.analyticsTable)
	return updatedAt, nil
}

// GetSummary reads the stored summary for a user.
func (s *DatabaseService) GetSummary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	client := s.getClient(s.analyticsTable)

	resp, err := client.GetEntity(ctx, userID, summaryRowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get summary entity: %w", err)
	}

	summary, err := summaryFromEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// transactionsFilter builds the OData filter for one user's window.
// The Date property must be stored as Edm.DateTime for the range to apply.
func transactionsFilter(userID string, start, end time.Time) string {
	return fmt.Sprintf("PartitionKey eq '%s' and Date ge datetime'%s' and Date lt datetime'%s'",
		escapeODataString(userID),
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
}

func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func recordFromEntity(entity []byte) (models.TransactionRecord, error) {
	var parsed map[string]any
	if err := json.Unmarshal(entity, &parsed); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("failed to decode transaction entity: %w", err)
	}

	rec := records.FromFields(parsed)
	if rec.ID == "" {
		if rk, ok := parsed["RowKey"].(string); ok {
			rec.ID = rk
		}
	}
	return rec, nil
}

// summaryEntity encodes a summary as a table entity. Nested values are stored
// as JSON strings because table properties are flat.
func summaryEntity(userID string, summary models.AnalyticsSummary, updatedAt time.Time) ([]byte, error) {
	monthly, err := json.Marshal(summary.MonthlyTotals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal monthly totals: %w", err)
	}
	forecast, err := json.Marshal(summary.Forecast)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forecast: %w", err)
	}
	insights, err := json.Marshal(summary.Insights)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal insights: %w", err)
	}

	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: userID,
			RowKey:       summaryRowKey,
		},
		Properties: map[string]any{
			"UpdatedAt":     aztables.EDMDateTime(updatedAt.UTC()),
			"WindowMonths":  int32(summary.WindowMonths),
			"MonthlyTotals": string(monthly),
			"Forecast":      string(forecast),
			"Insights":      string(insights),
		},
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary entity: %w", err)
	}
	return data, nil
}

func summaryFromEntity(entity []byte) (*models.AnalyticsSummary, error) {
	var parsed map[string]any
	if err := json.Unmarshal(entity, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode summary entity: %w", err)
	}

	summary := &models.AnalyticsSummary{
		MonthlyTotals: []models.MonthlyTotal{},
		Insights:      []models.Insight{},
	}
	if t, ok := records.ParseDate(parsed["UpdatedAt"]); ok {
		summary.UpdatedAt = t
	}
	if v, ok := parsed["WindowMonths"].(float64); ok {
		summary.WindowMonths = int(v)
	}

	fields := []struct {
		key    string
		target any
	}{
		{"MonthlyTotals", &summary.MonthlyTotals},
		{"Forecast", &summary.Forecast},
		{"Insights", &summary.Insights},
	}
	for _, f := range fields {
		raw, ok := parsed[f.key].(string)
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), f.target); err != nil {
			return nil, fmt.Errorf("failed to decode summary field %s: %w", f.key, err)
		}
	}

	return summary, nil
}
