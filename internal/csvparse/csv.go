// Package csvparse reads transaction records from CSV exports for batch runs.
package csvparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/rocjay1/spend-analytics/internal/records"
)

// Parse reads a CSV with a header row naming Date, Type, Category, Amount
// and optionally ID. Header names are matched case-insensitively.
// It returns the records and a list of error messages for skipped rows.
func Parse(r io.Reader) ([]models.TransactionRecord, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}

	if len(rows) < 2 {
		return []models.TransactionRecord{}, nil // Empty or header-only
	}

	headers := parseHeaders(rows[0])
	transactions := []models.TransactionRecord{}
	var errors []string

	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < len(headers) {
			errors = append(errors, fmt.Sprintf("Row %d: Not enough fields", rowNum))
			continue
		}

		fields := make(map[string]any, len(headers))
		for j, header := range headers {
			fields[header] = strings.TrimSpace(row[j])
		}

		rec, err := toRecord(fields)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("row-%d", rowNum)
		}
		transactions = append(transactions, rec)
	}

	return transactions, errors
}

func parseHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers
}

func toRecord(fields map[string]any) (models.TransactionRecord, error) {
	rec := records.FromFields(fields)
	if rec.Date.IsZero() {
		for k, v := range fields {
			if strings.EqualFold(k, "date") {
				return rec, fmt.Errorf("invalid Date: %v", v)
			}
		}
		return rec, fmt.Errorf("missing Date")
	}
	return rec, nil
}
