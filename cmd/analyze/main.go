// Command analyze computes an analytics summary from a CSV export and prints
// it as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rocjay1/spend-analytics/internal/analytics"
	"github.com/rocjay1/spend-analytics/internal/csvparse"
	"github.com/rocjay1/spend-analytics/internal/records"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("analyze failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	csvPath := fs.String("csv", "-", "CSV file with Date, Type, Category, Amount columns (- for stdin)")
	nowFlag := fs.String("now", "", "reference time (RFC3339 or YYYY-MM-DD); defaults to the current time")
	indent := fs.Bool("indent", false, "indent the JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := time.Now().UTC()
	if *nowFlag != "" {
		t, ok := records.ParseDate(*nowFlag)
		if !ok {
			return fmt.Errorf("invalid -now value %q", *nowFlag)
		}
		now = t
	}

	in := stdin
	if *csvPath != "-" {
		f, err := os.Open(*csvPath)
		if err != nil {
			return fmt.Errorf("failed to open CSV: %w", err)
		}
		defer f.Close()
		in = f
	}

	txns, rowErrors := csvparse.Parse(in)
	for _, e := range rowErrors {
		slog.Warn("skipped CSV row", "error", e)
	}
	if txns == nil {
		return fmt.Errorf("failed to read CSV: %v", rowErrors)
	}

	summary := analytics.Compute(now, txns)
	slog.Info("computed analytics summary",
		"transactions_count", len(txns),
		"skipped_rows", len(rowErrors),
		"now", now.Format(time.RFC3339),
	)

	enc := json.NewEncoder(stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(summary)
}
