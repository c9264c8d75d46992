package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/models"
)

func sampleResult() *matcher.ReconciliationResult {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	txA := &models.Transaction{ID: "a1", Reference: "R1", Amount: decimal.NewFromInt(100), Date: date, Description: "coffee", Source: models.SourceBank}
	txB := &models.Transaction{ID: "b1", Reference: "R1", Amount: decimal.NewFromInt(100), Date: date, Description: "coffee inv", Source: models.SourceTarget}
	txB2 := &models.Transaction{ID: "b2", Reference: "", Amount: decimal.NewFromInt(42), Date: date, Description: "stray", Source: models.SourceTarget}

	pair := &models.CandidatePair{
		A: txA, B: txB,
		AmountScore: 1.0, TextScore: 0.9, DateScore: 1.0, ReferenceBonus: 1.0,
		Confidence: 0.75,
		AmountDiff: decimal.Zero,
	}

	return &matcher.ReconciliationResult{
		Verdicts: []models.MatchVerdict{
			{Kind: models.VerdictManualReview, Pair: pair, MatchedBy: "fuzzy"},
			{Kind: models.VerdictUnmatched, Transaction: txB2},
		},
		Summary: matcher.ReconciliationSummary{
			TotalA: 1, TotalB: 2, ManualReview: 1, UnmatchedB: 1,
		},
	}
}

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(nil)

	if err := reporter.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Reconciliation Summary",
		"Manual review:        1",
		"Pairs needing review",
		"a1 (R1) <-> b1 (R1)",
		"Unmatched transactions",
		"b2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected console output to contain %q\noutput:\n%s", want, output)
		}
	}
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&ReportConfig{Format: FormatJSON})

	if err := reporter.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded matcher.ReconciliationResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got error: %v", err)
	}
	if len(decoded.Verdicts) != 2 {
		t.Errorf("Expected 2 verdicts in JSON output, got %d", len(decoded.Verdicts))
	}
	if decoded.Summary.ManualReview != 1 {
		t.Errorf("Expected summary in JSON output, got %+v", decoded.Summary)
	}
}

func TestCSVReport(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&ReportConfig{Format: FormatCSV, ShowSubScores: true})

	if err := reporter.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected valid CSV, got error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "verdict" {
		t.Errorf("Expected header row, got %v", rows[0])
	}
	if rows[1][0] != "manual_review" || rows[1][2] != "a1" || rows[1][4] != "b1" {
		t.Errorf("Expected manual review row for a1/b1, got %v", rows[1])
	}
	if rows[2][0] != "unmatched" || rows[2][4] != "b2" {
		t.Errorf("Expected unmatched row for b2, got %v", rows[2])
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFormat
	}{
		{"", FormatConsole},
		{"console", FormatConsole},
		{"JSON", FormatJSON},
		{"csv", FormatCSV},
	}

	for _, tt := range tests {
		format, err := ParseOutputFormat(tt.input)
		if err != nil {
			t.Errorf("ParseOutputFormat(%q) returned error: %v", tt.input, err)
		}
		if format != tt.expected {
			t.Errorf("ParseOutputFormat(%q) = %s, expected %s", tt.input, format, tt.expected)
		}
	}

	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("Expected error for unknown output format")
	}
}
