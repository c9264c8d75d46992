// Package reporter renders reconciliation results for operators and
// downstream tooling.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/models"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// ParseOutputFormat converts a user-supplied name into an OutputFormat.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "console", "text":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", name)
	}
}

// ReportConfig controls what the report includes.
type ReportConfig struct {
	Format          OutputFormat
	ShowSubScores   bool
	ShowUnmatched   bool
	ShowSkipped     bool
	MaxReviewSample int
}

// DefaultReportConfig returns the configuration used by the CLI.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:        FormatConsole,
		ShowSubScores: true,
		ShowUnmatched: true,
		ShowSkipped:   true,
	}
}

// Reporter renders a reconciliation result to a writer.
type Reporter struct {
	config *ReportConfig
}

// NewReporter creates a reporter with the given configuration.
func NewReporter(config *ReportConfig) *Reporter {
	if config == nil {
		config = DefaultReportConfig()
	}
	return &Reporter{config: config}
}

// Write renders the result in the configured format.
func (r *Reporter) Write(w io.Writer, result *matcher.ReconciliationResult) error {
	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(w, result)
	case FormatCSV:
		return r.writeCSV(w, result)
	default:
		return r.writeConsole(w, result)
	}
}

func (r *Reporter) writeJSON(w io.Writer, result *matcher.ReconciliationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (r *Reporter) writeCSV(w io.Writer, result *matcher.ReconciliationResult) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"verdict", "matched_by", "a_id", "a_reference", "b_id", "b_reference", "confidence"}
	if r.config.ShowSubScores {
		header = append(header, "amount_score", "text_score", "date_score", "reference_bonus")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, verdict := range result.Verdicts {
		row := csvRow(verdict, r.config.ShowSubScores)
		if row == nil {
			continue
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRow(verdict models.MatchVerdict, subScores bool) []string {
	switch verdict.Kind {
	case models.VerdictAutoMatched, models.VerdictManualReview:
		pair := verdict.Pair
		row := []string{
			verdict.Kind.String(), verdict.MatchedBy,
			pair.A.ID, pair.A.Reference,
			pair.B.ID, pair.B.Reference,
			fmt.Sprintf("%.4f", pair.Confidence),
		}
		if subScores {
			row = append(row,
				fmt.Sprintf("%.4f", pair.AmountScore),
				fmt.Sprintf("%.4f", pair.TextScore),
				fmt.Sprintf("%.4f", pair.DateScore),
				fmt.Sprintf("%.4f", pair.ReferenceBonus))
		}
		return row
	case models.VerdictUnmatched:
		tx := verdict.Transaction
		aID, aRef, bID, bRef := "", "", "", ""
		if tx.Source == models.SourceBank {
			aID, aRef = tx.ID, tx.Reference
		} else {
			bID, bRef = tx.ID, tx.Reference
		}
		row := []string{verdict.Kind.String(), "", aID, aRef, bID, bRef, ""}
		if subScores {
			row = append(row, "", "", "", "")
		}
		return row
	}
	return nil
}

func (r *Reporter) writeConsole(w io.Writer, result *matcher.ReconciliationResult) error {
	summary := result.Summary

	fmt.Fprintln(w, "Reconciliation Summary")
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Side A transactions:  %d\n", summary.TotalA)
	fmt.Fprintf(w, "Side B transactions:  %d\n", summary.TotalB)
	fmt.Fprintf(w, "Auto matched:         %d (%d by exact reference)\n", summary.AutoMatched, summary.ExactMatches)
	fmt.Fprintf(w, "Manual review:        %d\n", summary.ManualReview)
	fmt.Fprintf(w, "Unmatched A:          %d\n", summary.UnmatchedA)
	fmt.Fprintf(w, "Unmatched B:          %d\n", summary.UnmatchedB)
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipped records:      %d\n", summary.Skipped)
	}
	fmt.Fprintf(w, "Match rate:           %.1f%%\n", summary.MatchRate()*100)
	fmt.Fprintf(w, "Processing time:      %s\n", summary.ProcessingTime)

	reviews := verdictsOfKind(result.Verdicts, models.VerdictManualReview)
	if len(reviews) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Pairs needing review")
		fmt.Fprintln(w, "--------------------")
		sample := reviews
		if r.config.MaxReviewSample > 0 && len(sample) > r.config.MaxReviewSample {
			sample = sample[:r.config.MaxReviewSample]
		}
		for _, verdict := range sample {
			pair := verdict.Pair
			fmt.Fprintf(w, "  %.2f  %s (%s) <-> %s (%s)\n",
				pair.Confidence, pair.A.ID, pair.A.Reference, pair.B.ID, pair.B.Reference)
			if r.config.ShowSubScores {
				fmt.Fprintf(w, "        amount=%.2f text=%.2f date=%.2f ref=%.2f\n",
					pair.AmountScore, pair.TextScore, pair.DateScore, pair.ReferenceBonus)
			}
		}
		if len(sample) < len(reviews) {
			fmt.Fprintf(w, "  ... and %d more\n", len(reviews)-len(sample))
		}
	}

	if r.config.ShowUnmatched {
		unmatched := verdictsOfKind(result.Verdicts, models.VerdictUnmatched)
		if len(unmatched) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Unmatched transactions")
			fmt.Fprintln(w, "----------------------")
			for _, verdict := range unmatched {
				tx := verdict.Transaction
				fmt.Fprintf(w, "  [%s] %s  %s  %s  %s\n",
					tx.Source, tx.ID, tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(2), tx.Description)
			}
		}
	}

	if r.config.ShowSkipped && len(result.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped records")
		fmt.Fprintln(w, "---------------")
		for _, skipped := range result.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", skipped.Transaction.ID, skipped.Reason)
		}
	}

	return nil
}

func verdictsOfKind(verdicts []models.MatchVerdict, kind models.VerdictKind) []models.MatchVerdict {
	var out []models.MatchVerdict
	for _, v := range verdicts {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}
