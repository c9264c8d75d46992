package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/internal/parsers"
	"payment-reconciliation-engine/internal/reviewstore"
)

// writeFixtures creates a bank statement and a transfer log with one exact
// match and one ambiguous pair that lands in manual review.
func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	source := filepath.Join(dir, "statement.csv")
	sourceContent := `Date,Amount,Reference,Description
2024-01-15,50.00,EC100,airtime purchase
2024-01-15,100.00,AA1,office stationery order
`
	require.NoError(t, os.WriteFile(source, []byte(sourceContent), 0o644))

	target := filepath.Join(dir, "transfers.txt")
	targetContent := `2024-01-15 | EC100 | 50.00 | airtime
2024-01-15 | ZZ9 | 100.00 | fuel purchase receipt
2024-01-20 | XX1 | 77777.00 | stray transfer
`
	require.NoError(t, os.WriteFile(target, []byte(targetContent), 0o644))

	return source, target
}

func runOptions(source, target string) RunOptions {
	return RunOptions{
		SourceFile:   source,
		SourceFormat: parsers.FormatAuto,
		TargetFile:   target,
		TargetFormat: parsers.FormatAuto,
	}
}

func findVerdict(verdicts []models.MatchVerdict, kind models.VerdictKind) *models.MatchVerdict {
	for i := range verdicts {
		if verdicts[i].Kind == kind {
			return &verdicts[i]
		}
	}
	return nil
}

func TestRunWithoutStore(t *testing.T) {
	source, target := writeFixtures(t)
	service := NewService(nil, nil)

	result, err := service.Run(context.Background(), runOptions(source, target))
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, parsers.FormatBankCSV, result.SourceStats.Format)
	assert.Equal(t, parsers.FormatTextTransfer, result.TargetStats.Format)
	assert.Empty(t, result.RowErrors)

	summary := result.Result.Summary
	assert.Equal(t, 2, summary.TotalA)
	assert.Equal(t, 3, summary.TotalB)
	assert.Equal(t, 1, summary.AutoMatched, "EC100 should exact-match")
	assert.Equal(t, 1, summary.ManualReview, "same amount and date with weak text should need review")
	assert.Equal(t, 1, summary.UnmatchedB, "the stray transfer should stay unmatched")
}

func TestRunAppliesConfirmedDecision(t *testing.T) {
	source, target := writeFixtures(t)
	store, err := reviewstore.NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	defer store.Close()

	service := NewService(store, nil)

	first, err := service.Run(context.Background(), runOptions(source, target))
	require.NoError(t, err)

	review := findVerdict(first.Result.Verdicts, models.VerdictManualReview)
	require.NotNil(t, review, "first run should propose a manual review pair")

	require.NoError(t, service.RecordDecision(&reviewstore.ReviewedPair{
		AID:        review.Pair.A.ID,
		BID:        review.Pair.B.ID,
		Decision:   reviewstore.DecisionConfirmed,
		Confidence: review.Pair.Confidence,
		ReviewedBy: "ops",
	}))

	second, err := service.Run(context.Background(), runOptions(source, target))
	require.NoError(t, err)

	assert.Nil(t, findVerdict(second.Result.Verdicts, models.VerdictManualReview),
		"confirmed pair should not resurface for review")
	assert.Equal(t, 2, second.Result.Summary.AutoMatched)

	var reviewedVerdict *models.MatchVerdict
	for i := range second.Result.Verdicts {
		if second.Result.Verdicts[i].MatchedBy == "reviewed" {
			reviewedVerdict = &second.Result.Verdicts[i]
		}
	}
	require.NotNil(t, reviewedVerdict, "confirmed pair should be pinned as reviewed")
	assert.Equal(t, review.Pair.A.ID, reviewedVerdict.Pair.A.ID)
}

func TestRunSuppressesRejectedDecision(t *testing.T) {
	source, target := writeFixtures(t)
	store, err := reviewstore.NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	defer store.Close()

	service := NewService(store, nil)

	first, err := service.Run(context.Background(), runOptions(source, target))
	require.NoError(t, err)

	review := findVerdict(first.Result.Verdicts, models.VerdictManualReview)
	require.NotNil(t, review)

	require.NoError(t, service.RecordDecision(&reviewstore.ReviewedPair{
		AID:      review.Pair.A.ID,
		BID:      review.Pair.B.ID,
		Decision: reviewstore.DecisionRejected,
	}))

	second, err := service.Run(context.Background(), runOptions(source, target))
	require.NoError(t, err)

	assert.Nil(t, findVerdict(second.Result.Verdicts, models.VerdictManualReview),
		"rejected pair should not resurface for review")
	assert.Equal(t, 1, second.Result.Summary.UnmatchedA)
	assert.Equal(t, 2, second.Result.Summary.UnmatchedB)
}

func TestApplyConfirmedConflictingDecisionsDeterministic(t *testing.T) {
	sourceTxs := []*models.Transaction{{ID: "a1"}}
	targetTxs := []*models.Transaction{{ID: "b2"}, {ID: "b1"}}

	// Two confirmed decisions claim the same A transaction. The lowest pair
	// key must win on every run regardless of map iteration order.
	reviewed := map[string]reviewstore.Decision{
		models.PairKey("a1", "b2"): reviewstore.DecisionConfirmed,
		models.PairKey("a1", "b1"): reviewstore.DecisionConfirmed,
	}

	for i := 0; i < 20; i++ {
		pinned, remainingA, remainingB := applyConfirmed(sourceTxs, targetTxs, reviewed)
		require.Len(t, pinned, 1)
		assert.Equal(t, "b1", pinned[0].Pair.B.ID)
		assert.Empty(t, remainingA)
		require.Len(t, remainingB, 1)
		assert.Equal(t, "b2", remainingB[0].ID)
	}
}

func TestRunMissingSourceFile(t *testing.T) {
	_, target := writeFixtures(t)
	service := NewService(nil, nil)

	_, err := service.Run(context.Background(), runOptions("/nonexistent.csv", target))
	assert.Error(t, err)
}

func TestRecordDecisionWithoutStore(t *testing.T) {
	service := NewService(nil, nil)

	err := service.RecordDecision(&reviewstore.ReviewedPair{
		AID: "a", BID: "b", Decision: reviewstore.DecisionConfirmed,
	})
	assert.Error(t, err)
}
