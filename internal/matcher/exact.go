package matcher

import (
	"payment-reconciliation-engine/internal/models"
)

// ExactMatchResult holds the outcome of the exact-reference stage: verdicts
// for pairs resolved by reference identity, plus the transactions each side
// passes on to fuzzy matching.
type ExactMatchResult struct {
	Verdicts   []models.MatchVerdict
	RemainingA []*models.Transaction
	RemainingB []*models.Transaction
}

// ExactMatch resolves pairs whose normalized references are non-empty and
// identical. A reference key participates only when it is unique within its
// own collection; records behind ambiguous keys are deferred to the fuzzy
// stages rather than guessed at. Matched pairs are emitted in A input order
// with confidence 1.0.
func ExactMatch(transactionsA, transactionsB []*models.Transaction) *ExactMatchResult {
	keyCountA := make(map[string]int)
	for _, tx := range transactionsA {
		if key := tx.NormalizedReference(); key != "" {
			keyCountA[key]++
		}
	}

	keyCountB := make(map[string]int)
	indexB := make(map[string]*models.Transaction)
	ordinalB := make(map[string]int)
	for i, tx := range transactionsB {
		key := tx.NormalizedReference()
		if key == "" {
			continue
		}
		keyCountB[key]++
		indexB[key] = tx
		ordinalB[key] = i
	}

	result := &ExactMatchResult{}
	consumedB := make(map[string]bool)

	for _, txA := range transactionsA {
		key := txA.NormalizedReference()
		if key == "" || keyCountA[key] != 1 || keyCountB[key] != 1 {
			result.RemainingA = append(result.RemainingA, txA)
			continue
		}

		txB := indexB[key]
		pair := &models.CandidatePair{
			A:              txA,
			B:              txB,
			AmountScore:    1.0,
			TextScore:      1.0,
			DateScore:      1.0,
			ReferenceBonus: 1.0,
			Confidence:     1.0,
			AmountDiff:     txA.Amount.Sub(txB.Amount).Abs(),
			DateDiffDays:   calendarDayDistance(txA, txB),
			BOrdinal:       ordinalB[key],
		}
		result.Verdicts = append(result.Verdicts, models.MatchVerdict{
			Kind:      models.VerdictAutoMatched,
			Pair:      pair,
			MatchedBy: "exact_reference",
		})
		consumedB[txB.ID] = true
	}

	for _, txB := range transactionsB {
		if !consumedB[txB.ID] {
			result.RemainingB = append(result.RemainingB, txB)
		}
	}

	return result
}
