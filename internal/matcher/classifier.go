package matcher

import (
	"payment-reconciliation-engine/internal/models"
)

// ScoredSet holds one A transaction's scored candidates, already ordered by
// B input ordinal.
type ScoredSet struct {
	A          *models.Transaction
	Candidates []*models.CandidatePair
}

// Classify assigns verdicts one A transaction at a time, in A input order.
// For each A it selects the best still-available candidate; a candidate at
// or above the auto threshold auto-matches, one at or above the review
// threshold goes to manual review, and in both cases the B side is consumed.
// An A whose best candidate falls below the review threshold is unmatched
// and consumes nothing. B transactions never claimed are emitted last, in B
// input order.
func Classify(sets []*ScoredSet, remainingB []*models.Transaction, config *ReconciliationConfig) []models.MatchVerdict {
	consumedB := make(map[string]bool)
	verdicts := make([]models.MatchVerdict, 0, len(sets)+len(remainingB))

	for _, set := range sets {
		best := selectBest(set.Candidates, consumedB)

		if best == nil || best.Confidence < config.ManualReviewThreshold {
			verdicts = append(verdicts, models.MatchVerdict{
				Kind:        models.VerdictUnmatched,
				Transaction: set.A,
			})
			continue
		}

		kind := models.VerdictManualReview
		if best.Confidence >= config.AutoMatchThreshold {
			kind = models.VerdictAutoMatched
		}
		verdicts = append(verdicts, models.MatchVerdict{
			Kind:      kind,
			Pair:      best,
			MatchedBy: "fuzzy",
		})
		consumedB[best.B.ID] = true
	}

	for _, txB := range remainingB {
		if !consumedB[txB.ID] {
			verdicts = append(verdicts, models.MatchVerdict{
				Kind:        models.VerdictUnmatched,
				Transaction: txB,
			})
		}
	}

	return verdicts
}

// selectBest returns the preferred candidate among those whose B side is
// still available, or nil when none remain.
func selectBest(candidates []*models.CandidatePair, consumedB map[string]bool) *models.CandidatePair {
	var best *models.CandidatePair
	for _, candidate := range candidates {
		if consumedB[candidate.B.ID] {
			continue
		}
		if best == nil || preferCandidate(candidate, best) {
			best = candidate
		}
	}
	return best
}

// preferCandidate reports whether challenger beats incumbent. Ties on
// confidence break on exact reference identity, then smaller date distance,
// then smaller amount distance, then lower B input ordinal. Candidates are
// scanned in B ordinal order, so equal candidates keep the incumbent.
func preferCandidate(challenger, incumbent *models.CandidatePair) bool {
	if challenger.Confidence != incumbent.Confidence {
		return challenger.Confidence > incumbent.Confidence
	}

	challengerExact := challenger.ExactReference()
	incumbentExact := incumbent.ExactReference()
	if challengerExact != incumbentExact {
		return challengerExact
	}

	if challenger.DateDiffDays != incumbent.DateDiffDays {
		return challenger.DateDiffDays < incumbent.DateDiffDays
	}

	if cmp := challenger.AmountDiff.Cmp(incumbent.AmountDiff); cmp != 0 {
		return cmp < 0
	}

	return challenger.BOrdinal < incumbent.BOrdinal
}
