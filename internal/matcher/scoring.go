package matcher

import (
	"strings"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/internal/models"
)

// Scorer computes the sub-scores and confidence for a candidate pair. All
// scoring is pure: the same pair and configuration always produce the same
// numbers.
type Scorer struct {
	config *ReconciliationConfig
}

// NewScorer creates a Scorer bound to a configuration.
func NewScorer(config *ReconciliationConfig) *Scorer {
	return &Scorer{config: config}
}

// Score builds a fully scored candidate pair for txA against the indexed
// entry for txB.
func (s *Scorer) Score(txA *models.Transaction, txB *models.Transaction, bOrdinal int) *models.CandidatePair {
	pair := &models.CandidatePair{
		A:            txA,
		B:            txB,
		AmountDiff:   amountDistance(txA, txB),
		DateDiffDays: calendarDayDistance(txA, txB),
		BOrdinal:     bOrdinal,
	}

	pair.AmountScore = s.amountScore(txA.Amount, txB.Amount)
	pair.DateScore = s.dateScore(pair.DateDiffDays)
	pair.TextScore = s.textScore(txA.Description, txB.Description)
	pair.ReferenceBonus = s.referenceBonus(txA, txB)

	w := s.config.Weights
	pair.Confidence = clamp01(w.Amount*pair.AmountScore +
		w.Text*pair.TextScore +
		w.Date*pair.DateScore +
		w.Reference*pair.ReferenceBonus)

	return pair
}

// amountScore is 1 - |a-b| / max(|a|, |b|, floor), clamped to [0,1]. The
// absolute tolerance doubles as the denominator floor so near-zero amounts
// cannot divide by zero.
func (s *Scorer) amountScore(amountA, amountB decimal.Decimal) float64 {
	denominator := amountA.Abs()
	if amountB.Abs().GreaterThan(denominator) {
		denominator = amountB.Abs()
	}
	if s.config.AmountToleranceAbs.GreaterThan(denominator) {
		denominator = s.config.AmountToleranceAbs
	}
	if denominator.IsZero() {
		return 1.0
	}

	diff := amountA.Sub(amountB).Abs()
	score, _ := decimal.NewFromInt(1).Sub(diff.Div(denominator)).Float64()
	return clamp01(score)
}

// dateScore decays linearly from 1.0 at zero days to 0 outside the window.
func (s *Scorer) dateScore(dayDistance int) float64 {
	if s.config.DateWindowDays == 0 {
		if dayDistance == 0 {
			return 1.0
		}
		return 0.0
	}
	if dayDistance > s.config.DateWindowDays {
		return 0.0
	}
	return clamp01(1.0 - float64(dayDistance)/float64(s.config.DateWindowDays))
}

// textScore is the best of the four similarity strategies over normalized
// descriptions. An empty description on either side carries no signal and
// scores zero.
func (s *Scorer) textScore(descA, descB string) float64 {
	normA := models.NormalizeDescription(descA)
	normB := models.NormalizeDescription(descB)
	if normA == "" || normB == "" {
		return 0.0
	}
	return clamp01(BestSimilarity(normA, normB))
}

// referenceBonus is 1.0 when both references are non-empty and related by
// shared tokens, substring containment, or similarity at or above the
// configured floor. Otherwise 0. An absent reference never penalizes a pair
// beyond withholding the bonus.
func (s *Scorer) referenceBonus(txA, txB *models.Transaction) float64 {
	refA := txA.NormalizedReference()
	refB := txB.NormalizedReference()
	if refA == "" || refB == "" {
		return 0.0
	}

	if refA == refB {
		return 1.0
	}

	if strings.Contains(refA, refB) || strings.Contains(refB, refA) {
		return 1.0
	}

	if sharesToken(txA.Reference, txB.Reference) {
		return 1.0
	}

	if Ratio(refA, refB) >= s.config.ReferenceSimilarityFloor {
		return 1.0
	}

	return 0.0
}

// sharesToken reports whether the raw references share any whitespace or
// separator delimited token.
func sharesToken(refA, refB string) bool {
	tokensA := referenceTokens(refA)
	if len(tokensA) == 0 {
		return false
	}
	tokensB := referenceTokens(refB)
	for token := range tokensB {
		if tokensA[token] {
			return true
		}
	}
	return false
}

func referenceTokens(ref string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToUpper(ref), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_' || r == '/' || r == ':'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens[f] = true
		}
	}
	return tokens
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
