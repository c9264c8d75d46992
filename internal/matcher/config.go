package matcher

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/pkg/errors"
)

// ScoreWeights controls how the four sub-scores blend into the confidence
// value. Weights must be non-negative and sum to 1.0.
type ScoreWeights struct {
	Amount    float64 `json:"amount" yaml:"amount"`
	Text      float64 `json:"text" yaml:"text"`
	Date      float64 `json:"date" yaml:"date"`
	Reference float64 `json:"reference" yaml:"reference"`
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Amount + w.Text + w.Date + w.Reference
}

// weightSumEpsilon absorbs float representation error when checking that
// weights sum to 1.0.
const weightSumEpsilon = 1e-9

// ReconciliationConfig holds all tunables for a reconciliation run.
type ReconciliationConfig struct {
	// AmountTolerancePct is the relative half-width of the candidate
	// amount window (0.02 = 2% of the A-side amount).
	AmountTolerancePct float64 `json:"amount_tolerance_pct" yaml:"amount_tolerance_pct"`

	// AmountToleranceAbs is the absolute floor of the amount window. It
	// keeps small-value transactions matchable and doubles as the
	// denominator floor of the amount score.
	AmountToleranceAbs decimal.Decimal `json:"amount_tolerance_abs" yaml:"amount_tolerance_abs"`

	// DateWindowDays is the half-width of the candidate date window.
	DateWindowDays int `json:"date_window_days" yaml:"date_window_days"`

	// AutoMatchThreshold is the confidence at or above which a pair is
	// matched without review.
	AutoMatchThreshold float64 `json:"auto_match_threshold" yaml:"auto_match_threshold"`

	// ManualReviewThreshold is the confidence at or above which a pair is
	// queued for review. Pairs below it are discarded.
	ManualReviewThreshold float64 `json:"manual_review_threshold" yaml:"manual_review_threshold"`

	// ReferenceSimilarityFloor is the minimum text similarity between two
	// non-empty references for the reference bonus to fire when neither
	// token overlap nor substring containment holds.
	ReferenceSimilarityFloor float64 `json:"reference_similarity_floor" yaml:"reference_similarity_floor"`

	// Weights blends the sub-scores into the confidence value.
	Weights ScoreWeights `json:"weights" yaml:"weights"`

	// Workers is the number of goroutines sharding the filter and scoring
	// stages. Values below 2 keep those stages single-threaded. Output is
	// identical at any worker count.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the tunables most deployments start from.
func DefaultConfig() *ReconciliationConfig {
	return &ReconciliationConfig{
		AmountTolerancePct:       0.02,
		AmountToleranceAbs:       decimal.NewFromFloat(0.01),
		DateWindowDays:           3,
		AutoMatchThreshold:       0.85,
		ManualReviewThreshold:    0.50,
		ReferenceSimilarityFloor: 0.65,
		Weights: ScoreWeights{
			Amount:    0.40,
			Text:      0.30,
			Date:      0.20,
			Reference: 0.10,
		},
		Workers: 1,
	}
}

// StrictConfig returns a configuration with tight windows and a high
// auto-match bar, suited to high-value settlement data.
func StrictConfig() *ReconciliationConfig {
	config := DefaultConfig()
	config.AmountTolerancePct = 0.005
	config.DateWindowDays = 1
	config.AutoMatchThreshold = 0.95
	config.ManualReviewThreshold = 0.70
	return config
}

// RelaxedConfig returns a configuration with wide windows and a lower
// auto-match bar, suited to noisy mobile-money exports.
func RelaxedConfig() *ReconciliationConfig {
	config := DefaultConfig()
	config.AmountTolerancePct = 0.05
	config.DateWindowDays = 7
	config.AutoMatchThreshold = 0.75
	config.ManualReviewThreshold = 0.40
	return config
}

// Validate checks that the configuration is internally consistent. A failed
// validation aborts the run before any transaction is processed.
func (c *ReconciliationConfig) Validate() error {
	if c.AmountTolerancePct < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount_tolerance_pct", c.AmountTolerancePct, nil)
	}

	if c.AmountToleranceAbs.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount_tolerance_abs", c.AmountToleranceAbs.String(), nil)
	}

	if c.DateWindowDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "date_window_days", c.DateWindowDays, nil)
	}

	if c.AutoMatchThreshold < 0 || c.AutoMatchThreshold > 1 {
		return errors.ConfigurationError(errors.CodeThresholdOutOfRange, "auto_match_threshold", c.AutoMatchThreshold, nil)
	}

	if c.ManualReviewThreshold < 0 || c.ManualReviewThreshold > 1 {
		return errors.ConfigurationError(errors.CodeThresholdOutOfRange, "manual_review_threshold", c.ManualReviewThreshold, nil)
	}

	if c.ManualReviewThreshold > c.AutoMatchThreshold {
		return errors.ConfigurationError(errors.CodeThresholdOutOfRange, "manual_review_threshold",
			fmt.Sprintf("%.2f > auto_match_threshold %.2f", c.ManualReviewThreshold, c.AutoMatchThreshold), nil)
	}

	if c.ReferenceSimilarityFloor < 0 || c.ReferenceSimilarityFloor > 1 {
		return errors.ConfigurationError(errors.CodeThresholdOutOfRange, "reference_similarity_floor", c.ReferenceSimilarityFloor, nil)
	}

	if c.Weights.Amount < 0 || c.Weights.Text < 0 || c.Weights.Date < 0 || c.Weights.Reference < 0 {
		return errors.ConfigurationError(errors.CodeWeightsNotNormalized, "weights", c.Weights, nil)
	}

	if math.Abs(c.Weights.Sum()-1.0) > weightSumEpsilon {
		return errors.ConfigurationError(errors.CodeWeightsNotNormalized, "weights", c.Weights.Sum(), nil)
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *ReconciliationConfig) Clone() *ReconciliationConfig {
	clone := *c
	return &clone
}

// AmountWindow returns the half-width of the candidate amount window for a
// given A-side amount: max(|amount| * pct, abs).
func (c *ReconciliationConfig) AmountWindow(amount decimal.Decimal) decimal.Decimal {
	pctTolerance := amount.Abs().Mul(decimal.NewFromFloat(c.AmountTolerancePct))
	if pctTolerance.GreaterThan(c.AmountToleranceAbs) {
		return pctTolerance
	}
	return c.AmountToleranceAbs
}
