// Package config assembles engine and report configurations from CLI flag
// values.
package config

import (
	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/reporter"
)

// MatchingOverrides holds the CLI flag values that tune the engine.
// Negative values mean "not set" and keep the profile default.
type MatchingOverrides struct {
	AmountTolerancePct    float64
	AmountToleranceAbs    float64
	DateWindowDays        int
	AutoMatchThreshold    float64
	ManualReviewThreshold float64
	Workers               int
}

// CreateMatchingConfig builds the engine configuration from a named profile
// plus CLI overrides. The result still goes through the engine's own
// validation.
func CreateMatchingConfig(profile string, overrides MatchingOverrides) *matcher.ReconciliationConfig {
	var config *matcher.ReconciliationConfig
	switch profile {
	case "strict":
		config = matcher.StrictConfig()
	case "relaxed":
		config = matcher.RelaxedConfig()
	default:
		config = matcher.DefaultConfig()
	}

	if overrides.AmountTolerancePct >= 0 {
		config.AmountTolerancePct = overrides.AmountTolerancePct
	}
	if overrides.AmountToleranceAbs >= 0 {
		config.AmountToleranceAbs = decimal.NewFromFloat(overrides.AmountToleranceAbs)
	}
	if overrides.DateWindowDays >= 0 {
		config.DateWindowDays = overrides.DateWindowDays
	}
	if overrides.AutoMatchThreshold >= 0 {
		config.AutoMatchThreshold = overrides.AutoMatchThreshold
	}
	if overrides.ManualReviewThreshold >= 0 {
		config.ManualReviewThreshold = overrides.ManualReviewThreshold
	}
	if overrides.Workers > 0 {
		config.Workers = overrides.Workers
	}

	return config
}

// CreateReportConfig creates a report configuration for the requested output
// format.
func CreateReportConfig(format reporter.OutputFormat) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = format

	switch format {
	case reporter.FormatConsole:
		config.MaxReviewSample = 20
	case reporter.FormatCSV:
		// CSV output is row data only; the summary stays on the console.
		config.ShowUnmatched = true
		config.ShowSkipped = false
	}

	return config
}
