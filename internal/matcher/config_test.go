package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	configs := map[string]*ReconciliationConfig{
		"default": DefaultConfig(),
		"strict":  StrictConfig(),
		"relaxed": RelaxedConfig(),
	}

	for name, config := range configs {
		if err := config.Validate(); err != nil {
			t.Errorf("Expected %s config to be valid, got: %v", name, err)
		}
	}
}

func TestConfigValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*ReconciliationConfig)
		wantCode errors.ErrorCode
	}{
		{
			"negative amount tolerance pct",
			func(c *ReconciliationConfig) { c.AmountTolerancePct = -0.01 },
			errors.CodeInvalidConfig,
		},
		{
			"negative amount tolerance abs",
			func(c *ReconciliationConfig) { c.AmountToleranceAbs = decimal.NewFromFloat(-0.01) },
			errors.CodeInvalidConfig,
		},
		{
			"negative date window",
			func(c *ReconciliationConfig) { c.DateWindowDays = -1 },
			errors.CodeInvalidConfig,
		},
		{
			"auto threshold above 1",
			func(c *ReconciliationConfig) { c.AutoMatchThreshold = 1.5 },
			errors.CodeThresholdOutOfRange,
		},
		{
			"manual threshold below 0",
			func(c *ReconciliationConfig) { c.ManualReviewThreshold = -0.1 },
			errors.CodeThresholdOutOfRange,
		},
		{
			"manual above auto",
			func(c *ReconciliationConfig) {
				c.ManualReviewThreshold = 0.9
				c.AutoMatchThreshold = 0.8
			},
			errors.CodeThresholdOutOfRange,
		},
		{
			"weights not summing to 1",
			func(c *ReconciliationConfig) { c.Weights.Amount = 0.5 },
			errors.CodeWeightsNotNormalized,
		},
		{
			"negative weight",
			func(c *ReconciliationConfig) {
				c.Weights.Amount = -0.1
				c.Weights.Text = 0.8
			},
			errors.CodeWeightsNotNormalized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if err == nil {
				t.Fatalf("Expected validation error for %s", tt.name)
			}

			recErr, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("Expected ReconcilerError, got %T", err)
			}
			if recErr.Category != errors.CategoryConfiguration {
				t.Errorf("Expected configuration category, got %s", recErr.Category)
			}
			if recErr.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, recErr.Code)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.AutoMatchThreshold = 0.99
	clone.Weights.Amount = 0.7

	if original.AutoMatchThreshold != 0.85 {
		t.Error("Expected clone modification not to affect original threshold")
	}
	if original.Weights.Amount != 0.40 {
		t.Error("Expected clone modification not to affect original weights")
	}
}

func TestAmountWindow(t *testing.T) {
	config := DefaultConfig()

	// 2% of 1000 beats the 0.01 floor.
	window := config.AmountWindow(decimal.NewFromInt(1000))
	if !window.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected window 20 for amount 1000, got %s", window)
	}

	// For small amounts the absolute floor takes over.
	window = config.AmountWindow(decimal.NewFromFloat(0.10))
	if !window.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("Expected floor window 0.01 for amount 0.10, got %s", window)
	}

	// Negative amounts use the absolute value.
	window = config.AmountWindow(decimal.NewFromInt(-1000))
	if !window.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected window 20 for amount -1000, got %s", window)
	}
}
