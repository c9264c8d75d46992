// Package matcher implements the reconciliation pipeline: exact reference
// resolution, windowed candidate filtering, fuzzy scoring and deterministic
// verdict classification.
package matcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"
)

// ReconciliationSummary aggregates verdict counts for a run.
type ReconciliationSummary struct {
	TotalA         int           `json:"total_a"`
	TotalB         int           `json:"total_b"`
	AutoMatched    int           `json:"auto_matched"`
	ManualReview   int           `json:"manual_review"`
	UnmatchedA     int           `json:"unmatched_a"`
	UnmatchedB     int           `json:"unmatched_b"`
	ExactMatches   int           `json:"exact_matches"`
	Skipped        int           `json:"skipped"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// MatchRate returns the fraction of A transactions that reached a match
// verdict, in [0,1].
func (s *ReconciliationSummary) MatchRate() float64 {
	if s.TotalA == 0 {
		return 0
	}
	return float64(s.AutoMatched+s.ManualReview) / float64(s.TotalA)
}

// ReconciliationResult is the complete output of a run: one verdict per
// surviving input transaction, skipped records, and summary counts.
type ReconciliationResult struct {
	Verdicts []models.MatchVerdict  `json:"verdicts"`
	Skipped  []models.SkippedRecord `json:"skipped,omitempty"`
	Summary  ReconciliationSummary  `json:"summary"`
}

// MatchingEngine runs the full pipeline for one pair of collections.
type MatchingEngine struct {
	config *ReconciliationConfig
	scorer *Scorer
	log    logger.Logger
}

// NewMatchingEngine validates the configuration and constructs an engine.
// Configuration problems surface here, before any transaction is touched.
func NewMatchingEngine(config *ReconciliationConfig, log logger.Logger) (*MatchingEngine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &MatchingEngine{
		config: config.Clone(),
		scorer: NewScorer(config),
		log:    log.WithComponent("matcher"),
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *MatchingEngine) Config() *ReconciliationConfig {
	return e.config.Clone()
}

// Reconcile runs the pipeline over two transaction collections. Invalid
// records are skipped and reported; every valid input transaction appears in
// exactly one verdict. Output is deterministic for identical inputs and
// configuration at any worker count.
func (e *MatchingEngine) Reconcile(ctx context.Context, transactionsA, transactionsB []*models.Transaction) (*ReconciliationResult, error) {
	start := time.Now()

	validA, skippedA := e.validateInputs(transactionsA, "A", models.SourceBank)
	validB, skippedB := e.validateInputs(transactionsB, "B", models.SourceTarget)
	skipped := append(skippedA, skippedB...)

	e.log.WithFields(logger.Fields{
		"transactions_a": len(validA),
		"transactions_b": len(validB),
		"skipped":        len(skipped),
	}).Info("Starting reconciliation")

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "reconciliation", err)
	}

	exact := ExactMatch(validA, validB)
	e.log.WithField("exact_matches", len(exact.Verdicts)).Debug("Exact reference stage complete")

	index := NewCandidateIndex(exact.RemainingB, e.config)
	sets := e.scoreAll(ctx, exact.RemainingA, index)

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "scoring", err)
	}

	verdicts := append(exact.Verdicts, Classify(sets, exact.RemainingB, e.config)...)

	result := &ReconciliationResult{
		Verdicts: verdicts,
		Skipped:  skipped,
		Summary:  e.summarize(verdicts, len(validA), len(validB), len(exact.Verdicts), len(skipped), time.Since(start)),
	}

	e.log.WithFields(logger.Fields{
		"auto_matched":  result.Summary.AutoMatched,
		"manual_review": result.Summary.ManualReview,
		"unmatched_a":   result.Summary.UnmatchedA,
		"unmatched_b":   result.Summary.UnmatchedB,
		"duration":      result.Summary.ProcessingTime.String(),
	}).Info("Reconciliation complete")

	return result, nil
}

// scoreAll builds the scored candidate set for every remaining A
// transaction. With Workers > 1 the A ordinals are sharded across
// goroutines, each writing only its own preallocated slots, so the assembled
// slice is identical to the serial result.
func (e *MatchingEngine) scoreAll(ctx context.Context, remainingA []*models.Transaction, index *CandidateIndex) []*ScoredSet {
	sets := make([]*ScoredSet, len(remainingA))

	workers := e.config.Workers
	if workers < 2 || len(remainingA) < 2 {
		for i, txA := range remainingA {
			sets[i] = e.scoreOne(txA, index)
		}
		return sets
	}
	if workers > len(remainingA) {
		workers = len(remainingA)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(shard int) {
			defer wg.Done()
			for i := shard; i < len(remainingA); i += workers {
				if ctx.Err() != nil {
					return
				}
				sets[i] = e.scoreOne(remainingA[i], index)
			}
		}(w)
	}
	wg.Wait()

	// A cancelled context can leave nil slots; fill them so the classifier
	// still sees every A transaction before the caller observes the error.
	for i, set := range sets {
		if set == nil {
			sets[i] = &ScoredSet{A: remainingA[i]}
		}
	}

	return sets
}

func (e *MatchingEngine) scoreOne(txA *models.Transaction, index *CandidateIndex) *ScoredSet {
	entries := index.Candidates(txA)
	set := &ScoredSet{A: txA}
	for _, entry := range entries {
		set.Candidates = append(set.Candidates, e.scorer.Score(txA, entry.tx, entry.ordinal))
	}
	return set
}

// validateInputs partitions a collection into valid transactions and
// skipped records. A bad record never aborts the batch. Each collection must
// carry its own source tag; unmatched bucketing relies on that pairing.
func (e *MatchingEngine) validateInputs(transactions []*models.Transaction, side string, source models.SourceTag) ([]*models.Transaction, []models.SkippedRecord) {
	valid := make([]*models.Transaction, 0, len(transactions))
	var skipped []models.SkippedRecord

	for _, tx := range transactions {
		if tx == nil {
			continue
		}
		err := tx.Validate()
		if err == nil && tx.Source != source {
			err = fmt.Errorf("source tag %q does not belong in collection %s", tx.Source, side)
		}
		if err != nil {
			e.log.WithFields(logger.Fields{
				"transaction_id": tx.ID,
				"side":           side,
			}).WithError(err).Warn("Skipping invalid transaction")
			skipped = append(skipped, models.SkippedRecord{Transaction: tx, Reason: err.Error()})
			continue
		}
		valid = append(valid, tx)
	}

	return valid, skipped
}

func (e *MatchingEngine) summarize(verdicts []models.MatchVerdict, totalA, totalB, exactMatches, skipped int, elapsed time.Duration) ReconciliationSummary {
	summary := ReconciliationSummary{
		TotalA:         totalA,
		TotalB:         totalB,
		ExactMatches:   exactMatches,
		Skipped:        skipped,
		ProcessingTime: elapsed,
	}

	for _, v := range verdicts {
		switch v.Kind {
		case models.VerdictAutoMatched:
			summary.AutoMatched++
		case models.VerdictManualReview:
			summary.ManualReview++
		case models.VerdictUnmatched:
			if v.Transaction != nil && v.Transaction.Source == models.SourceBank {
				summary.UnmatchedA++
			} else {
				summary.UnmatchedB++
			}
		}
	}

	return summary
}
