// Package reconciler orchestrates a full reconciliation run: parsing both
// source files, applying previously reviewed decisions, running the matching
// engine and assembling the run result.
package reconciler

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/internal/parsers"
	"payment-reconciliation-engine/internal/reviewstore"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"
)

// RunOptions describes one reconciliation run.
type RunOptions struct {
	SourceFile   string
	SourceFormat parsers.Format
	TargetFile   string
	TargetFormat parsers.Format
	Config       *matcher.ReconciliationConfig
}

// RunResult is the full outcome of a run, including parse statistics and
// row-level errors alongside the engine output.
type RunResult struct {
	RunID       string                        `json:"run_id"`
	StartedAt   time.Time                     `json:"started_at"`
	FinishedAt  time.Time                     `json:"finished_at"`
	SourceStats *parsers.ParseStats           `json:"source_stats"`
	TargetStats *parsers.ParseStats           `json:"target_stats"`
	RowErrors   []*errors.ReconcilerError     `json:"row_errors,omitempty"`
	Result      *matcher.ReconciliationResult `json:"result"`
}

// Service runs reconciliations. A nil review store disables decision
// persistence; runs then behave as if nothing was ever reviewed.
type Service struct {
	store reviewstore.Store
	log   logger.Logger
}

// NewService creates a reconciliation service.
func NewService(store reviewstore.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{store: store, log: log.WithComponent("reconciler")}
}

// Run executes a complete reconciliation.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runID := uuid.New().String()
	log := s.log.WithField("run_id", runID)
	startedAt := time.Now()

	engine, err := matcher.NewMatchingEngine(opts.Config, log)
	if err != nil {
		return nil, err
	}

	sourceTxs, sourceStats, sourceErrors, err := parsers.ParseFile(opts.SourceFile, opts.SourceFormat, models.SourceBank, log)
	if err != nil {
		return nil, err
	}
	targetTxs, targetStats, targetErrors, err := parsers.ParseFile(opts.TargetFile, opts.TargetFormat, models.SourceTarget, log)
	if err != nil {
		return nil, err
	}

	reviewed, err := s.reviewedKeys()
	if err != nil {
		return nil, err
	}

	pinned, remainingA, remainingB := applyConfirmed(sourceTxs, targetTxs, reviewed)
	if len(pinned) > 0 {
		log.WithField("pinned", len(pinned)).Debug("Applied confirmed review decisions")
	}

	engineResult, err := engine.Reconcile(ctx, remainingA, remainingB)
	if err != nil {
		return nil, err
	}

	engineResult.Verdicts = append(pinned, suppressRejected(engineResult.Verdicts, reviewed)...)
	recount(engineResult, len(sourceTxs), len(targetTxs))

	return &RunResult{
		RunID:       runID,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		SourceStats: sourceStats,
		TargetStats: targetStats,
		RowErrors:   append(sourceErrors, targetErrors...),
		Result:      engineResult,
	}, nil
}

// RecordDecision persists an operator ruling on a manual-review pair.
func (s *Service) RecordDecision(pair *reviewstore.ReviewedPair) error {
	if s.store == nil {
		return errors.StorageError(errors.CodeStoreUnavailable, "record decision", nil).
			WithSuggestion("configure a review database path")
	}
	return s.store.Save(pair)
}

func (s *Service) reviewedKeys() (map[string]reviewstore.Decision, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ReviewedKeys()
}

// applyConfirmed removes confirmed pairs from both collections and emits
// them as already-matched verdicts, preserving A input order.
func applyConfirmed(sourceTxs, targetTxs []*models.Transaction, reviewed map[string]reviewstore.Decision) ([]models.MatchVerdict, []*models.Transaction, []*models.Transaction) {
	if len(reviewed) == 0 {
		return nil, sourceTxs, targetTxs
	}

	targetsByID := make(map[string]*models.Transaction, len(targetTxs))
	targetOrdinals := make(map[string]int, len(targetTxs))
	for i, tx := range targetTxs {
		targetsByID[tx.ID] = tx
		targetOrdinals[tx.ID] = i
	}

	// Sorted key order keeps the outcome stable when an A transaction
	// carries conflicting confirmed decisions: the lowest pair key wins.
	keys := make([]string, 0, len(reviewed))
	for key := range reviewed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	confirmedBForA := make(map[string]string)
	for _, key := range keys {
		if reviewed[key] != reviewstore.DecisionConfirmed {
			continue
		}
		if aID, bID, ok := splitPairKey(key); ok {
			if _, taken := confirmedBForA[aID]; !taken {
				confirmedBForA[aID] = bID
			}
		}
	}

	var pinned []models.MatchVerdict
	consumedA := make(map[string]bool)
	consumedB := make(map[string]bool)

	for _, txA := range sourceTxs {
		bID, confirmed := confirmedBForA[txA.ID]
		if !confirmed || consumedB[bID] {
			continue
		}
		txB, exists := targetsByID[bID]
		if !exists {
			continue
		}

		pinned = append(pinned, models.MatchVerdict{
			Kind: models.VerdictAutoMatched,
			Pair: &models.CandidatePair{
				A: txA, B: txB,
				Confidence: 1.0,
				AmountDiff: txA.Amount.Sub(txB.Amount).Abs(),
				BOrdinal:   targetOrdinals[bID],
			},
			MatchedBy: "reviewed",
		})
		consumedA[txA.ID] = true
		consumedB[bID] = true
	}

	remainingA := make([]*models.Transaction, 0, len(sourceTxs))
	for _, tx := range sourceTxs {
		if !consumedA[tx.ID] {
			remainingA = append(remainingA, tx)
		}
	}
	remainingB := make([]*models.Transaction, 0, len(targetTxs))
	for _, tx := range targetTxs {
		if !consumedB[tx.ID] {
			remainingB = append(remainingB, tx)
		}
	}

	return pinned, remainingA, remainingB
}

// suppressRejected downgrades manual-review proposals an operator already
// rejected: the pair is split back into two unmatched transactions.
func suppressRejected(verdicts []models.MatchVerdict, reviewed map[string]reviewstore.Decision) []models.MatchVerdict {
	if len(reviewed) == 0 {
		return verdicts
	}

	out := make([]models.MatchVerdict, 0, len(verdicts))
	for _, verdict := range verdicts {
		if verdict.Kind == models.VerdictManualReview &&
			reviewed[verdict.Pair.Key()] == reviewstore.DecisionRejected {
			out = append(out,
				models.MatchVerdict{Kind: models.VerdictUnmatched, Transaction: verdict.Pair.A},
				models.MatchVerdict{Kind: models.VerdictUnmatched, Transaction: verdict.Pair.B})
			continue
		}
		out = append(out, verdict)
	}
	return out
}

// recount rebuilds the summary counts after pinning and suppression.
func recount(result *matcher.ReconciliationResult, totalA, totalB int) {
	summary := &result.Summary
	summary.TotalA = totalA
	summary.TotalB = totalB
	summary.AutoMatched = 0
	summary.ManualReview = 0
	summary.UnmatchedA = 0
	summary.UnmatchedB = 0

	for _, v := range result.Verdicts {
		switch v.Kind {
		case models.VerdictAutoMatched:
			summary.AutoMatched++
		case models.VerdictManualReview:
			summary.ManualReview++
		case models.VerdictUnmatched:
			if v.Transaction.Source == models.SourceBank {
				summary.UnmatchedA++
			} else {
				summary.UnmatchedB++
			}
		}
	}
}

func splitPairKey(key string) (string, string, bool) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
