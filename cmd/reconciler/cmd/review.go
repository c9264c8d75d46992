package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"payment-reconciliation-engine/internal/reviewstore"
)

// Flags for the review command
var (
	reviewPair     string
	reviewDecision string
	reviewedBy     string
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record a decision on a manual-review pair",
	Long: `Review records an operator decision on a pair previously flagged for
manual review. Confirmed pairs are matched automatically on later runs;
rejected pairs are never proposed again.

The pair is identified by the two transaction IDs from the report, joined
with a colon.

Examples:
  reconciler review --review-db review.db --pair 7b1339c40d1ad482:41efdd187a1bc33c --decision confirmed
  reconciler review --review-db review.db --pair 7b1339c40d1ad482:41efdd187a1bc33c --decision rejected --by alice`,

	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&reviewDBPath, "review-db", "", "path to the review decision database (required)")
	reviewCmd.Flags().StringVar(&reviewPair, "pair", "", "pair identity as <source-id>:<target-id> (required)")
	reviewCmd.Flags().StringVar(&reviewDecision, "decision", "", "decision: confirmed or rejected (required)")
	reviewCmd.Flags().StringVar(&reviewedBy, "by", "", "reviewer name")

	reviewCmd.MarkFlagRequired("review-db")
	reviewCmd.MarkFlagRequired("pair")
	reviewCmd.MarkFlagRequired("decision")
}

func runReview(cmd *cobra.Command, args []string) error {
	parts := strings.SplitN(reviewPair, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid pair '%s': expected <source-id>:<target-id>", reviewPair)
	}

	decision := reviewstore.Decision(strings.ToLower(reviewDecision))
	if !decision.IsValid() {
		return fmt.Errorf("invalid decision '%s': must be confirmed or rejected", reviewDecision)
	}

	store, err := reviewstore.NewSQLiteStore(reviewDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(&reviewstore.ReviewedPair{
		AID:        parts[0],
		BID:        parts[1],
		Decision:   decision,
		ReviewedBy: reviewedBy,
	}); err != nil {
		return err
	}

	fmt.Printf("Recorded %s decision for pair %s.\n", decision, reviewPair)
	return nil
}
