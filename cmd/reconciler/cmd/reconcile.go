package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-reconciliation-engine/cmd/reconciler/config"
	"payment-reconciliation-engine/internal/parsers"
	"payment-reconciliation-engine/internal/reconciler"
	"payment-reconciliation-engine/internal/reporter"
	"payment-reconciliation-engine/internal/reviewstore"
	"payment-reconciliation-engine/pkg/logger"
)

// Flags for the reconcile command
var (
	sourceFile   string
	sourceFormat string
	targetFile   string
	targetFormat string
	outputFormat string
	outputFile   string
	reviewDBPath string

	profile               string
	amountTolerancePct    float64
	amountToleranceAbs    float64
	dateWindowDays        int
	autoMatchThreshold    float64
	manualReviewThreshold float64
	workers               int
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank-side export against target records",
	Long: `Reconcile compares a bank-side export (bank CSV, mobile money log, or
transfer log) with a target-side record collection. Exact reference matches
are resolved first; remaining records are paired by weighted fuzzy scoring
over amount, description, date, and reference.

Examples:
  # Basic reconciliation with format auto-detection
  reconciler reconcile --source-file statement.csv --target-file invoices.csv

  # Explicit formats and JSON output
  reconciler reconcile -s momo.txt --source-format mobilemoney \
    -t invoices.csv --target-format bank --output-format json -o report.json

  # Tighter matching with a review database
  reconciler reconcile -s statement.csv -t invoices.csv \
    --profile strict --review-db review.db

  # Parallel scoring for large batches
  reconciler reconcile -s statement.csv -t invoices.csv --workers 8`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&sourceFile, "source-file", "s", "", "path to the bank-side export (required)")
	reconcileCmd.Flags().StringVarP(&targetFile, "target-file", "t", "", "path to the target-side records (required)")

	// Format flags
	reconcileCmd.Flags().StringVar(&sourceFormat, "source-format", "auto", "source format: auto, bank, mobilemoney, transfer")
	reconcileCmd.Flags().StringVar(&targetFormat, "target-format", "auto", "target format: auto, bank, mobilemoney, transfer")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Review store
	reconcileCmd.Flags().StringVar(&reviewDBPath, "review-db", "", "path to the review decision database (optional)")

	// Matching configuration flags
	reconcileCmd.Flags().StringVar(&profile, "profile", "default", "matching profile: default, strict, relaxed")
	reconcileCmd.Flags().Float64Var(&amountTolerancePct, "amount-tolerance-pct", -1, "relative amount tolerance (e.g. 0.02 for 2%)")
	reconcileCmd.Flags().Float64Var(&amountToleranceAbs, "amount-tolerance-abs", -1, "absolute amount tolerance floor")
	reconcileCmd.Flags().IntVar(&dateWindowDays, "date-window", -1, "date window in days")
	reconcileCmd.Flags().Float64Var(&autoMatchThreshold, "auto-threshold", -1, "auto-match confidence threshold")
	reconcileCmd.Flags().Float64Var(&manualReviewThreshold, "review-threshold", -1, "manual-review confidence threshold")
	reconcileCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of scoring workers (0 = single-threaded)")

	reconcileCmd.MarkFlagRequired("source-file")
	reconcileCmd.MarkFlagRequired("target-file")

	// Bind flags to viper
	viper.BindPFlag("source-file", reconcileCmd.Flags().Lookup("source-file"))
	viper.BindPFlag("target-file", reconcileCmd.Flags().Lookup("target-file"))
	viper.BindPFlag("source-format", reconcileCmd.Flags().Lookup("source-format"))
	viper.BindPFlag("target-format", reconcileCmd.Flags().Lookup("target-format"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("review-db", reconcileCmd.Flags().Lookup("review-db"))
	viper.BindPFlag("profile", reconcileCmd.Flags().Lookup("profile"))
	viper.BindPFlag("amount-tolerance-pct", reconcileCmd.Flags().Lookup("amount-tolerance-pct"))
	viper.BindPFlag("amount-tolerance-abs", reconcileCmd.Flags().Lookup("amount-tolerance-abs"))
	viper.BindPFlag("date-window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("auto-threshold", reconcileCmd.Flags().Lookup("auto-threshold"))
	viper.BindPFlag("review-threshold", reconcileCmd.Flags().Lookup("review-threshold"))
	viper.BindPFlag("workers", reconcileCmd.Flags().Lookup("workers"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from config file and environment.
	sourceFile = viper.GetString("source-file")
	targetFile = viper.GetString("target-file")
	sourceFormat = viper.GetString("source-format")
	targetFormat = viper.GetString("target-format")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	reviewDBPath = viper.GetString("review-db")
	profile = viper.GetString("profile")
	workers = viper.GetInt("workers")

	if sourceFile == "" {
		return fmt.Errorf("source-file is required")
	}
	if targetFile == "" {
		return fmt.Errorf("target-file is required")
	}

	if err := validateFileExists(sourceFile, "source file"); err != nil {
		return err
	}
	if err := validateFileExists(targetFile, "target file"); err != nil {
		return err
	}

	if _, err := parsers.ParseFormat(sourceFormat); err != nil {
		return fmt.Errorf("invalid source format '%s'. Valid formats: auto, bank, mobilemoney, transfer", sourceFormat)
	}
	if _, err := parsers.ParseFormat(targetFormat); err != nil {
		return fmt.Errorf("invalid target format '%s'. Valid formats: auto, bank, mobilemoney, transfer", targetFormat)
	}
	if _, err := reporter.ParseOutputFormat(outputFormat); err != nil {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	validProfiles := map[string]bool{"default": true, "strict": true, "relaxed": true}
	if !validProfiles[profile] {
		return fmt.Errorf("invalid profile '%s'. Valid profiles: default, strict, relaxed", profile)
	}

	if workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger()

	srcFormat, _ := parsers.ParseFormat(sourceFormat)
	tgtFormat, _ := parsers.ParseFormat(targetFormat)
	outFormat, _ := reporter.ParseOutputFormat(outputFormat)

	matchingConfig := config.CreateMatchingConfig(profile, config.MatchingOverrides{
		AmountTolerancePct:    viper.GetFloat64("amount-tolerance-pct"),
		AmountToleranceAbs:    viper.GetFloat64("amount-tolerance-abs"),
		DateWindowDays:        viper.GetInt("date-window"),
		AutoMatchThreshold:    viper.GetFloat64("auto-threshold"),
		ManualReviewThreshold: viper.GetFloat64("review-threshold"),
		Workers:               workers,
	})

	var store reviewstore.Store
	if reviewDBPath != "" {
		sqliteStore, err := reviewstore.NewSQLiteStore(reviewDBPath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	service := reconciler.NewService(store, log)

	result, err := service.Run(ctx, reconciler.RunOptions{
		SourceFile:   sourceFile,
		SourceFormat: srcFormat,
		TargetFile:   targetFile,
		TargetFormat: tgtFormat,
		Config:       matchingConfig,
	})
	if err != nil {
		return err
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	report := reporter.NewReporter(config.CreateReportConfig(outFormat))
	if err := report.Write(output, result.Result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if viper.GetBool("verbose") {
		summary := result.Result.Summary
		fmt.Fprintf(os.Stderr, "\nRun %s completed in %s.\n", result.RunID, result.FinishedAt.Sub(result.StartedAt))
		fmt.Fprintf(os.Stderr, "Parsed %d source and %d target transactions (%d rows rejected).\n",
			result.SourceStats.Transactions, result.TargetStats.Transactions, len(result.RowErrors))
		fmt.Fprintf(os.Stderr, "Auto matched %d, queued %d for review, left %d+%d unmatched.\n",
			summary.AutoMatched, summary.ManualReview, summary.UnmatchedA, summary.UnmatchedB)
	}

	return nil
}
