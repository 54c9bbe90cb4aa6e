package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mateo/contract-intake/internal/observability"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Reprocess a failed document from the start",
	Long: `Replays a document whose workflow ended in a failed disposition. The raw
document bytes stored at intake are re-run through the full pipeline; completed
verification results and any CRM acknowledgment are reused.`,
	RunE: runReplayCmd,
}

var (
	replayConfigPath  string
	replayID          string
	replayDatabaseURL string
	replayVerbose     bool
)

func init() {
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Path to config.json file")
	replayCmd.Flags().StringVar(&replayID, "id", "", "Document id (required)")
	replayCmd.Flags().StringVar(&replayDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Print detailed stage information")
	_ = replayCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(replayCmd)
}

func runReplayCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(replayConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = replayDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = replayVerbose
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	coordinator := buildCoordinator(cfg, store)
	state, err := coordinator.Replay(ctx, replayID)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintContractRecord(state.Contract)
		printer.PrintValidationResult(state.Validation)
		printer.PrintVerificationResult(state.Verification)
		printer.PrintSchedule(state.Schedule)
	}
	printer.PrintWorkflowState(state)
	return nil
}
