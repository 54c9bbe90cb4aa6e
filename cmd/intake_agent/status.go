package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mateo/contract-intake/internal/types"
	"github.com/mateo/contract-intake/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workflow state for one document or list documents",
	RunE:  runStatusCmd,
}

var (
	statusConfigPath  string
	statusID          string
	statusStage       string
	statusDisposition string
	statusDatabaseURL string
)

func init() {
	statusCmd.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCmd.Flags().StringVar(&statusID, "id", "", "Document id (omit to list)")
	statusCmd.Flags().StringVar(&statusStage, "stage", "", "Filter listing by stage")
	statusCmd.Flags().StringVar(&statusDisposition, "disposition", "", "Filter listing by disposition")
	statusCmd.Flags().StringVar(&statusDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(statusConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = statusDatabaseURL
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if statusID != "" {
		state, err := store.Get(ctx, statusID)
		if err != nil {
			return err
		}
		if state == nil {
			return fmt.Errorf("document not found: %s", statusID)
		}
		return enc.Encode(state)
	}

	states, err := store.List(ctx, workflow.Filter{
		Stage:       types.Stage(statusStage),
		Disposition: types.Disposition(statusDisposition),
	})
	if err != nil {
		return err
	}
	for _, state := range states {
		fmt.Fprintf(os.Stdout, "%-40s %-12s %-12s attempts=%d\n",
			state.DocumentID, state.Stage, state.Disposition, state.Attempts)
	}
	fmt.Fprintf(os.Stdout, "%d document(s)\n", len(states))
	return nil
}
