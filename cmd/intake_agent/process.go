package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mateo/contract-intake/internal/observability"
	"github.com/mateo/contract-intake/internal/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full intake pipeline for one document",
	Long: `Runs one document end-to-end: conversion -> extraction -> validation -> verification -> scheduling -> CRM submission.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runProcessCmd,
}

var (
	processConfigPath  string
	processFile        string
	processID          string
	processSource      string
	processDatabaseURL string
	processVerbose     bool
)

func init() {
	processCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "Path to the parsed document text file (required)")
	processCmd.Flags().StringVar(&processID, "id", "", "Document id (defaults to a new UUID)")
	processCmd.Flags().StringVar(&processSource, "source", "", "Intake source label")
	processCmd.Flags().StringVar(&processDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print detailed stage information")

	rootCmd.AddCommand(processCmd)
}

func runProcessCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(processConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = processDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = processVerbose
	}

	if processFile == "" {
		return fmt.Errorf("--file is required")
	}
	content, err := os.ReadFile(processFile)
	if err != nil {
		return fmt.Errorf("failed to read document file: %w", err)
	}

	documentID := processID
	if documentID == "" {
		documentID = uuid.New().String()
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	coordinator := buildCoordinator(cfg, store)

	doc := types.RawDocument{
		ID:         documentID,
		Source:     processSource,
		Location:   processFile,
		FileName:   filepath.Base(processFile),
		ReceivedAt: time.Now().UTC(),
		Bytes:      content,
	}

	state, err := coordinator.Process(ctx, doc)
	if err != nil {
		return err
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
