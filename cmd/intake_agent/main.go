// Package main provides the entry point for the contract intake pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intake_agent",
	Short: "Contract document intake and verification pipeline",
	Long:  "Intake agent converts scanned contract documents to structured text, extracts and validates contract terms, verifies signatories against external compliance services, derives payment schedules, and submits approved outcomes to the CRM.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
