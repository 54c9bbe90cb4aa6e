package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mateo/contract-intake/internal/config"
	"github.com/mateo/contract-intake/internal/convert"
	"github.com/mateo/contract-intake/internal/crm"
	"github.com/mateo/contract-intake/internal/db"
	"github.com/mateo/contract-intake/internal/extraction"
	"github.com/mateo/contract-intake/internal/rules"
	"github.com/mateo/contract-intake/internal/schedule"
	"github.com/mateo/contract-intake/internal/types"
	"github.com/mateo/contract-intake/internal/verify"
	"github.com/mateo/contract-intake/internal/workflow"
)

// openStore returns the configured store: PostgreSQL when a database URL is
// set (flag, config, or DATABASE_URL env), in-memory otherwise. The returned
// cleanup func is safe to call on either.
func openStore(ctx context.Context, cfg config.Config) (workflow.Store, func(), error) {
	databaseURL := cfg.DatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return workflow.NewMemoryStore(), func() {}, nil
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, database.Close, nil
}

// buildCoordinator wires the pipeline collaborators from configuration.
func buildCoordinator(cfg config.Config, store workflow.Store) *workflow.Coordinator {
	converter := convert.NewMarkdownConverter()
	if cfg.ConversionPageMax > 0 {
		converter.PageLimit = cfg.ConversionPageMax
	}

	policy := verify.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.MaxBackoffMs) * time.Millisecond,
		CallTimeout:    time.Duration(cfg.CallTimeoutMs) * time.Millisecond,
	}
	orchestrator := verify.NewOrchestrator(policy,
		&verify.HTTPChecker{
			ServiceName: types.ServiceIdentity,
			Endpoint:    cfg.Identity.Endpoint,
			APIKey:      cfg.Identity.APIKey,
		},
		&verify.HTTPChecker{
			ServiceName: types.ServiceWatchlist,
			Endpoint:    cfg.Watchlist.Endpoint,
			APIKey:      cfg.Watchlist.APIKey,
		},
		&verify.HTTPChecker{
			ServiceName:    types.ServiceFraud,
			Endpoint:       cfg.Fraud.Endpoint,
			APIKey:         cfg.Fraud.APIKey,
			ScoreThreshold: cfg.FraudThreshold,
		},
	)

	return workflow.NewCoordinator(
		store,
		converter,
		extraction.NewExtractor(cfg.ConfidenceCutoff),
		rules.NewEngine(),
		orchestrator,
		schedule.Calculator{},
		&crm.Client{Endpoint: cfg.CRM.Endpoint, APIKey: cfg.CRM.APIKey},
		time.Duration(cfg.VerifyDeadlineMs)*time.Millisecond,
	)
}

// loadMergedConfig loads an optional config file, validates it, and applies
// built-in defaults.
func loadMergedConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	return cfg.MergeWithDefaults(config.DefaultConfig()), nil
}
