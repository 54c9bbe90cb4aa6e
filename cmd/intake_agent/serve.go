package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mateo/contract-intake/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for document intake, status, and replay.`,
	RunE:  runServe,
}

var (
	serveConfigPath  string
	serveListenAddr  string
	serveDatabaseURL string
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().StringVar(&serveListenAddr, "addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = serveListenAddr
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = serveDatabaseURL
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	coordinator := buildCoordinator(cfg, store)
	srv := server.New(server.Config{ListenAddr: cfg.ListenAddr}, coordinator, store)
	return srv.Start()
}
