package main

import (
	"fmt"
	"os"

	"catalog-api/internal/config"
	"catalog-api/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// envFile is shared by every subcommand through a persistent flag
var envFile string

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "catalog-api",
		Short: "Catalog management API",
		Long: `Catalog management API for products, categories, brands and customer reviews.

Without a subcommand the HTTP server is started.

Examples:
  catalog-api                     # Apply migrations and serve
  catalog-api migrate status      # Show applied migrations
  catalog-api --env-file prod.env # Serve with a specific env file`,
		SilenceUsage: true,
		RunE:         serveCommand,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Optional dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	return rootCmd
}

// bootstrap loads the configuration and builds the logger shared by all commands
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg := config.Load(envFile)

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
