// Command statusboard runs the multi-tenant status page service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bissquit/statusboard/internal/config"
	"github.com/bissquit/statusboard/internal/version"
)

var configPath string

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "statusboard",
		Short:         "statusboard serves status pages and tracks service incidents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv()
		},
		// Running without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("STATUSBOARD_CONFIG"), "path to YAML config file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statusboard %s\n", version.Get())
		},
	}
}

// loadDotEnv reads .env from the working directory when it exists.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// loadDatabaseURL reads only what migrations need, so they run without the server secrets.
func loadDatabaseURL() (string, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	if cfg.Database.URL == "" {
		return "", errors.New("database.url is required")
	}
	return cfg.Database.URL, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
