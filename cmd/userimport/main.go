// Command userimport runs CSV user imports and maintenance tasks from the
// command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/userimport/internal/application"
	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
)

// SourceCLI tags operations started from this command.
const SourceCLI = "cli"

var (
	// Global flags
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "userimport",
	Short: "Import users from semicolon-separated CSV files",
	Long: `userimport creates and updates user accounts from a semicolon-separated
CSV file whose first line names the columns (user_email is required).

Configuration is read from the environment, optionally loaded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(importCmd, migrateCmd, avatarsCmd)
}

// loadConfig reads configuration and sets up logging to stderr.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
	return cfg, nil
}

// openApp loads configuration and opens the application.
func openApp(ctx context.Context) (*application.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return application.Open(ctx, cfg)
}

func commandContext(cmd *cobra.Command) context.Context {
	return core.ContextWithSource(cmd.Context(), SourceCLI)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
