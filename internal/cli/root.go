package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cardlift/cardlift/internal/config"
	"github.com/cardlift/cardlift/internal/logging"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the cardlift CLI.
// It resolves the effective configuration (explicit --config file, or the
// project-local .cardlift overlay on top of the global file), wires up
// logging, and registers the upload, config and version subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.SetupResult

	cmd := &cobra.Command{
		Use:     "cardlift",
		Short:   "Bulk-upload character cards to a gallery service",
		Long:    "cardlift: batch-upload card images with metadata to a character gallery, with per-card outcome tracking and retry of failed cards",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(cfg)

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().String("config", "", "path to an explicit config file (skips discovery)")
	cmd.PersistentFlags().String("project-dir", "", "project directory containing .cardlift/ (default: walk up from cwd)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging to stderr")
	cmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-file", "", "append logs to this file instead of stderr")
	cmd.PersistentFlags().String("log-format", "", "log format: console or json")

	cmd.AddCommand(NewUploadCmd(), newConfigCmd(), NewVersionCmd(ver))

	return cmd
}

const rootCmdExample = `  # Upload every image in a directory
  cardlift upload --series "Neon Drift" ./cards

  # Upload from a manifest with per-card metadata
  cardlift upload --manifest cards.yaml

  # Retry whatever failed last run automatically
  cardlift upload --manifest cards.yaml --retry

  # Initialize configuration
  cardlift config init

  # Show the resolved configuration
  cardlift config show`

// resolveConfig builds the effective configuration for this invocation.
// Precedence: command flags (applied by each command) > CARDLIFT_* env vars >
// explicit --config file, or project-local config shallow-merged over the
// global file > built-in defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()

	if explicit, _ := cmd.Flags().GetString("config"); explicit != "" {
		cfg, err := config.Load(explicit)
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnv()
		return cfg, nil
	}

	projectFlag, _ := cmd.Flags().GetString("project-dir")
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	projectDir := config.ResolveProjectDir(ctx, projectFlag, cwd)
	config.SetResolvedProjectDir(projectDir)

	cfg := config.NewWithProjectDir(ctx, projectDir)
	cfg.ApplyEnv()
	return cfg, nil
}

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd())
	return cmd
}
