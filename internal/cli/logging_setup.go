package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardlift/cardlift/internal/config"
	"github.com/cardlift/cardlift/internal/logging"
)

// setupLogging configures logging from the resolved config and CLI flags.
// Flags win over config; --debug wins over everything and forces console
// output to stderr so the log stream stays visible next to the TUI.
func setupLogging(cmd *cobra.Command) logging.SetupResult {
	logCfg := config.GetGlobalConfig().Logging.ToLoggingConfig()

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logCfg.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		logCfg.Format = format
	}
	if file, _ := cmd.Flags().GetString("log-file"); file != "" {
		logCfg.File = file
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
		logCfg.Format = logging.FormatConsole
		logCfg.File = ""
	}

	// Ensure the log directory exists after all overrides have been applied.
	if logCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(logCfg.File), 0700); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLogger(logCfg)
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	cmd.SetContext(logging.WithContext(cmd.Context(), result.Logger))

	logger.Debug().Str("command", cmd.Name()).Msg("command started")

	return result
}

// cleanupLogging closes the log file handle, if one was opened.
func cleanupLogging(logResult *logging.SetupResult) error {
	if logResult == nil {
		return nil
	}
	return logResult.Close()
}
