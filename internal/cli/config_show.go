package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardlift/cardlift/internal/config"
)

// redactedToken replaces the real token in config show output.
const redactedToken = "[redacted]"

// NewConfigShowCmd creates the config show command. It prints the effective
// configuration after file, project overlay, environment, and flag layering,
// with the token redacted so the output is safe to paste into a bug report.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Long: `Prints the effective configuration as YAML after all sources are layered:
defaults, the global config file, the project-local overlay, and environment
variables. The token value is redacted.`,
		Example: `  # Show the effective configuration
  cardlift config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConfigShow(cmd)
		},
	}
}

func executeConfigShow(cmd *cobra.Command) error {
	cfg := *config.GetGlobalConfig()
	if cfg.Gallery.Token != "" {
		cfg.Gallery.Token = redactedToken
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}

	if projectDir := config.GetResolvedProjectDir(); projectDir != "" {
		cmd.Printf("# project config: %s\n", projectDir)
	}
	cmd.Print(string(out))
	return nil
}
