package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardlift/cardlift/internal/config"
)

// NewConfigInitCmd creates the config init command. When run inside a
// cardlift project (without --global), it writes a project-local
// .cardlift/config.yaml plus a .gitignore to keep the token out of version
// control. Otherwise it writes the global ~/.cardlift/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Writes a commented starter configuration file with default values.

When run inside a directory tree containing a .cardlift/ directory, the file
goes to that project-local directory along with a .gitignore guarding the
token. Use --global to write the global ~/.cardlift/config.yaml instead.`,
		Example: `  # Create project-local configuration (inside a cardlift project)
  cardlift config init

  # Create global configuration
  cardlift config init --global

  # Overwrite an existing file
  cardlift config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := config.GetResolvedProjectDir()

			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}
			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "write the global configuration even inside a project")

	return cmd
}

// initProjectConfig writes projectDir/config.yaml and its guarding .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")

	if err := config.WriteTemplate(configPath, force); err != nil {
		return fmt.Errorf("initializing project config: %w", err)
	}

	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("creating .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep the token out of version control\n")
	}
	return nil
}

// initGlobalConfig writes the global config file.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if err := config.WriteTemplate(configPath, force); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	return nil
}
