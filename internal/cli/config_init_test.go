package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlift/cardlift/internal/cli"
	"github.com/cardlift/cardlift/internal/config"
)

// setupConfigTest isolates the config home and registers cleanup for global
// state shared across CLI invocations.
func setupConfigTest(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvProjectDir, "")
	t.Setenv(config.EnvLogLevel, "error")
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
}

func runConfigCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestConfigInit_InsideProject verifies that "config init" run against a
// project directory creates .cardlift/config.yaml plus a .gitignore guarding
// the token.
func TestConfigInit_InsideProject(t *testing.T) {
	setupConfigTest(t)
	projectRoot := t.TempDir()
	t.Setenv(config.EnvProjectDir, projectRoot)

	out, err := runConfigCmd(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized at")
	assert.Contains(t, out, "Created .gitignore")

	configPath := filepath.Join(projectRoot, ".cardlift", "config.yaml")
	data, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr, ".cardlift/config.yaml should exist")
	assert.Contains(t, string(data), "gallery:")
	assert.Contains(t, string(data), "batch_size:")

	gitignoreData, readErr := os.ReadFile(filepath.Join(projectRoot, ".cardlift", ".gitignore"))
	require.NoError(t, readErr, ".cardlift/.gitignore should exist")
	assert.Equal(t, config.GitignoreContent(), string(gitignoreData))
}

// TestConfigInit_ExistingGitignorePreserved verifies that re-running init
// with --force never overwrites a hand-edited .gitignore.
func TestConfigInit_ExistingGitignorePreserved(t *testing.T) {
	setupConfigTest(t)
	projectRoot := t.TempDir()
	t.Setenv(config.EnvProjectDir, projectRoot)

	cardliftDir := filepath.Join(projectRoot, ".cardlift")
	require.NoError(t, os.MkdirAll(cardliftDir, 0o750))

	custom := "# hand-edited\n*.secret\n"
	gitignorePath := filepath.Join(cardliftDir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignorePath, []byte(custom), 0o644))

	_, err := runConfigCmd(t, "config", "init", "--force")
	require.NoError(t, err)

	data, readErr := os.ReadFile(gitignorePath)
	require.NoError(t, readErr)
	assert.Equal(t, custom, string(data), "existing .gitignore must be preserved")
}

// TestConfigInit_Global verifies --global writes under the config home and
// that a second run refuses to clobber the file without --force.
func TestConfigInit_Global(t *testing.T) {
	setupConfigTest(t)
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	out, err := runConfigCmd(t, "config", "init", "--global")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized at")

	configPath := filepath.Join(home, "config.yaml")
	info, statErr := os.Stat(configPath)
	require.NoError(t, statErr)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config may hold a token")

	t.Run("RefusesOverwrite", func(t *testing.T) {
		_, err := runConfigCmd(t, "config", "init", "--global")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("ForceOverwrites", func(t *testing.T) {
		require.NoError(t, os.WriteFile(configPath, []byte("# scribbled\n"), 0600))
		_, err := runConfigCmd(t, "config", "init", "--global", "--force")
		require.NoError(t, err)

		data, readErr := os.ReadFile(configPath)
		require.NoError(t, readErr)
		assert.Contains(t, string(data), "gallery:")
	})
}
