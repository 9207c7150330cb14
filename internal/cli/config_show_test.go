package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlift/cardlift/internal/config"
)

func TestConfigShow_RedactsToken(t *testing.T) {
	setupConfigTest(t)
	t.Setenv(config.EnvToken, "super-secret-token")

	out, err := runConfigCmd(t, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "[redacted]")
	assert.NotContains(t, out, "super-secret-token")
	assert.Contains(t, out, "gallery:")
	assert.Contains(t, out, "upload:")
}

func TestConfigShow_ReflectsExplicitConfigFile(t *testing.T) {
	setupConfigTest(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `gallery:
  endpoint: https://gallery.example.com
  timeout: 30s
upload:
  batch_size: 4
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	out, err := runConfigCmd(t, "--config", configPath, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "endpoint: https://gallery.example.com")
	assert.Contains(t, out, "batch_size: 4")
	assert.Contains(t, out, "timeout: 30s")
}

func TestConfigShow_NamesProjectOverlay(t *testing.T) {
	setupConfigTest(t)
	projectRoot := t.TempDir()
	t.Setenv(config.EnvProjectDir, projectRoot)

	cardliftDir := filepath.Join(projectRoot, ".cardlift")
	require.NoError(t, os.MkdirAll(cardliftDir, 0o750))
	overlay := "upload:\n  batch_size: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(cardliftDir, "config.yaml"), []byte(overlay), 0600))

	out, err := runConfigCmd(t, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "# project config: "+cardliftDir)
	assert.Contains(t, out, "batch_size: 3")
}
