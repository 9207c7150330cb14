package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlift/cardlift/internal/config"
)

// newMergeTarget returns a Config with known non-default values so tests can
// verify that absent overlay keys leave the original values intact.
func newMergeTarget() *config.Config {
	return &config.Config{
		Gallery: config.GalleryConfig{
			Endpoint:      "https://global.example.com",
			Token:         "global-token",
			Timeout:       "45s",
			APIConstraint: "^1",
		},
		Upload: config.UploadConfig{
			BatchSize: 10,
			RateLimit: 1,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// writeOverlay is a test helper that writes YAML content to a temp file
// and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestShallowMergeYAML_SingleKeyOverride(t *testing.T) {
	target := newMergeTarget()
	overlay := writeOverlay(t, `
logging:
  level: debug
  format: json
`)

	err := config.ShallowMergeYAML(target, overlay)
	require.NoError(t, err)

	// Logging should be replaced.
	assert.Equal(t, "debug", target.Logging.Level)
	assert.Equal(t, "json", target.Logging.Format)

	// Other sections should be unchanged.
	assert.Equal(t, "https://global.example.com", target.Gallery.Endpoint)
	assert.Equal(t, 10, target.Upload.BatchSize)
}

func TestShallowMergeYAML_SectionReplacedWholesale(t *testing.T) {
	target := newMergeTarget()
	overlay := writeOverlay(t, `
gallery:
  endpoint: "https://project.example.com"
`)

	err := config.ShallowMergeYAML(target, overlay)
	require.NoError(t, err)

	// The overlay replaces the entire gallery section, not individual keys.
	assert.Equal(t, "https://project.example.com", target.Gallery.Endpoint)
	assert.Empty(t, target.Gallery.Token)
	assert.Zero(t, target.Gallery.Timeout)
}

func TestShallowMergeYAML_MultipleKeyOverride(t *testing.T) {
	target := newMergeTarget()
	overlay := writeOverlay(t, `
upload:
  batch_size: 5
  rate_limit: 0.5
logging:
  level: warn
`)

	err := config.ShallowMergeYAML(target, overlay)
	require.NoError(t, err)

	assert.Equal(t, 5, target.Upload.BatchSize)
	assert.InDelta(t, 0.5, target.Upload.RateLimit, 1e-9)
	assert.Equal(t, "warn", target.Logging.Level)
	assert.Equal(t, "global-token", target.Gallery.Token)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := newMergeTarget()
	overlay := writeOverlay(t, `
unknown_section:
  whatever: true
logging:
  level: error
`)

	err := config.ShallowMergeYAML(target, overlay)
	require.NoError(t, err)
	assert.Equal(t, "error", target.Logging.Level)
}

func TestShallowMergeYAML_EmptyOverlay(t *testing.T) {
	target := newMergeTarget()
	overlay := writeOverlay(t, "# comments only\n")

	err := config.ShallowMergeYAML(target, overlay)
	require.NoError(t, err)
	assert.Equal(t, newMergeTarget(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("NilTarget", func(t *testing.T) {
		err := config.ShallowMergeYAML(nil, "anywhere.yaml")
		require.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		err := config.ShallowMergeYAML(newMergeTarget(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading overlay file")
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		overlay := writeOverlay(t, "gallery: [broken")
		err := config.ShallowMergeYAML(newMergeTarget(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing overlay YAML")
	})

	t.Run("WrongSectionShape", func(t *testing.T) {
		overlay := writeOverlay(t, "upload: just-a-string\n")
		err := config.ShallowMergeYAML(newMergeTarget(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `applying overlay section "upload"`)
	})
}
