package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlift/cardlift/internal/config"
)

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("FlagTakesPrecedence", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "/should/not/be/used")

		dir := t.TempDir()
		got := config.ResolveProjectDir(ctx, dir, t.TempDir())
		assert.Equal(t, filepath.Join(dir, ".cardlift"), got)
	})

	t.Run("FlagAlreadyEndsInCardlift", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), ".cardlift")
		got := config.ResolveProjectDir(ctx, dir, t.TempDir())
		assert.Equal(t, dir, got)
	})

	t.Run("EnvVarUsedWithoutFlag", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(config.EnvProjectDir, dir)

		got := config.ResolveProjectDir(ctx, "", t.TempDir())
		assert.Equal(t, filepath.Join(dir, ".cardlift"), got)
	})

	t.Run("WalksUpToProjectRoot", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "")

		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".cardlift"), 0o750))
		nested := filepath.Join(root, "a", "b", "c")
		require.NoError(t, os.MkdirAll(nested, 0o750))

		got := config.ResolveProjectDir(ctx, "", nested)
		assert.Equal(t, filepath.Join(root, ".cardlift"), got)
	})

	t.Run("NoProjectFound", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "")

		got := config.ResolveProjectDir(ctx, "", t.TempDir())
		assert.Empty(t, got)
	})
}

func TestSetResolvedProjectDir(t *testing.T) {
	t.Cleanup(func() { config.SetResolvedProjectDir("") })

	config.SetResolvedProjectDir("/some/project/.cardlift")
	assert.Equal(t, "/some/project/.cardlift", config.GetResolvedProjectDir())
}

func TestNewWithProjectDir(t *testing.T) {
	ctx := context.Background()

	// Global config lives under a scratch CARDLIFT_HOME for the whole test.
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
gallery:
  endpoint: "https://global.example.com"
  token: "global-token"
logging:
  level: debug
`), 0600))

	t.Run("EmptyProjectDirBehavesLikeNew", func(t *testing.T) {
		cfg := config.NewWithProjectDir(ctx, "")
		assert.Equal(t, "https://global.example.com", cfg.Gallery.Endpoint)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("MissingOverlayUsesGlobal", func(t *testing.T) {
		cfg := config.NewWithProjectDir(ctx, t.TempDir())
		assert.Equal(t, "https://global.example.com", cfg.Gallery.Endpoint)
	})

	t.Run("OverlayReplacesSection", func(t *testing.T) {
		projectDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte(`
gallery:
  endpoint: "https://project.example.com"
`), 0600))

		cfg := config.NewWithProjectDir(ctx, projectDir)
		assert.Equal(t, "https://project.example.com", cfg.Gallery.Endpoint)
		// Whole-section replacement: the project overlay owns gallery now.
		assert.Empty(t, cfg.Gallery.Token)
		// Untouched sections keep global values.
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("MalformedOverlayFallsBackToGlobal", func(t *testing.T) {
		projectDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte("gallery: [broken"), 0600))

		cfg := config.NewWithProjectDir(ctx, projectDir)
		assert.Equal(t, "https://global.example.com", cfg.Gallery.Endpoint)
		assert.Equal(t, "global-token", cfg.Gallery.Token)
	})
}
