package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp directory for the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "gavel")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gpt-4-turbo", cfg.Model)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 5, cfg.Review.Workers)
	assert.Equal(t, 50, cfg.Review.MaxFiles)
	assert.Equal(t, 7*24, cfg.Cache.ReviewTTLHours)
	assert.Equal(t, 30*24, cfg.Cache.HistoryTTLHours)
	assert.Equal(t, 24, cfg.Cache.TaskRetentionHours)
	assert.Equal(t, "127.0.0.1:8700", cfg.Server.Listen)
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Model, cfg.Model)
	assert.NotEmpty(t, cfg.StorePath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
model: claude-3-sonnet
review:
  workers: 3
  costCeiling: 0.5
gitlab:
  baseURL: https://git.internal.example
`), 0o600))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-sonnet", cfg.Model)
	assert.Equal(t, 3, cfg.Review.Workers)
	assert.Equal(t, 0.5, cfg.Review.CostCeiling)
	assert.Equal(t, "https://git.internal.example", cfg.GitLab.BaseURL)
	// Untouched fields keep their defaults.
	assert.Equal(t, 50, cfg.Review.MaxFiles)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("model: claude-3-sonnet\n"), 0o600))
	t.Setenv("GAVEL_MODEL", "gpt-4")
	t.Setenv("GAVEL_WORKERS", "7")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", cfg.Model)
	assert.Equal(t, 7, cfg.Review.Workers)
}

func TestLoad_OverridesWinOverEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GAVEL_MODEL", "gpt-4")

	cfg, err := Load(map[string]string{"model": "gpt-3.5-turbo", "workers": "2"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Model)
	assert.Equal(t, 2, cfg.Review.Workers)
}

func TestSaveAndLoadFile(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Model = "claude-3-haiku"
	cfg.GitLab.Token = "glpat-test"
	require.NoError(t, Save(cfg))

	loaded, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "claude-3-haiku", loaded.Model)
	assert.Equal(t, "glpat-test", loaded.GitLab.Token)
}

func TestSetField(t *testing.T) {
	cfg := Default()

	require.NoError(t, SetField(&cfg, "model", "gpt-4"))
	assert.Equal(t, "gpt-4", cfg.Model)

	require.NoError(t, SetField(&cfg, "workers", "9"))
	assert.Equal(t, 9, cfg.Review.Workers)

	require.NoError(t, SetField(&cfg, "costCeiling", "0.25"))
	assert.Equal(t, 0.25, cfg.Review.CostCeiling)

	assert.Error(t, SetField(&cfg, "workers", "nine"))
	assert.Error(t, SetField(&cfg, "nope", "x"))
}
