package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "2025", cfg.Pipeline.HUDYear)
	assert.Equal(t, 10, cfg.Pipeline.HUDWorkers)
	assert.Equal(t, "housing_data.db", cfg.Pipeline.DatasetPath)
	assert.Equal(t, "http://localhost:8080", cfg.CLI.BaseURL)
	assert.Equal(t, 30, cfg.CLI.RequestTimeout)
	assert.Contains(t, cfg.Database.URL, "postgres://")
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API.Port, cfg.API.Port)

	path, err := ConfigPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadMergesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "housing-data")
	require.NoError(t, os.MkdirAll(dir, 0755))
	partial := "[api]\nport = 9000\n\n[cli]\napi_key = \"abc123\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(partial), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	// Explicit values survive, gaps fill from defaults.
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "abc123", cfg.CLI.APIKey)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "http://localhost:8080", cfg.CLI.BaseURL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://env_user:env_pwd@db:5432/envdb")
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")
	t.Setenv("HUD_API_KEY", "env-hud-key")
	t.Setenv("BASE_URL", "http://api.internal:8080")
	t.Setenv("DATASET_PATH", "/var/data/housing.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://env_user:env_pwd@db:5432/envdb", cfg.Database.URL)
	assert.Equal(t, "env-gemini-key", cfg.AI.GeminiAPIKey)
	assert.Equal(t, "env-hud-key", cfg.Pipeline.HUDAPIKey)
	assert.Equal(t, "http://api.internal:8080", cfg.CLI.BaseURL)
	assert.Equal(t, "/var/data/housing.db", cfg.Pipeline.DatasetPath)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.CLI.APIKey = "saved-key"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.API.Port)
	assert.Equal(t, "saved-key", loaded.CLI.APIKey)
}
