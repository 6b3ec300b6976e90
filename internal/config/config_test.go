package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.Model)
	assert.Equal(t, 180*time.Second, cfg.Gemini.GenerateTimeout)
	assert.Equal(t, 3*time.Second, cfg.MinRequestInterval)
	assert.Equal(t, "field_library.json", cfg.FieldLibraryPath)
	assert.Equal(t, "presets_db.json", cfg.PresetsDBPath)
	assert.Equal(t, 500, cfg.Store.MaxImages)
	assert.Equal(t, 10*time.Minute, cfg.Store.CleanupInterval)
	assert.False(t, cfg.Mongo.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "  padded-key  ")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("MIN_REQUEST_INTERVAL", "5s")
	t.Setenv("PRESETS_DB_PATH", "/data/presets.json")
	t.Setenv("PRESETS_MONGO_ENABLED", "true")
	t.Setenv("SESSION_MAX_SESSIONS", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "padded-key", cfg.Gemini.APIKey)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.MinRequestInterval)
	assert.Equal(t, "/data/presets.json", cfg.PresetsDBPath)
	assert.True(t, cfg.Mongo.Enabled)
	assert.Equal(t, 42, cfg.Store.MaxSessions)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\nAPP_ENV=dev\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Gemini.APIKey)
	assert.Equal(t, EnvDev, cfg.Env)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := filepath.Join(dir, "config.yml")
	yml := "env: prod\nhttp_addr: \":9000\"\nstore:\n  max_images: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.Store.MaxImages)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}
