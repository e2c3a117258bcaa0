package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.False(t, cfg.Qdrant.Enabled)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "vigie_affairs", cfg.Qdrant.Collection)
	assert.Equal(t, 1500, cfg.Moderation.CallIntervalMS)
	assert.Equal(t, 30, cfg.Moderation.RateLimitPauseS)
	assert.Equal(t, 60, cfg.Moderation.EnrichMinConfidence)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vigie init")
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultConfigDir), 0755))
	content := []byte("llm:\n  model: gpt-4o\nmoderation:\n  call_interval_ms: 500\n")
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), content, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 500, cfg.Moderation.CallIntervalMS)
	// Unset keys keep their defaults.
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Moderation.RateLimitPauseS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("SEARCH_API_KEY", "search-key")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "env-key", cfg.Embedder.APIKey)
	assert.Equal(t, "search-key", cfg.Search.APIKey)
}

func TestLoad_FileKeyBeatsEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultConfigDir), 0755))
	content := []byte("llm:\n  api_key: file-key\n")
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), content, 0644))

	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "env-key", cfg.Embedder.APIKey)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()

	assert.False(t, Exists(dir))
	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	// The written defaults parse back to the programmatic defaults.
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().LLM.Model, cfg.LLM.Model)
	assert.Equal(t, Default().Moderation, cfg.Moderation)

	// A second init refuses to clobber the file.
	err = WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/base", DefaultConfigDir, DefaultDatabaseFile), cfg.DatabasePath("/base"))

	cfg.SQLite.Path = "/elsewhere/vigie.db"
	assert.Equal(t, "/elsewhere/vigie.db", cfg.DatabasePath("/base"))
}
