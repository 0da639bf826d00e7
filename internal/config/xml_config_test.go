package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LogView.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, 200, cfg.Logs.PageSize)
	assert.Equal(t, 1, cfg.Logs.SummaryTopEntryKeys)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "logs.duckdb"), cfg.GetDatabasePath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_RoundTripAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LogView.config")

	cfg := DefaultConfig()
	cfg.Logs.PageSize = 50
	cfg.Logs.SourcesFile = "sources.yaml"
	require.NoError(t, cfg.Save(path))

	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BACKEND", "memory")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.Logs.PageSize)
	assert.Equal(t, 9000, loaded.Server.Port)
	assert.Equal(t, "debug", loaded.Advanced.LogLevel)
	assert.Equal(t, "memory", loaded.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "sources.yaml"), loaded.Logs.SourcesFile)
	assert.Equal(t, "0.0.0.0:9000", loaded.GetServerAddr())
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LogView.config")
	require.NoError(t, os.WriteFile(path, []byte(`<LogView><Logs><PageSize>10</PageSize></Logs></LogView>`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Logs.PageSize)
	assert.Equal(t, 8, cfg.Logs.MaxConcurrentHighlights)
	assert.Equal(t, 10000, cfg.Logs.MaxSummaryBuckets)
	assert.Equal(t, "duckdb", cfg.Storage.Backend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LogView.config")
	require.NoError(t, os.WriteFile(path, []byte("<LogView><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(t.TempDir(), "data")

	require.NoError(t, cfg.EnsureDirectories())
	_, err := os.Stat(cfg.GetUploadDir())
	assert.NoError(t, err)
	assert.DirExists(t, cfg.GetImportDir())
	assert.Equal(t, cfg.Storage.DataDirectory, filepath.Dir(cfg.GetImportDir()))
}
