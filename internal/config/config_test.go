package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "audit.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Catalog.MaxQuestions)
	assert.InDelta(t, 0.7, cfg.Simulation.FullyAnswerableThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.Simulation.PartiallyAnswerableThreshold, 1e-9)
	assert.True(t, cfg.Simulation.UseFuzzyMatching)
	assert.Equal(t, 10, cfg.Fixes.MaxFixes)
	assert.Equal(t, "openrouter", cfg.Provider.Primary)
	assert.Equal(t, "openai", cfg.Provider.Fallback)
	assert.Equal(t, 60, cfg.Provider.RequestsPerMinute)
	assert.True(t, cfg.Observation.Enabled)
	assert.InDelta(t, 30.0, cfg.Impact.MaxTotalImpact, 1e-9)
	assert.InDelta(t, 0.35, cfg.Report.DivergenceHigh, 1e-9)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOURCELENS_STORE_DRIVER", "postgres")
	t.Setenv("SOURCELENS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"log:\n  level: debug\nsimulation:\n  chunks_per_question: 8\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Simulation.ChunksPerQuestion)
	// Untouched keys keep their defaults.
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [oops"), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
}
