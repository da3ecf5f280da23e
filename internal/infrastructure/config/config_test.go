package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "facsim.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Database.Pool.MaxLifetime)
	assert.Equal(t, 100, cfg.Simulation.Duration)
	assert.Equal(t, 4, cfg.Simulation.Parallelism)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Address())
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "simulation:\n  duration: 10\n  step_rate: 2.5\n")
	t.Setenv("FS_SIMULATION_DURATION", "42")

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Simulation.Duration)
	assert.Equal(t, 2.5, cfg.Simulation.StepRate)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")

	_, err := config.LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Level")
}

func TestLoadConfigOrDefault_FallsBackOnError(t *testing.T) {
	path := writeConfig(t, "database:\n  type: oracle\n")

	cfg := config.LoadConfigOrDefault(path)

	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestUserConfigHandler_RemembersLastRun(t *testing.T) {
	handler, err := config.NewUserConfigHandlerAt(t.TempDir())
	require.NoError(t, err)

	empty, err := handler.Load()
	require.NoError(t, err)
	assert.Empty(t, empty.LastRunID)

	require.NoError(t, handler.SetLastRun("run-1", "scenarios/a.yaml"))

	loaded, err := handler.Load()
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.LastRunID)
	assert.Equal(t, "scenarios/a.yaml", loaded.LastScenario)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	sqliteFile := config.DatabaseConfig{Type: "sqlite", Path: "facsim.db"}
	memory := config.DatabaseConfig{Type: "sqlite"}
	pg := config.DatabaseConfig{Type: "postgres", Host: "db", Port: 5432, User: "fs", Password: "pw", Name: "facsim", SSLMode: "disable"}

	assert.Equal(t, "facsim.db", sqliteFile.DSN())
	assert.True(t, sqliteFile.IsFileBacked())
	assert.Equal(t, ":memory:", memory.DSN())
	assert.False(t, memory.IsFileBacked())
	assert.Equal(t, "host=db port=5432 user=fs password=pw dbname=facsim sslmode=disable", pg.DSN())
	pg.URL = "postgres://fs:pw@db/facsim"
	assert.Equal(t, "postgres://fs:pw@db/facsim", pg.DSN())
}

func TestValidator_NuclideRule(t *testing.T) {
	v := config.NewValidator()

	assert.NoError(t, v.Validate(&config.SourcePrefFile{Nuclide: 92235, Sources: []string{"natu"}}))
	assert.Error(t, v.Validate(&config.SourcePrefFile{Nuclide: 235, Sources: []string{"natu"}}))
	assert.Error(t, v.Validate(&config.SourcePrefFile{Nuclide: 200000, Sources: []string{"natu"}}))
}
