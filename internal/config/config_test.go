package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"district-realign/internal/distance"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Areas.PopulationSize)
	assert.Equal(t, 0.9, cfg.Areas.CrossoverProb)
	assert.Equal(t, 0.15, cfg.Areas.MutationProb)
	assert.Equal(t, 15000, cfg.Areas.Generations)
	assert.Equal(t, 10000, cfg.Divisions.Generations)
	assert.Equal(t, 10, cfg.Areas.HallOfFameSize)
	assert.Equal(t, 2, cfg.Areas.TournamentSize)
	assert.Equal(t, distance.MetricEuclidean, cfg.Distance.Metric)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
areas:
  generations: 200
  seed: 7
divisions:
  population: 30
distance:
  metric: haversine
cache:
  backend: sqlite
  dir: /tmp/redistrict
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Areas.Generations)
	assert.Equal(t, uint64(7), cfg.Areas.Seed)
	// Untouched fields keep their defaults
	assert.Equal(t, 100, cfg.Areas.PopulationSize)
	assert.Equal(t, 30, cfg.Divisions.PopulationSize)
	assert.Equal(t, distance.MetricHaversine, cfg.Distance.Metric)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/redistrict", cfg.Cache.Dir)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Areas.PopulationSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDISTRICT_GENERATIONS", "50")
	t.Setenv("REDISTRICT_SEED", "99")
	t.Setenv("REDISTRICT_CACHE_BACKEND", "none")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Areas.Generations)
	assert.Equal(t, 50, cfg.Divisions.Generations)
	assert.Equal(t, uint64(99), cfg.Divisions.Seed)
	assert.Equal(t, BackendNone, cfg.Cache.Backend)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("REDISTRICT_POPULATION", "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		"metric":     "distance:\n  metric: manhattan\n",
		"backend":    "cache:\n  backend: redis\n",
		"crossover":  "areas:\n  crossover: 1.5\n",
		"population": "divisions:\n  population: 1\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("areas: [\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
