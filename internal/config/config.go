// Package config loads run configuration from a YAML file, a .env file and
// REDISTRICT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"district-realign/internal/distance"
	"district-realign/internal/search"
)

// Cache backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Config is the full run configuration
type Config struct {
	// Search parameters per stage; divisions default to fewer generations
	Areas     search.Config `yaml:"areas"`
	Divisions search.Config `yaml:"divisions"`

	Distance DistanceConfig `yaml:"distance"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DistanceConfig struct {
	Metric distance.Metric `yaml:"metric" validate:"oneof=euclidean haversine"`
}

type CacheConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file sqlite none"`
	Dir     string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	areas := search.DefaultConfig()
	divisions := search.DefaultConfig()
	divisions.Generations = 10000

	return Config{
		Areas:     areas,
		Divisions: divisions,
		Distance:  DistanceConfig{Metric: distance.MetricEuclidean},
		Cache:     CacheConfig{Backend: BackendFile},
	}
}

// Load reads path (when it exists) over the defaults, applies .env and
// environment overrides, and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("[CONFIG] %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	_ = godotenv.Load(".env")

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the field constraints of cfg
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("REDISTRICT_METRIC"); v != "" {
		cfg.Distance.Metric = distance.Metric(v)
	}
	if v := os.Getenv("REDISTRICT_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDISTRICT_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("REDISTRICT_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	ints := []struct {
		key string
		dst []*int
	}{
		{"REDISTRICT_GENERATIONS", []*int{&cfg.Areas.Generations, &cfg.Divisions.Generations}},
		{"REDISTRICT_POPULATION", []*int{&cfg.Areas.PopulationSize, &cfg.Divisions.PopulationSize}},
		{"REDISTRICT_WORKERS", []*int{&cfg.Areas.Workers, &cfg.Divisions.Workers}},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.key, err)
		}
		for _, dst := range e.dst {
			*dst = n
		}
	}

	if v := os.Getenv("REDISTRICT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid REDISTRICT_SEED: %w", err)
		}
		cfg.Areas.Seed = seed
		cfg.Divisions.Seed = seed
	}

	return nil
}
