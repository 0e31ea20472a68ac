// Package config defines the runtime configuration of the shot pipeline.
//
// Values are layered: defaults from New, then an optional YAML file named by
// SHOTS_CONFIG, then a .env file, then SHOTS_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"shotclassifier/internal/models"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataPath is the dataset location (.csv or .parquet).
	DataPath string `koanf:"data_path"`

	// Delimiter is the CSV field separator.
	Delimiter string `koanf:"delimiter"`

	// GridsPath optionally points to a YAML file of hyperparameter grids.
	GridsPath string `koanf:"grids_path"`

	// Models lists the candidate classifiers evaluated per run.
	Models []string `koanf:"models"`

	Folds           int     `koanf:"folds"`
	Seed            int64   `koanf:"seed"`
	ValidationSize  float64 `koanf:"validation_size"`
	ForestTrees     int     `koanf:"forest_trees"`
	Neighbors       int     `koanf:"neighbors"`
	Workers         int     `koanf:"workers"`
	UnknownCategory string  `koanf:"unknown_category"`

	// TrainOnSeasonRange applies the season selection to training as well as exploration.
	TrainOnSeasonRange bool `koanf:"train_on_season_range"`

	// MetricsAddr enables the Prometheus endpoint when non-empty, e.g. ":9102".
	MetricsAddr string `koanf:"metrics_addr"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		DataPath:        "data/data.csv",
		Delimiter:       ",",
		Models:          []string{"logistic", "knn", "tree", "forest"},
		Folds:           10,
		Seed:            42,
		ValidationSize:  0.2,
		ForestTrees:     20,
		Neighbors:       5,
		Workers:         runtime.NumCPU(),
		UnknownCategory: "bucket",

		MetricsNamespace: "shots",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("%w: data_path must not be empty", ErrInvalidConfig)
	}
	if len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("%w: delimiter must be a single character, got %q", ErrInvalidConfig, c.Delimiter)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("%w: at least one model is required", ErrInvalidConfig)
	}
	for _, m := range c.Models {
		if !slices.Contains(models.Algorithms, m) {
			return fmt.Errorf("%w: unknown model %q, choose from %s", ErrInvalidConfig, m, strings.Join(models.Algorithms, ", "))
		}
	}
	if c.Folds < 2 {
		return fmt.Errorf("%w: folds must be at least 2, got %d", ErrInvalidConfig, c.Folds)
	}
	if c.ValidationSize <= 0 || c.ValidationSize >= 1 {
		return fmt.Errorf("%w: validation_size must be between 0 and 1, got %v", ErrInvalidConfig, c.ValidationSize)
	}
	if c.ForestTrees <= 0 {
		return fmt.Errorf("%w: forest_trees must be positive, got %d", ErrInvalidConfig, c.ForestTrees)
	}
	if c.Neighbors <= 0 {
		return fmt.Errorf("%w: neighbors must be positive, got %d", ErrInvalidConfig, c.Neighbors)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	switch c.UnknownCategory {
	case "bucket", "error":
	default:
		return fmt.Errorf("%w: unknown_category must be bucket or error, got %q", ErrInvalidConfig, c.UnknownCategory)
	}
	return nil
}

// DelimiterRune returns the delimiter as a rune. Call after Validate.
func (c *Config) DelimiterRune() rune {
	return []rune(c.Delimiter)[0]
}
