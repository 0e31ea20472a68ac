package pipeline

import (
	"fmt"
	"runtime"
	"slices"

	"shotclassifier/internal/config"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/metrics"
	"shotclassifier/internal/models"
	"shotclassifier/internal/preprocessing"
	"shotclassifier/internal/shots"
)

// Options select what a run computes. The zero Seasons range explores every
// season.
type Options struct {
	Seasons shots.SeasonRange
	// TrainOnSeasonRange restricts training and scoring to Seasons too. By
	// default the range only narrows the exploration views.
	TrainOnSeasonRange bool

	Models         []string
	Folds          int
	Seed           int64
	ValidationSize float64
	Unknown        preprocessing.UnknownPolicy
	Workers        int
	ForestTrees    int
	Neighbors      int
	// Grids holds the search space per algorithm; algorithms without one get
	// plain cross-validation.
	Grids experiment.Grids

	Logger  logger.Logger
	Metrics *metrics.Manager
}

// DefaultOptions evaluates the four original models with 10 folds.
func DefaultOptions() Options {
	return Options{
		Models:         []string{models.AlgorithmLogistic, models.AlgorithmKNN, models.AlgorithmTree, models.AlgorithmForest},
		Folds:          10,
		Seed:           42,
		ValidationSize: 0.2,
		Unknown:        preprocessing.UnknownBucket,
		Workers:        runtime.NumCPU(),
		ForestTrees:    20,
		Neighbors:      5,
		Grids:          experiment.DefaultGrids(),
	}
}

// OptionsFromConfig builds run options from process configuration, loading
// the grids file when one is configured.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := preprocessing.ParseUnknownPolicy(cfg.UnknownCategory)
	if err != nil {
		return Options{}, perrors.NewConfigError("OptionsFromConfig", err.Error())
	}
	grids, err := experiment.LoadGrids(cfg.GridsPath)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TrainOnSeasonRange: cfg.TrainOnSeasonRange,
		Models:             slices.Clone(cfg.Models),
		Folds:              cfg.Folds,
		Seed:               cfg.Seed,
		ValidationSize:     cfg.ValidationSize,
		Unknown:            policy,
		Workers:            cfg.Workers,
		ForestTrees:        cfg.ForestTrees,
		Neighbors:          cfg.Neighbors,
		Grids:              grids,
	}, nil
}

func (o Options) validate() error {
	if len(o.Models) == 0 {
		return perrors.NewConfigError("Run", "no models selected")
	}
	for _, m := range o.Models {
		if !slices.Contains(models.Algorithms, m) {
			return perrors.NewConfigError("Run", fmt.Sprintf("unknown model %q", m))
		}
	}
	if o.Folds < 2 {
		return perrors.NewConfigError("Run", fmt.Sprintf("folds must be at least 2, got %d", o.Folds))
	}
	if o.ValidationSize <= 0 || o.ValidationSize >= 1 {
		return perrors.NewConfigError("Run", fmt.Sprintf("validation size must be between 0 and 1, got %v", o.ValidationSize))
	}
	return nil
}

// modelConfig returns the base configuration of algorithm under o.
func (o Options) modelConfig(algorithm string) models.ModelConfig {
	cfg := models.DefaultConfig(algorithm)
	cfg.Seed = o.Seed
	switch algorithm {
	case models.AlgorithmForest:
		if o.ForestTrees > 0 {
			cfg.NTrees = o.ForestTrees
		}
		if o.Workers > 0 {
			cfg.Workers = o.Workers
		}
	case models.AlgorithmKNN:
		if o.Neighbors > 0 {
			cfg.K = o.Neighbors
		}
	}
	return cfg
}

func (o Options) encoding(algorithm string) preprocessing.Options {
	if models.UsesOrdinalEncoding(algorithm) {
		return preprocessing.TreeOptions(o.Unknown)
	}
	return preprocessing.LinearOptions(o.Unknown)
}
