// Package experiment holds the hyperparameter grids searched for the tree
// models and the per-model result rows written to report files.
package experiment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/models"
)

// ParamValues decodes a YAML sequence of integers where null or "None"
// stands for no limit (0).
type ParamValues []int

func (p *ParamValues) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list of values", value.Line)
	}
	out := make(ParamValues, 0, len(value.Content))
	for _, item := range value.Content {
		if item.Tag == "!!null" || strings.EqualFold(item.Value, "none") {
			out = append(out, 0)
			continue
		}
		var v int
		if err := item.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %q is not an integer or None", item.Line, item.Value)
		}
		out = append(out, v)
	}
	*p = out
	return nil
}

// GridConfig is the layout of a grids file:
//
//	experiment:
//	  grids:
//	    tree:
//	      max_depth: [2, 3, 4, 5]
//	      max_features: [2, 4, 8, 16, None]
type GridConfig struct {
	Experiment struct {
		Grids map[string]map[string]ParamValues `yaml:"grids"`
	} `yaml:"experiment"`
}

// Grids maps an algorithm name to the grid searched for it. Algorithms
// without a grid are scored by plain cross-validation.
type Grids map[string]evaluation.ParamGrid

// DefaultGrids returns the built-in search spaces for the single tree and
// the forest.
func DefaultGrids() Grids {
	return Grids{
		models.AlgorithmTree: {
			"max_depth":      {2, 3, 4, 5},
			"max_features":   {2, 4, 8, 16, 0},
			"max_leaf_nodes": {2, 3, 4, 0},
		},
		models.AlgorithmForest: {
			"max_depth":    {2, 4, 8},
			"max_features": {2, 4, 8, 16},
		},
	}
}

// For returns the grid for algorithm, if any.
func (g Grids) For(algorithm string) (evaluation.ParamGrid, bool) {
	grid, ok := g[algorithm]
	if !ok || len(grid) == 0 {
		return nil, false
	}
	return grid, true
}

// LoadGrids reads a grids file. An empty path yields DefaultGrids; grids in
// the file replace the default for their algorithm and leave the others.
func LoadGrids(path string) (Grids, error) {
	grids := DefaultGrids()
	if path == "" {
		return grids, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.NewConfigError("LoadGrids", fmt.Sprintf("reading %s: %v", path, err))
	}

	var cfg GridConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, perrors.NewConfigError("LoadGrids", fmt.Sprintf("parsing %s: %v", path, err))
	}

	for algorithm, params := range cfg.Experiment.Grids {
		if _, err := models.CreateModel(models.DefaultConfig(algorithm)); err != nil {
			return nil, perrors.NewConfigError("LoadGrids", fmt.Sprintf("grid for unknown model %q", algorithm))
		}
		grid := make(evaluation.ParamGrid, len(params))
		for name, values := range params {
			if len(values) == 0 {
				return nil, perrors.NewConfigError("LoadGrids", fmt.Sprintf("%s.%s has no values", algorithm, name))
			}
			for _, v := range values {
				if _, err := models.ApplyParams(models.DefaultConfig(algorithm), models.Params{name: v}); err != nil {
					return nil, perrors.NewConfigError("LoadGrids", fmt.Sprintf("%s: %v", algorithm, err))
				}
			}
			grid[name] = []int(values)
		}
		grids[algorithm] = grid
	}
	return grids, nil
}
