package models

import (
	"fmt"
)

// Algorithm names accepted by CreateModel.
const (
	AlgorithmLogistic = "logistic"
	AlgorithmKNN      = "knn"
	AlgorithmTree     = "tree"
	AlgorithmForest   = "forest"
	AlgorithmBayes    = "bayes"
)

// Algorithms lists every supported algorithm in report order.
var Algorithms = []string{AlgorithmLogistic, AlgorithmKNN, AlgorithmTree, AlgorithmForest, AlgorithmBayes}

type ModelConfig struct {
	Algorithm    string
	K            int
	Distance     string
	MaxDepth     int
	MaxFeatures  int
	MaxLeafNodes int
	NTrees       int
	VarSmoothing float64
	C            float64
	MaxIter      int
	Seed         int64
	Workers      int
}

func CreateModel(config ModelConfig) (Model, error) {
	switch config.Algorithm {
	case AlgorithmLogistic:
		return NewLogisticRegression(config.C, config.MaxIter), nil

	case AlgorithmKNN:
		if config.K <= 0 {
			config.K = 5
		}
		if config.Distance == "" {
			config.Distance = "euclidean"
		}
		return NewKNN(config.K, config.Distance), nil

	case AlgorithmTree:
		return NewDecisionTree(config.MaxDepth, config.MaxFeatures, config.MaxLeafNodes, config.Seed), nil

	case AlgorithmForest:
		if config.NTrees <= 0 {
			config.NTrees = 20
		}
		rf := NewRandomForest(config.NTrees, config.MaxDepth, config.MaxFeatures, config.Seed)
		if config.Workers > 0 {
			rf.MaxWorkers = config.Workers
		}
		return rf, nil

	case AlgorithmBayes:
		if config.VarSmoothing <= 0 {
			config.VarSmoothing = 1e-9
		}
		return NewNaiveBayes(config.VarSmoothing), nil

	default:
		return nil, fmt.Errorf("unknown algorithm: %s", config.Algorithm)
	}
}

func DefaultConfig(algorithm string) ModelConfig {
	config := ModelConfig{Algorithm: algorithm}

	switch algorithm {
	case AlgorithmLogistic:
		config.C = 1
		config.MaxIter = 100
	case AlgorithmKNN:
		config.K = 5
		config.Distance = "euclidean"
	case AlgorithmForest:
		config.NTrees = 20
		config.Workers = 4
	case AlgorithmBayes:
		config.VarSmoothing = 1e-9
	}

	return config
}

// ApplyParams returns config with the named hyperparameters overridden.
func ApplyParams(config ModelConfig, params Params) (ModelConfig, error) {
	for _, name := range params.Keys() {
		v := params[name]
		if v < 0 {
			return config, fmt.Errorf("parameter %s must not be negative, got %d", name, v)
		}
		switch name {
		case "max_depth":
			config.MaxDepth = v
		case "max_features":
			config.MaxFeatures = v
		case "max_leaf_nodes":
			config.MaxLeafNodes = v
		case "n_estimators":
			config.NTrees = v
		case "n_neighbors":
			config.K = v
		case "max_iter":
			config.MaxIter = v
		default:
			return config, fmt.Errorf("unknown parameter %q for %s", name, config.Algorithm)
		}
	}
	return config, nil
}

// UsesOrdinalEncoding reports whether the algorithm is tree based and takes
// unscaled numeric columns with ordinal category codes.
func UsesOrdinalEncoding(algorithm string) bool {
	return algorithm == AlgorithmTree || algorithm == AlgorithmForest
}

// DisplayName returns the report name for an algorithm.
func DisplayName(algorithm string) string {
	switch algorithm {
	case AlgorithmLogistic:
		return "Logistic Regression"
	case AlgorithmKNN:
		return "k-Nearest Neighbours"
	case AlgorithmTree:
		return "Decision Tree"
	case AlgorithmForest:
		return "Random Forest"
	case AlgorithmBayes:
		return "Gaussian Naive Bayes"
	default:
		return algorithm
	}
}
