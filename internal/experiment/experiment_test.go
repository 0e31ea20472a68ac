package experiment

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grids.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultGrids(t *testing.T) {
	grids := DefaultGrids()

	tree, ok := grids.For(models.AlgorithmTree)
	require.True(t, ok)
	assert.Equal(t, 80, tree.Size())

	forest, ok := grids.For(models.AlgorithmForest)
	require.True(t, ok)
	assert.Equal(t, 12, forest.Size())

	_, ok = grids.For(models.AlgorithmLogistic)
	assert.False(t, ok)
}

func TestLoadGrids(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		grids, err := LoadGrids("")
		require.NoError(t, err)
		assert.Equal(t, DefaultGrids(), grids)
	})

	t.Run("file overrides one algorithm", func(t *testing.T) {
		path := writeFile(t, `
experiment:
  grids:
    tree:
      max_depth: [1, 2]
      max_features: [None, 3, null]
    knn:
      n_neighbors: [3, 5, 7]
`)
		grids, err := LoadGrids(path)
		require.NoError(t, err)

		assert.Equal(t, evaluation.ParamGrid{
			"max_depth":    {1, 2},
			"max_features": {0, 3, 0},
		}, grids[models.AlgorithmTree])
		assert.Equal(t, evaluation.ParamGrid{"n_neighbors": {3, 5, 7}}, grids[models.AlgorithmKNN])
		assert.Equal(t, DefaultGrids()[models.AlgorithmForest], grids[models.AlgorithmForest])
	})

	bad := map[string]string{
		"missing file":      "",
		"not a list":        "experiment:\n  grids:\n    tree:\n      max_depth: 3\n",
		"not an integer":    "experiment:\n  grids:\n    tree:\n      max_depth: [deep]\n",
		"unknown model":     "experiment:\n  grids:\n    svm:\n      max_depth: [1]\n",
		"unknown parameter": "experiment:\n  grids:\n    tree:\n      gamma: [1]\n",
		"negative value":    "experiment:\n  grids:\n    tree:\n      max_depth: [-1]\n",
		"empty values":      "experiment:\n  grids:\n    tree:\n      max_depth: []\n",
	}
	for name, content := range bad {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.yaml")
			if content != "" {
				path = writeFile(t, content)
			}
			_, err := LoadGrids(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, perrors.ErrConfiguration), "got %v", err)
		})
	}
}

func TestExportResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	results := []Result{
		{
			RunID: "run-1", Seasons: "all", Algorithm: "tree", Parameters: "{max_depth=3}",
			Encoding: "ordinal", Features: 20, CVMean: 0.612345678, CVStd: 0.01,
			ValidationLoss: 0.6, Accuracy: 0.66666, GridCandidates: 80, GridFailed: 2,
			HeldOutRows: 12, TrainingTimeMs: 15,
		},
		{RunID: "run-1", Seasons: "all", Algorithm: "logistic", Error: "did not converge"},
	}
	require.NoError(t, ExportResults(results, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, resultHeader, records[0])
	assert.Equal(t, []string{
		"run-1", "all", "tree", "{max_depth=3}", "ordinal", "20",
		"0.61235", "0.01000", "0.60000", "0.6667",
		"80", "2", "12", "15", "",
	}, records[1])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "did not converge", records[2][14])
}

func TestRound(t *testing.T) {
	assert.Equal(t, "0.10536", Round(0.105360515, 5))
	assert.Equal(t, "2.00", Round(2, 2))
}

func TestShippedGridsMatchDefaults(t *testing.T) {
	grids, err := LoadGrids(filepath.Join("..", "..", "config", "grids.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultGrids(), grids)
}
