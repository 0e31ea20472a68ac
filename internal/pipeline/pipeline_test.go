package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotclassifier/internal/config"
	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/metrics"
	"shotclassifier/internal/models"
	"shotclassifier/internal/preprocessing"
	"shotclassifier/internal/shots"
	"shotclassifier/internal/shots/shotstest"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Models = models.Algorithms
	opts.Folds = 5
	opts.Workers = 2
	opts.ForestTrees = 5
	opts.Logger = logger.Nop()
	opts.Grids = experiment.Grids{
		models.AlgorithmTree: {
			"max_depth":      {2, 3},
			"max_leaf_nodes": {4, 0},
		},
		models.AlgorithmForest: {
			"max_depth":    {2},
			"max_features": {2, 4},
		},
	}
	return opts
}

func TestRun(t *testing.T) {
	raw := shotstest.Generate(shotstest.DefaultOptions())
	opts := testOptions()

	result, err := Run(context.Background(), raw, opts)
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)

	t.Run("dataset and splits", func(t *testing.T) {
		assert.Equal(t, 200, result.Dataset.Rows)
		assert.Equal(t, raw.Width()-len(shots.DroppedColumns)+len(shots.DerivedColumns), result.Dataset.Columns)
		assert.Equal(t, []string{shotstest.Season(0), shotstest.Season(1), shotstest.Season(2), shotstest.Season(3)}, result.Seasons)
		assert.Equal(t, 28, result.UnlabeledRows)
		assert.Equal(t, 172, result.LabeledRows)
		assert.Equal(t, 35, result.ValidationRows)
		assert.Equal(t, 137, result.TrainRows)
	})

	t.Run("views cover every row", func(t *testing.T) {
		v := result.Views
		assert.Equal(t, 200, v.Shape.Rows)
		total := 0
		for _, c := range v.Actions {
			total += c.Count
		}
		assert.Equal(t, 200, total)
		assert.Len(t, v.Locations, 200)
		assert.Len(t, v.Periods, 4)
		assert.NotEmpty(t, v.ZoneAreas)
	})

	t.Run("one section per model", func(t *testing.T) {
		require.Len(t, result.Sections, len(models.Algorithms))
		for i, s := range result.Sections {
			assert.Equal(t, models.Algorithms[i], s.Algorithm)
			require.False(t, s.Failed(), "%s: %v", s.Algorithm, s.Err)
			assert.Len(t, s.CV.Scores, 5)
			assert.Positive(t, s.CV.Mean)
			assert.Positive(t, s.Validation.LogLoss)
			assert.Equal(t, 35, s.Validation.NumSamples)
			require.Len(t, s.HeldOut, 28)
			for _, p := range s.HeldOut {
				assert.True(t, p >= 0 && p <= 1 && !math.IsNaN(p))
			}
		}
	})

	t.Run("encodings follow the model family", func(t *testing.T) {
		tree, ok := result.Section(models.AlgorithmTree)
		require.True(t, ok)
		assert.Equal(t, preprocessing.Ordinal, tree.Encoding)
		assert.Len(t, tree.FeatureNames, 20)
		assert.NotEmpty(t, tree.Tree)
		assert.LessOrEqual(t, tree.TreeDepth, tree.Params["max_depth"])
		assert.Positive(t, tree.TreeLeaves)
		if limit := tree.Params["max_leaf_nodes"]; limit > 0 {
			assert.LessOrEqual(t, tree.TreeLeaves, limit)
		}

		logistic, ok := result.Section(models.AlgorithmLogistic)
		require.True(t, ok)
		assert.Equal(t, preprocessing.OneHot, logistic.Encoding)
		assert.Greater(t, len(logistic.FeatureNames), 20)
		assert.Empty(t, logistic.Tree)
		assert.Nil(t, logistic.Grid)
	})

	t.Run("grid winners come from the grid", func(t *testing.T) {
		for alg, grid := range opts.Grids {
			s, ok := result.Section(alg)
			require.True(t, ok)
			require.NotNil(t, s.Grid)
			assert.Len(t, s.Grid.Candidates, grid.Size())
			for name, values := range grid {
				assert.Contains(t, values, s.Params[name])
			}
			assert.Equal(t, s.Grid.BestCV, s.CV)
		}
	})

	t.Run("repeatable", func(t *testing.T) {
		again, err := Run(context.Background(), raw, opts)
		require.NoError(t, err)
		assert.NotEqual(t, result.RunID, again.RunID)
		for i, s := range result.Sections {
			assert.Equal(t, s.Params, again.Sections[i].Params)
			assert.Equal(t, s.CV.Scores, again.Sections[i].CV.Scores)
			assert.Equal(t, s.HeldOut, again.Sections[i].HeldOut)
		}
	})

	t.Run("report rows", func(t *testing.T) {
		rows := result.Results()
		require.Len(t, rows, len(result.Sections))
		assert.Equal(t, result.RunID, rows[0].RunID)
		assert.Equal(t, "all seasons", rows[0].Seasons)
		assert.Equal(t, 4, rows[2].GridCandidates)

		best, ok := result.Best()
		require.True(t, ok)
		for _, s := range result.Sections {
			assert.GreaterOrEqual(t, s.CV.Mean, best.CV.Mean)
		}
	})
}

func TestRunSeasonRange(t *testing.T) {
	raw := shotstest.Generate(shotstest.DefaultOptions())
	opts := testOptions()
	opts.Models = []string{models.AlgorithmBayes}
	opts.Seasons = shots.SeasonRange{Start: shotstest.Season(1), End: shotstest.Season(2)}

	explored, err := Run(context.Background(), raw, opts)
	require.NoError(t, err)
	assert.Less(t, explored.Views.Shape.Rows, 200)
	assert.Equal(t, 172, explored.LabeledRows)

	opts.TrainOnSeasonRange = true
	trained, err := Run(context.Background(), raw, opts)
	require.NoError(t, err)
	assert.Equal(t, explored.Views.Shape.Rows, trained.LabeledRows+trained.UnlabeledRows)
	assert.Less(t, trained.LabeledRows, 172)

	t.Run("unknown season", func(t *testing.T) {
		opts.Seasons = shots.SeasonRange{Start: "1996-97", End: shotstest.Season(1)}
		_, err := Run(context.Background(), raw, opts)
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})

	t.Run("reversed range", func(t *testing.T) {
		opts.Seasons = shots.SeasonRange{Start: shotstest.Season(2), End: shotstest.Season(1)}
		_, err := Run(context.Background(), raw, opts)
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})
}

func TestRunIsolatesModelFailures(t *testing.T) {
	raw := shotstest.Generate(shotstest.DefaultOptions())
	opts := testOptions()
	opts.Models = []string{models.AlgorithmTree, models.AlgorithmKNN, models.AlgorithmBayes}
	opts.Grids = experiment.Grids{models.AlgorithmTree: {"max_features": {64}}}
	opts.Neighbors = 1000

	result, err := Run(context.Background(), raw, opts)
	require.NoError(t, err)
	require.Len(t, result.Sections, 3)

	tree, _ := result.Section(models.AlgorithmTree)
	assert.ErrorIs(t, tree.Err, perrors.ErrModelFit)
	assert.Nil(t, tree.CV)
	assert.Nil(t, tree.HeldOut)

	knn, _ := result.Section(models.AlgorithmKNN)
	assert.ErrorIs(t, knn.Err, perrors.ErrModelFit)

	bayes, _ := result.Section(models.AlgorithmBayes)
	require.NoError(t, bayes.Err)
	assert.Len(t, bayes.HeldOut, 28)

	best, ok := result.Best()
	require.True(t, ok)
	assert.Equal(t, models.AlgorithmBayes, best.Algorithm)

	rows := result.Results()
	assert.NotEmpty(t, rows[0].Error)
	assert.Empty(t, rows[2].Error)
}

// withUnseenOpponent renames the opponent of every unlabeled row to one that
// never appears among the labeled rows.
func withUnseenOpponent(t *testing.T, raw *data.Table) *data.Table {
	t.Helper()
	flag, ok := raw.Column(shots.ColShotMadeFlag)
	require.True(t, ok)
	opponent, ok := raw.Column(shots.ColOpponent)
	require.True(t, ok)

	values := append([]string(nil), opponent.Strings...)
	for i := range values {
		if flag.IsMissing(i) {
			values[i] = "SEA"
		}
	}
	out, err := raw.WithColumn(data.NewCategoricalColumn(shots.ColOpponent, values))
	require.NoError(t, err)
	return out
}

func TestRunUnknownCategories(t *testing.T) {
	raw := withUnseenOpponent(t, shotstest.Generate(shotstest.DefaultOptions()))
	opts := testOptions()
	opts.Models = []string{models.AlgorithmLogistic}

	result, err := Run(context.Background(), raw, opts)
	require.NoError(t, err)
	s := result.Sections[0]
	require.NoError(t, s.Err)
	assert.Equal(t, 28, s.UnknownCategories[shots.ColOpponent])
	assert.Len(t, s.HeldOut, 28)

	opts.Unknown = preprocessing.UnknownError
	_, err = Run(context.Background(), raw, opts)
	assert.ErrorIs(t, err, perrors.ErrConfiguration)
}

func TestRunAborts(t *testing.T) {
	raw := shotstest.Generate(shotstest.DefaultOptions())

	t.Run("missing column is an input error", func(t *testing.T) {
		_, err := Run(context.Background(), raw.Drop(shots.ColGameDate), testOptions())
		assert.ErrorIs(t, err, perrors.ErrInput)
	})

	t.Run("no labeled rows", func(t *testing.T) {
		opts := shotstest.DefaultOptions()
		opts.UnlabeledEvery = 1
		_, err := Run(context.Background(), shotstest.Generate(opts), testOptions())
		assert.ErrorIs(t, err, shots.ErrNoLabeledRows)
	})

	t.Run("too few labeled rows for the folds", func(t *testing.T) {
		opts := testOptions()
		opts.Folds = 500
		_, err := Run(context.Background(), raw, opts)
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})

	t.Run("invalid options", func(t *testing.T) {
		for name, mutate := range map[string]func(*Options){
			"no models":       func(o *Options) { o.Models = nil },
			"unknown model":   func(o *Options) { o.Models = []string{"svm"} },
			"one fold":        func(o *Options) { o.Folds = 1 },
			"validation size": func(o *Options) { o.ValidationSize = 1 },
		} {
			opts := testOptions()
			mutate(&opts)
			_, err := Run(context.Background(), raw, opts)
			assert.ErrorIs(t, err, perrors.ErrConfiguration, name)
		}
	})

	t.Run("bad grid", func(t *testing.T) {
		opts := testOptions()
		opts.Grids = experiment.Grids{models.AlgorithmTree: evaluation.ParamGrid{"gamma": {1}}}
		_, err := Run(context.Background(), raw, opts)
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, raw, testOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunRecordsMetrics(t *testing.T) {
	m := metrics.NewManager(metrics.WithNamespace("test"))
	opts := testOptions()
	opts.Models = []string{models.AlgorithmTree, models.AlgorithmBayes}
	opts.Metrics = m

	_, err := Run(context.Background(), shotstest.Generate(shotstest.DefaultOptions()), opts)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "test_pipeline_model_sections_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "test_pipeline_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.New()
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Models, opts.Models)
	assert.Equal(t, preprocessing.UnknownBucket, opts.Unknown)
	assert.Equal(t, experiment.DefaultGrids(), opts.Grids)

	cfg.UnknownCategory = "ignore"
	_, err = OptionsFromConfig(cfg)
	assert.ErrorIs(t, err, perrors.ErrConfiguration)
}
