// Package pipeline runs the whole analysis over a raw shot table: cleaning,
// exploration views, the labeled split and one evaluation section per model.
//
// Run is a pure function of its inputs. It never mutates the raw table, so
// callers may pass a table held in a data.Cache and re-run with different
// options.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/explore"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/metrics"
	"shotclassifier/internal/models"
	"shotclassifier/internal/preprocessing"
	"shotclassifier/internal/shots"
)

// Run executes the pipeline. Input and configuration errors abort the run; a
// model that fails to fit only marks its own section as failed.
func Run(ctx context.Context, raw *data.Table, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, perrors.NewInputError("Run", "", "no dataset loaded")
	}

	r := &runner{
		opts:     opts,
		metrics:  opts.Metrics,
		prepared: make(map[preprocessing.Encoding]*prepared),
	}
	r.result = &Result{RunID: uuid.NewString(), Range: opts.Seasons}
	log := opts.Logger
	if log == nil {
		log = logger.Named("pipeline")
	}
	r.log = log.With(logger.String("run_id", r.result.RunID))
	r.metrics.IncRuns()

	start := time.Now()
	r.log.Info(ctx, "pipeline run started",
		logger.Int("rows", raw.Len()),
		logger.String("seasons", opts.Seasons.String()),
		logger.Any("models", opts.Models),
	)

	if err := r.run(ctx, raw); err != nil {
		r.log.Error(ctx, "pipeline run aborted", logger.Error(err))
		return nil, err
	}

	failed := 0
	for _, s := range r.result.Sections {
		if s.Failed() {
			failed++
		}
	}
	r.log.Info(ctx, "pipeline run finished",
		logger.Int("sections", len(r.result.Sections)),
		logger.Int("failed", failed),
		logger.Any("duration", time.Since(start)),
	)
	return r.result, nil
}

type runner struct {
	opts    Options
	log     logger.Logger
	metrics *metrics.Manager
	result  *Result

	labels     []int
	train      []int
	validation []int
	labeled    *data.Table
	unlabeled  *data.Table
	prepared   map[preprocessing.Encoding]*prepared
}

// prepared is the labeled and held-out data under one encoding.
type prepared struct {
	transformer *preprocessing.ColumnTransformer
	X           *mat.Dense
	heldOut     *mat.Dense
	unknown     map[string]int
}

func (r *runner) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.metrics.ObserveStage(name, d)
	r.log.Debug(ctx, "stage done", logger.String("stage", name), logger.Any("duration", d))
	return err
}

func (r *runner) run(ctx context.Context, raw *data.Table) error {
	var cleaned, selected *data.Table

	err := r.stage(ctx, "clean", func() error {
		var err error
		if cleaned, err = shots.Clean(raw); err != nil {
			return err
		}
		if r.result.Seasons, err = shots.Seasons(cleaned); err != nil {
			return err
		}
		r.result.Dataset = explore.Summary(cleaned)
		selected, err = shots.FilterSeasons(cleaned, r.opts.Seasons)
		return err
	})
	if err != nil {
		return err
	}

	if err := r.stage(ctx, "explore", func() error { return r.explore(selected) }); err != nil {
		return err
	}

	training := cleaned
	if r.opts.TrainOnSeasonRange {
		training = selected
	}
	if err := r.stage(ctx, "split", func() error { return r.split(training) }); err != nil {
		return err
	}

	for _, algorithm := range r.opts.Models {
		if err := ctx.Err(); err != nil {
			return err
		}
		section, err := r.section(ctx, algorithm)
		if err != nil {
			return err
		}
		r.result.Sections = append(r.result.Sections, section)
	}
	return nil
}

func (r *runner) explore(t *data.Table) error {
	var err error
	v := &r.result.Views
	v.Shape = explore.Summary(t)
	if v.Actions, err = explore.ActionCounts(t); err != nil {
		return err
	}
	if v.Locations, err = explore.ShotLocations(t); err != nil {
		return err
	}
	if v.Periods, err = explore.PeriodHistograms(t); err != nil {
		return err
	}
	v.ZoneAreas, err = explore.Distinct(t, shots.ColShotZoneArea)
	return err
}

func (r *runner) split(t *data.Table) error {
	split, err := shots.SplitLabeled(t)
	if err != nil {
		return err
	}
	r.labeled, r.unlabeled, r.labels = split.Labeled, split.Unlabeled, split.Labels

	splitter := evaluation.NewTrainTestSplitter(r.opts.ValidationSize, r.opts.Seed, true)
	r.train, r.validation, err = splitter.SplitIndices(len(r.labels))
	if err != nil {
		return perrors.NewConfigError("Split", err.Error())
	}
	if _, err := r.crossValidator().StratifiedFolds(r.labels); err != nil {
		return perrors.NewConfigError("Split", err.Error())
	}

	r.result.LabeledRows = split.Labeled.Len()
	r.result.UnlabeledRows = split.Unlabeled.Len()
	r.result.TrainRows = len(r.train)
	r.result.ValidationRows = len(r.validation)
	return nil
}

func (r *runner) crossValidator() *evaluation.CrossValidator {
	cv := evaluation.NewCrossValidator(r.opts.Folds)
	cv.RandomSeed = r.opts.Seed
	if r.opts.Workers > 0 {
		cv.MaxWorkers = r.opts.Workers
	}
	cv.Observer = r.metrics
	return cv
}

// prepare fits the transformer for an encoding on every labeled row, once
// per run.
func (r *runner) prepare(options preprocessing.Options) (*prepared, error) {
	if p, ok := r.prepared[options.Encoding]; ok {
		return p, nil
	}
	numeric, categorical := preprocessing.FeatureColumns(r.labeled)
	ct := preprocessing.NewColumnTransformer(numeric, categorical, options)
	X, err := ct.FitTransform(r.labeled)
	if err != nil {
		return nil, err
	}
	heldOut, err := ct.Transform(r.unlabeled)
	if err != nil {
		return nil, err
	}
	p := &prepared{transformer: ct, X: X, heldOut: heldOut, unknown: ct.UnknownCounts(r.unlabeled)}
	r.prepared[options.Encoding] = p
	return p, nil
}

func (r *runner) section(ctx context.Context, algorithm string) (*Section, error) {
	log := r.log.Named(algorithm)
	start := time.Now()
	options := r.opts.encoding(algorithm)
	s := &Section{Algorithm: algorithm, Encoding: options.Encoding}

	p, err := r.prepare(options)
	if err != nil {
		return nil, err
	}
	s.FeatureNames = p.transformer.FeatureNames()
	s.UnknownCategories = p.unknown

	err = r.evaluate(ctx, s, p)
	s.Duration = time.Since(start)
	r.metrics.ObserveStage("model", s.Duration)
	if err != nil {
		if fatal(err) || ctx.Err() != nil {
			return nil, err
		}
		var pe *perrors.PipelineError
		if !errors.As(err, &pe) {
			err = perrors.NewModelFitError(algorithm, err)
		}
		s.Err = err
		s.CV, s.Validation, s.HeldOut = nil, nil, nil
		s.Tree, s.TreeDepth, s.TreeLeaves = "", 0, 0
		r.metrics.RecordSection(algorithm, true)
		log.Warn(ctx, "model section failed", logger.Error(err))
		return s, nil
	}

	r.metrics.RecordSection(algorithm, false)
	log.Info(ctx, "model section done",
		logger.String("params", s.Params.String()),
		logger.Float64("cv_mean", s.CV.Mean),
		logger.Float64("cv_std", s.CV.Std),
		logger.Float64("validation_loss", s.Validation.LogLoss),
		logger.Any("duration", s.Duration),
	)
	return s, nil
}

// evaluate fills the numbers of s: cross-validated loss (with grid search
// when the algorithm has a grid), validation loss from a fit on the training
// rows, and held-out probabilities from a fit on every labeled row.
func (r *runner) evaluate(ctx context.Context, s *Section, p *prepared) error {
	base := r.opts.modelConfig(s.Algorithm)
	cv := r.crossValidator()

	var final models.Model
	if grid, ok := r.opts.Grids.For(s.Algorithm); ok {
		gs := evaluation.NewGridSearch(base, grid, cv)
		result, err := gs.Fit(ctx, p.X, r.labels)
		if err != nil {
			return err
		}
		if base, err = models.ApplyParams(base, result.BestParams); err != nil {
			return err
		}
		s.Grid, s.Params, s.CV, final = result, result.BestParams, result.BestCV, result.BestModel
	} else {
		model, err := models.CreateModel(base)
		if err != nil {
			return err
		}
		if s.CV, err = cv.CrossValidate(ctx, p.X, r.labels, model); err != nil {
			return err
		}
		s.Params = model.GetParams()
		final = model.Clone()
		if err := final.Fit(p.X, r.labels); err != nil {
			return fmt.Errorf("fitting on all labeled rows: %w", err)
		}
	}

	validationModel, err := models.CreateModel(base)
	if err != nil {
		return err
	}
	if err := validationModel.Fit(evaluation.SelectRows(p.X, r.train), evaluation.SelectLabels(r.labels, r.train)); err != nil {
		return fmt.Errorf("fitting on the training split: %w", err)
	}
	proba, err := validationModel.PredictProba(evaluation.SelectRows(p.X, r.validation))
	if err != nil {
		return err
	}
	if s.Validation, err = evaluation.CalculateMetrics(evaluation.SelectLabels(r.labels, r.validation), proba); err != nil {
		return err
	}

	if p.heldOut != nil {
		if s.HeldOut, err = final.PredictProba(p.heldOut); err != nil {
			return err
		}
	}

	if tree, ok := final.(*models.DecisionTree); ok {
		s.Tree = tree.Describe(s.FeatureNames)
		s.TreeDepth, s.TreeLeaves = tree.Depth(), tree.Leaves()
	}
	return nil
}

// fatal reports whether err must abort the run rather than a single section.
func fatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pe *perrors.PipelineError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == perrors.KindInput || pe.Kind == perrors.KindConfiguration
}
