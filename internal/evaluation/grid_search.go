package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/models"
)

// ParamGrid maps a hyperparameter name to the values to try. 0 means no limit.
type ParamGrid map[string][]int

// Keys returns the parameter names in sorted order.
func (g ParamGrid) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size is the number of combinations.
func (g ParamGrid) Size() int {
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

// Combinations enumerates the grid with keys in sorted order and the last
// key varying fastest. An empty grid has one empty combination.
func (g ParamGrid) Combinations() []models.Params {
	keys := g.Keys()
	combos := []models.Params{{}}
	for _, key := range keys {
		next := make([]models.Params, 0, len(combos)*len(g[key]))
		for _, base := range combos {
			for _, v := range g[key] {
				p := make(models.Params, len(base)+1)
				for k, bv := range base {
					p[k] = bv
				}
				p[key] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}

func (g ParamGrid) String() string {
	parts := ""
	for i, key := range g.Keys() {
		if i > 0 {
			parts += ", "
		}
		values := ""
		for j, v := range g[key] {
			if j > 0 {
				values += ","
			}
			values += models.FormatParam(v)
		}
		parts += fmt.Sprintf("%s: [%s]", key, values)
	}
	return "{" + parts + "}"
}

// Candidate is one evaluated combination. Exactly one of CV and Err is set.
type Candidate struct {
	Params models.Params
	CV     *CVResult
	Err    error
}

type GridSearchResult struct {
	Candidates []Candidate
	BestIndex  int
	BestParams models.Params
	BestCV     *CVResult
	// BestModel is refitted on every training row with BestParams.
	BestModel models.Model
}

// Failed counts the combinations that could not be evaluated.
func (r *GridSearchResult) Failed() int {
	n := 0
	for _, c := range r.Candidates {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// GridSearch scores every combination of Grid applied to Base with the same
// cross-validation folds and keeps the lowest mean log-loss. Ties go to the
// combination enumerated first; failed combinations are never selected.
type GridSearch struct {
	Base       models.ModelConfig
	Grid       ParamGrid
	CV         *CrossValidator
	MaxWorkers int
}

func NewGridSearch(base models.ModelConfig, grid ParamGrid, cv *CrossValidator) *GridSearch {
	return &GridSearch{Base: base, Grid: grid, CV: cv, MaxWorkers: cv.MaxWorkers}
}

func (gs *GridSearch) Fit(ctx context.Context, X mat.Matrix, y []int) (*GridSearchResult, error) {
	combos := gs.Grid.Combinations()
	if len(combos) == 0 {
		return nil, perrors.NewConfigError("GridSearch", "parameter grid has a key with no values")
	}
	for _, params := range combos {
		if _, err := models.ApplyParams(gs.Base, params); err != nil {
			return nil, perrors.NewConfigError("GridSearch", err.Error())
		}
	}
	folds, err := gs.CV.StratifiedFolds(y)
	if err != nil {
		return nil, perrors.NewConfigError("GridSearch", err.Error())
	}

	candidates := make([]Candidate, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, gs.MaxWorkers))
	for i, params := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = Candidate{Params: params}
			model, err := gs.build(params)
			if err != nil {
				candidates[i].Err = err
				return nil
			}
			// Combinations already run in parallel, so folds run serially.
			result, err := gs.CV.evaluate(gctx, X, y, model, folds, 1)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				candidates[i].Err = err
				return nil
			}
			candidates[i].CV = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if gs.CV.Observer != nil {
		gs.CV.Observer.AddGridCandidates(gs.Base.Algorithm, len(combos))
	}

	best := -1
	for i, c := range candidates {
		if c.Err != nil {
			continue
		}
		if best < 0 || c.CV.Mean < candidates[best].CV.Mean {
			best = i
		}
	}
	if best < 0 {
		errs := make([]error, len(candidates))
		for i, c := range candidates {
			errs[i] = fmt.Errorf("%s: %w", c.Params, c.Err)
		}
		return nil, perrors.NewModelFitError("GridSearch", fmt.Errorf("every combination failed: %w", errors.Join(errs...)))
	}

	model, err := gs.build(candidates[best].Params)
	if err != nil {
		return nil, perrors.NewModelFitError("GridSearch", err)
	}
	if err := model.Fit(X, y); err != nil {
		return nil, perrors.NewModelFitError("GridSearch", fmt.Errorf("refitting %s: %w", candidates[best].Params, err))
	}

	return &GridSearchResult{
		Candidates: candidates,
		BestIndex:  best,
		BestParams: candidates[best].Params,
		BestCV:     candidates[best].CV,
		BestModel:  model,
	}, nil
}

func (gs *GridSearch) build(params models.Params) (models.Model, error) {
	cfg, err := models.ApplyParams(gs.Base, params)
	if err != nil {
		return nil, err
	}
	return models.CreateModel(cfg)
}
