package evaluation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"shotclassifier/internal/models"
)

// Observer is told how much evaluation work was done. *metrics.Manager
// satisfies it.
type Observer interface {
	AddFolds(model string, n int)
	AddGridCandidates(model string, n int)
}

// CVResult holds the held-out log-loss of every fold, in fold order, with
// their mean and population standard deviation.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
}

func (r *CVResult) String() string {
	return fmt.Sprintf("%.5f +- %.5f", r.Mean, r.Std)
}

// CrossValidator runs stratified k-fold cross-validation under log-loss.
// Without Shuffle the folds take each class's rows in order, so the split is
// fully determined by the labels.
type CrossValidator struct {
	NFolds     int
	Shuffle    bool
	RandomSeed int64
	MaxWorkers int
	Observer   Observer
}

func NewCrossValidator(nFolds int) *CrossValidator {
	return &CrossValidator{
		NFolds:     nFolds,
		Shuffle:    false,
		RandomSeed: 42,
		MaxWorkers: 4,
	}
}

// CrossValidate fits a fresh clone of model on every k-1 folds and scores it
// on the remaining fold. Folds may run concurrently; scores are reported in
// fold order.
func (cv *CrossValidator) CrossValidate(ctx context.Context, X mat.Matrix, y []int, model models.Model) (*CVResult, error) {
	folds, err := cv.StratifiedFolds(y)
	if err != nil {
		return nil, err
	}
	return cv.evaluate(ctx, X, y, model, folds, cv.MaxWorkers)
}

func (cv *CrossValidator) evaluate(ctx context.Context, X mat.Matrix, y []int, model models.Model, folds [][]int, workers int) (*CVResult, error) {
	scores := make([]float64, len(folds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, testIndices := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := cv.evaluateFold(X, y, model, testIndices)
			if err != nil {
				return fmt.Errorf("fold %d failed: %w", i, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cv.Observer != nil {
		cv.Observer.AddFolds(model.GetName(), len(folds))
	}

	mean, std := stat.PopMeanStdDev(scores, nil)
	return &CVResult{Scores: scores, Mean: mean, Std: std}, nil
}

func (cv *CrossValidator) evaluateFold(X mat.Matrix, y []int, model models.Model, testIndices []int) (float64, error) {
	testSet := make(map[int]bool, len(testIndices))
	for _, idx := range testIndices {
		testSet[idx] = true
	}

	trainIndices := make([]int, 0, len(y)-len(testIndices))
	for i := range y {
		if !testSet[i] {
			trainIndices = append(trainIndices, i)
		}
	}

	foldModel := model.Clone()
	if err := foldModel.Fit(SelectRows(X, trainIndices), SelectLabels(y, trainIndices)); err != nil {
		return 0, err
	}

	proba, err := foldModel.PredictProba(SelectRows(X, testIndices))
	if err != nil {
		return 0, err
	}
	return MeanLogLoss(SelectLabels(y, testIndices), proba)
}

// StratifiedFolds assigns every row to one of NFolds test folds so that each
// fold's label mix follows the whole set. Each returned fold is sorted.
func (cv *CrossValidator) StratifiedFolds(y []int) ([][]int, error) {
	n := len(y)
	if cv.NFolds < 2 || cv.NFolds > n {
		return nil, fmt.Errorf("invalid number of folds: %d (must be between 2 and %d)", cv.NFolds, n)
	}

	classes := models.ExtractClasses(y)
	byClass := make(map[int][]int, len(classes))
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	// Deal the sorted labels round-robin to find how many rows of each class
	// every fold receives.
	sorted := make([]int, 0, n)
	for _, class := range classes {
		for range byClass[class] {
			sorted = append(sorted, class)
		}
	}
	allocation := make([]map[int]int, cv.NFolds)
	for f := range allocation {
		allocation[f] = make(map[int]int)
		for i := f; i < n; i += cv.NFolds {
			allocation[f][sorted[i]]++
		}
	}

	rng := rand.New(rand.NewSource(cv.RandomSeed))
	folds := make([][]int, cv.NFolds)
	for _, class := range classes {
		rows := byClass[class]
		if cv.Shuffle {
			rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		}
		start := 0
		for f := range folds {
			count := allocation[f][class]
			folds[f] = append(folds[f], rows[start:start+count]...)
			start += count
		}
	}

	for f := range folds {
		sort.Ints(folds[f])
	}
	return folds, nil
}
