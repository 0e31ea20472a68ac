package models

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RandomForest averages the probabilities of bootstrap-trained trees. Each
// split considers MaxFeatures random features; zero means sqrt(n_features).
type RandomForest struct {
	BaseModel
	NTrees          int
	MaxDepth        int
	MaxFeatures     int
	MinSamplesSplit int
	Seed            int64
	Trees           []*DecisionTree
	Parallel        bool
	MaxWorkers      int

	nFeatures int
}

func NewRandomForest(nTrees, maxDepth, maxFeatures int, seed int64) *RandomForest {
	return &RandomForest{
		NTrees:          nTrees,
		MaxDepth:        maxDepth,
		MaxFeatures:     maxFeatures,
		MinSamplesSplit: 2,
		Seed:            seed,
		Parallel:        true,
		MaxWorkers:      4,
		BaseModel: BaseModel{
			Name: "RandomForest",
			Params: Params{
				"n_estimators": nTrees,
				"max_depth":    maxDepth,
				"max_features": maxFeatures,
			},
		},
	}
}

func (rf *RandomForest) Clone() Model {
	clone := NewRandomForest(rf.NTrees, rf.MaxDepth, rf.MaxFeatures, rf.Seed)
	clone.MinSamplesSplit = rf.MinSamplesSplit
	clone.Parallel = rf.Parallel
	clone.MaxWorkers = rf.MaxWorkers
	return clone
}

func (rf *RandomForest) Fit(X mat.Matrix, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if rf.NTrees <= 0 {
		return fmt.Errorf("n_estimators must be positive, got %d", rf.NTrees)
	}
	_, nFeatures := X.Dims()
	if rf.MaxFeatures > nFeatures {
		return fmt.Errorf("max_features %d exceeds the %d available features", rf.MaxFeatures, nFeatures)
	}

	rf.Classes = ExtractClasses(y)
	rf.nFeatures = nFeatures
	rf.Trees = make([]*DecisionTree, rf.NTrees)
	cols := columns(X)

	if rf.Parallel {
		return rf.trainParallel(cols, y)
	}
	return rf.trainSequential(cols, y)
}

func (rf *RandomForest) trainParallel(cols [][]float64, y []int) error {
	var wg sync.WaitGroup
	errors := make([]error, rf.NTrees)

	workers := max(1, min(rf.MaxWorkers, rf.NTrees))
	jobs := make(chan int, rf.NTrees)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rf.Trees[i], errors[i] = rf.trainSingleTree(cols, y, i)
			}
		}()
	}

	for i := 0; i < rf.NTrees; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	for i, err := range errors {
		if err != nil {
			return fmt.Errorf("tree %d training failed: %w", i, err)
		}
	}
	return nil
}

func (rf *RandomForest) trainSequential(cols [][]float64, y []int) error {
	for i := 0; i < rf.NTrees; i++ {
		tree, err := rf.trainSingleTree(cols, y, i)
		if err != nil {
			return fmt.Errorf("tree %d training failed: %w", i, err)
		}
		rf.Trees[i] = tree
	}
	return nil
}

// trainSingleTree fits tree i on a bootstrap sample. The sample and the
// per-split feature draws depend only on Seed and i.
func (rf *RandomForest) trainSingleTree(cols [][]float64, y []int, i int) (*DecisionTree, error) {
	seed := rf.Seed*1_000_003 + int64(i)
	r := rand.New(rand.NewSource(seed))

	n := len(y)
	boot := make([]int, n)
	for k := range boot {
		boot[k] = r.Intn(n)
	}

	tree := NewDecisionTree(rf.MaxDepth, rf.featuresPerSplit(len(cols)), 0, seed)
	tree.MinSamplesSplit = rf.MinSamplesSplit
	if err := tree.validateParams(len(cols)); err != nil {
		return nil, err
	}
	tree.fitIndices(cols, y, boot, r)
	return tree, nil
}

func (rf *RandomForest) featuresPerSplit(nFeatures int) int {
	if rf.MaxFeatures > 0 {
		return rf.MaxFeatures
	}
	return max(1, int(math.Sqrt(float64(nFeatures))))
}

func (rf *RandomForest) PredictProba(X mat.Matrix) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, rf.nFeatures); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	proba := make([]float64, r)
	for _, tree := range rf.Trees {
		for i := range proba {
			proba[i] += tree.leafFor(X, i).Probability()
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.Trees))
	}
	return proba, nil
}

func (rf *RandomForest) Predict(X mat.Matrix) ([]int, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}
