package evaluation

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// TrainTestSplitter holds out a seeded random share of the rows. The held
// out count is ceil(testSize*n), and the same seed and input order always
// give the same split.
type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

// SplitIndices returns the train and test row indices for n rows.
func (tts *TrainTestSplitter) SplitIndices(n int) ([]int, []int, error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("cannot split %d rows", n)
	}

	if tts.testSize <= 0 || tts.testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be between 0 and 1")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if tts.shuffle {
		rng := rand.New(rand.NewSource(tts.randomSeed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testCount := int(math.Ceil(float64(n) * tts.testSize))
	if testCount >= n {
		testCount = n - 1
	}

	test := append([]int(nil), indices[:testCount]...)
	train := append([]int(nil), indices[testCount:]...)
	return train, test, nil
}

// SelectRows copies the given rows of X into a new matrix, or returns nil
// when rows is empty.
func SelectRows(X mat.Matrix, rows []int) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, idx := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// SelectLabels returns y at the given rows.
func SelectLabels(y []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, idx := range rows {
		out[i] = y[idx]
	}
	return out
}
