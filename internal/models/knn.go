package models

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNN votes uniformly among the K nearest training rows. The probability of
// a made shot is the share of positive neighbours; distance ties go to the
// earlier training row.
type KNN struct {
	BaseModel
	K        int
	Distance string
	XTrain   *mat.Dense
	yTrain   []int
}

func NewKNN(k int, distance string) *KNN {
	if k <= 0 {
		k = 5
	}

	if distance != "euclidean" && distance != "manhattan" {
		distance = "euclidean"
	}

	return &KNN{
		K:        k,
		Distance: distance,
		BaseModel: BaseModel{
			Name: "KNN",
			Params: Params{
				"n_neighbors": k,
			},
		},
	}
}

func (knn *KNN) Clone() Model {
	return NewKNN(knn.K, knn.Distance)
}

func (knn *KNN) Fit(X mat.Matrix, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if len(y) < knn.K {
		return fmt.Errorf("n_neighbors %d exceeds the %d training samples", knn.K, len(y))
	}

	knn.XTrain = mat.DenseCopyOf(X)
	knn.yTrain = make([]int, len(y))
	copy(knn.yTrain, y)

	knn.Classes = ExtractClasses(y)
	return nil
}

func (knn *KNN) PredictProba(X mat.Matrix) ([]float64, error) {
	if knn.XTrain == nil {
		return nil, ErrNotFitted
	}
	_, c := knn.XTrain.Dims()
	if err := checkWidth(X, c); err != nil {
		return nil, err
	}

	rows := dense(X)
	r, _ := rows.Dims()
	proba := make([]float64, r)
	for i := range proba {
		positives := 0
		for _, idx := range knn.findNeighbors(rows.RawRowView(i)) {
			positives += knn.yTrain[idx]
		}
		proba[i] = float64(positives) / float64(knn.K)
	}
	return proba, nil
}

func (knn *KNN) Predict(X mat.Matrix) ([]int, error) {
	proba, err := knn.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

// findNeighbors keeps the K closest rows in an insertion-sorted buffer.
func (knn *KNN) findNeighbors(sample []float64) []int {
	type neighbor struct {
		index    int
		distance float64
	}

	best := make([]neighbor, 0, knn.K+1)
	n, _ := knn.XTrain.Dims()
	for i := 0; i < n; i++ {
		d := knn.calculateDistance(sample, knn.XTrain.RawRowView(i))
		if len(best) == knn.K && d >= best[len(best)-1].distance {
			continue
		}
		pos := len(best)
		for pos > 0 && best[pos-1].distance > d {
			pos--
		}
		best = append(best, neighbor{})
		copy(best[pos+1:], best[pos:])
		best[pos] = neighbor{index: i, distance: d}
		if len(best) > knn.K {
			best = best[:knn.K]
		}
	}

	out := make([]int, len(best))
	for i, nb := range best {
		out[i] = nb.index
	}
	return out
}

func (knn *KNN) calculateDistance(a, b []float64) float64 {
	if knn.Distance == "manhattan" {
		return floats.Distance(a, b, 1)
	}
	return floats.Distance(a, b, 2)
}
