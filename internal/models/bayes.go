package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NaiveBayes is a Gaussian naive Bayes classifier. VarSmoothing is a share of
// the largest feature variance added to every variance, so constant
// indicator columns do not produce zero variances.
type NaiveBayes struct {
	BaseModel
	ClassLogPriors map[int]float64
	FeatureMeans   map[int][]float64
	FeatureVars    map[int][]float64
	VarSmoothing   float64
}

func NewNaiveBayes(varSmoothing float64) *NaiveBayes {
	return &NaiveBayes{
		VarSmoothing: varSmoothing,
		BaseModel: BaseModel{
			Name:   "NaiveBayes",
			Params: Params{},
		},
	}
}

func (nb *NaiveBayes) Clone() Model {
	return NewNaiveBayes(nb.VarSmoothing)
}

func (nb *NaiveBayes) Fit(X mat.Matrix, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	nb.Classes = ExtractClasses(y)
	cols := columns(X)

	epsilon := 0.0
	for _, col := range cols {
		_, std := stat.PopMeanStdDev(col, nil)
		epsilon = math.Max(epsilon, std*std)
	}
	epsilon *= nb.VarSmoothing
	if epsilon == 0 {
		epsilon = nb.VarSmoothing
	}

	nb.ClassLogPriors = make(map[int]float64)
	nb.FeatureMeans = make(map[int][]float64)
	nb.FeatureVars = make(map[int][]float64)

	for _, class := range nb.Classes {
		var rows []int
		for i, label := range y {
			if label == class {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			return fmt.Errorf("class %d has no samples", class)
		}

		nb.ClassLogPriors[class] = math.Log(float64(len(rows)) / float64(len(y)))
		nb.FeatureMeans[class] = make([]float64, len(cols))
		nb.FeatureVars[class] = make([]float64, len(cols))

		values := make([]float64, len(rows))
		for j, col := range cols {
			for k, idx := range rows {
				values[k] = col[idx]
			}
			mean, std := stat.PopMeanStdDev(values, nil)
			nb.FeatureMeans[class][j] = mean
			nb.FeatureVars[class][j] = std*std + epsilon
		}
	}

	return nil
}

func (nb *NaiveBayes) logGaussianPDF(x, mean, variance float64) float64 {
	diff := x - mean
	return -0.5*math.Log(2*math.Pi*variance) - (diff*diff)/(2*variance)
}

// PredictProba returns P(y=1). A training set with a single class yields
// 0 or 1 for every row.
func (nb *NaiveBayes) PredictProba(X mat.Matrix) ([]float64, error) {
	if nb.FeatureMeans == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(nb.FeatureMeans[nb.Classes[0]])); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	proba := make([]float64, r)
	for i := range proba {
		logProbs := make(map[int]float64, len(nb.Classes))
		maxLogProb := math.Inf(-1)
		for _, class := range nb.Classes {
			logProb := nb.ClassLogPriors[class]
			for j := 0; j < c; j++ {
				logProb += nb.logGaussianPDF(X.At(i, j), nb.FeatureMeans[class][j], nb.FeatureVars[class][j])
			}
			logProbs[class] = logProb
			maxLogProb = math.Max(maxLogProb, logProb)
		}

		sumExp := 0.0
		for _, lp := range logProbs {
			sumExp += math.Exp(lp - maxLogProb)
		}
		if lp, ok := logProbs[1]; ok {
			proba[i] = math.Exp(lp-maxLogProb) / sumExp
		}
	}
	return proba, nil
}

func (nb *NaiveBayes) Predict(X mat.Matrix) ([]int, error) {
	proba, err := nb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}
