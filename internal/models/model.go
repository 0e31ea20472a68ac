package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"shotclassifier/internal/data"
)

// ErrNotFitted is returned when predicting with a model that has not been fitted.
var ErrNotFitted = errors.New("model is not fitted")

// Model is a binary classifier. PredictProba returns P(y=1) per row.
type Model interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
	PredictProba(X mat.Matrix) ([]float64, error)
	GetName() string
	GetParams() Params
	// Clone returns an unfitted model with the same hyperparameters.
	Clone() Model
}

// Params are integer hyperparameters. Zero means "no limit" for the
// structural tree parameters and is displayed as None.
type Params map[string]int

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, FormatParam(p[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FormatParam renders a parameter value, showing 0 as None.
func FormatParam(v int) string {
	if v == 0 {
		return "None"
	}
	return fmt.Sprintf("%d", v)
}

type BaseModel struct {
	Name    string
	Params  Params
	Classes []int
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() Params {
	out := make(Params, len(bm.Params))
	for k, v := range bm.Params {
		out[k] = v
	}
	return out
}

// ExtractClasses returns the distinct labels in ascending order.
func ExtractClasses(y []int) []int {
	classMap := make(map[int]bool)
	for _, label := range y {
		classMap[label] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	return classes
}

func validateTraining(X mat.Matrix, y []int) error {
	return data.NewDataValidator().ValidateDataset(X, y)
}

func checkWidth(X mat.Matrix, want int) error {
	if _, c := X.Dims(); c != want {
		return fmt.Errorf("model fitted on %d features, got %d", want, c)
	}
	return nil
}

// dense returns X as a *mat.Dense, copying only when needed.
func dense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

// columns copies X into feature-major slices.
func columns(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		for i := 0; i < r; i++ {
			cols[j][i] = X.At(i, j)
		}
	}
	return cols
}

func threshold(proba []float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
