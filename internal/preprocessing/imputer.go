package preprocessing

import (
	"fmt"
	"math"
	"sort"
)

// MedianImputer fills missing (NaN) values with the median of the column in
// the fitting data.
type MedianImputer struct {
	Medians  []float64
	IsFitted bool
}

func NewMedianImputer() *MedianImputer {
	return &MedianImputer{}
}

// Fit records the median of each column. A column with no values at all
// cannot be imputed and fails the fit with the column index.
func (m *MedianImputer) Fit(cols [][]float64) error {
	m.Medians = make([]float64, len(cols))
	for j, col := range cols {
		med, ok := median(col)
		if !ok {
			return &emptyColumnError{index: j}
		}
		m.Medians[j] = med
	}
	m.IsFitted = true
	return nil
}

// TransformValue returns value, or the fitted median of feature j when value is missing.
func (m *MedianImputer) TransformValue(j int, value float64) float64 {
	if math.IsNaN(value) {
		return m.Medians[j]
	}
	return value
}

// Transform returns copies of cols with missing values filled.
func (m *MedianImputer) Transform(cols [][]float64) ([][]float64, error) {
	if !m.IsFitted {
		return nil, fmt.Errorf("imputer must be fitted before transform")
	}
	if len(cols) != len(m.Medians) {
		return nil, fmt.Errorf("imputer fitted on %d features, got %d", len(m.Medians), len(cols))
	}
	out := make([][]float64, len(cols))
	for j, col := range cols {
		out[j] = make([]float64, len(col))
		for i, v := range col {
			out[j][i] = m.TransformValue(j, v)
		}
	}
	return out, nil
}

func median(col []float64) (float64, bool) {
	values := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], true
	}
	return (values[mid-1] + values[mid]) / 2, true
}

type emptyColumnError struct {
	index int
}

func (e *emptyColumnError) Error() string {
	return fmt.Sprintf("feature %d has no values to compute a median from", e.index)
}
