package preprocessing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale types accepted by NewScaler.
const (
	ScaleStandard = "standard"
	ScaleMinMax   = "minmax"
	ScaleNone     = "none"
)

// Scaler rescales columns with statistics from the fitting data. Sums are
// accumulated as decimals so the statistics do not depend on row order.
type Scaler struct {
	ScaleType   string
	IsFitted    bool
	FeatureMin  []float64
	FeatureMax  []float64
	FeatureMean []float64
	FeatureStd  []float64
}

func NewScaler(scaleType string) *Scaler {
	return &Scaler{
		ScaleType: scaleType,
		IsFitted:  false,
	}
}

// Fit computes per-column statistics. cols holds one slice per feature.
func (s *Scaler) Fit(cols [][]float64) error {
	if len(cols) > 0 && len(cols[0]) == 0 {
		return fmt.Errorf("empty dataset")
	}

	nFeatures := len(cols)
	s.FeatureMin = make([]float64, nFeatures)
	s.FeatureMax = make([]float64, nFeatures)
	s.FeatureMean = make([]float64, nFeatures)
	s.FeatureStd = make([]float64, nFeatures)

	switch s.ScaleType {
	case ScaleMinMax, "normalized":
		s.fitMinMax(cols)
	case ScaleStandard, "standardized":
		s.fitStandard(cols)
	case ScaleNone, "raw":
	default:
		return fmt.Errorf("unknown scale type: %s", s.ScaleType)
	}

	s.IsFitted = true
	return nil
}

// TransformValue scales a single value of feature j.
func (s *Scaler) TransformValue(j int, value float64) float64 {
	switch s.ScaleType {
	case ScaleMinMax, "normalized":
		return s.transformMinMax(value, j)
	case ScaleStandard, "standardized":
		return s.transformStandard(value, j)
	default:
		return value
	}
}

// Transform returns scaled copies of cols.
func (s *Scaler) Transform(cols [][]float64) ([][]float64, error) {
	if !s.IsFitted {
		return nil, fmt.Errorf("scaler must be fitted before transform")
	}
	if len(cols) != len(s.FeatureMean) {
		return nil, fmt.Errorf("scaler fitted on %d features, got %d", len(s.FeatureMean), len(cols))
	}

	result := make([][]float64, len(cols))
	for j, col := range cols {
		result[j] = make([]float64, len(col))
		for i, v := range col {
			result[j][i] = s.TransformValue(j, v)
		}
	}
	return result, nil
}

func (s *Scaler) FitTransform(cols [][]float64) ([][]float64, error) {
	if err := s.Fit(cols); err != nil {
		return nil, err
	}
	return s.Transform(cols)
}

func (s *Scaler) fitMinMax(cols [][]float64) {
	for j, col := range cols {
		s.FeatureMin[j] = col[0]
		s.FeatureMax[j] = col[0]

		for i := 1; i < len(col); i++ {
			s.FeatureMin[j] = math.Min(s.FeatureMin[j], col[i])
			s.FeatureMax[j] = math.Max(s.FeatureMax[j], col[i])
		}
	}
}

func (s *Scaler) fitStandard(cols [][]float64) {
	for j, col := range cols {
		nSamples := decimal.NewFromInt(int64(len(col)))

		sum := decimal.Zero
		for _, v := range col {
			sum = sum.Add(decimal.NewFromFloat(v))
		}
		mean := sum.Div(nSamples)

		variance := decimal.Zero
		for _, v := range col {
			diff := decimal.NewFromFloat(v).Sub(mean)
			variance = variance.Add(diff.Mul(diff))
		}
		variance = variance.Div(nSamples)

		s.FeatureMean[j] = mean.InexactFloat64()
		s.FeatureStd[j] = math.Sqrt(variance.InexactFloat64())

		// Constant columns are centred but not scaled.
		if s.FeatureStd[j] == 0 {
			s.FeatureStd[j] = 1
		}
	}
}

func (s *Scaler) transformMinMax(value float64, featureIndex int) float64 {
	range_ := s.FeatureMax[featureIndex] - s.FeatureMin[featureIndex]
	if range_ == 0 {
		return 0
	}
	return (value - s.FeatureMin[featureIndex]) / range_
}

func (s *Scaler) transformStandard(value float64, featureIndex int) float64 {
	return (value - s.FeatureMean[featureIndex]) / s.FeatureStd[featureIndex]
}
