package evaluation

import (
	"fmt"
	"math"
)

// Probabilities are clipped to [Epsilon, 1-Epsilon] before taking logs so a
// confident wrong prediction costs a large but finite loss.
const Epsilon = 1e-15

// LogLoss is the binary log-loss of a single prediction p = P(y=1).
func LogLoss(y int, p float64) float64 {
	p = math.Min(math.Max(p, Epsilon), 1-Epsilon)
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// MeanLogLoss averages LogLoss over all rows. Lower is better.
func MeanLogLoss(y []int, proba []float64) (float64, error) {
	if len(y) != len(proba) {
		return 0, fmt.Errorf("labels and probabilities have different lengths: %d vs %d", len(y), len(proba))
	}
	if len(y) == 0 {
		return 0, fmt.Errorf("cannot score an empty set")
	}

	sum := 0.0
	for i, label := range y {
		if math.IsNaN(proba[i]) {
			return 0, fmt.Errorf("probability at row %d is NaN", i)
		}
		sum += LogLoss(label, proba[i])
	}
	return sum / float64(len(y)), nil
}

// NegLogLossScore is MeanLogLoss negated for higher-is-better comparisons.
// Reports always show the positive loss.
func NegLogLossScore(y []int, proba []float64) (float64, error) {
	loss, err := MeanLogLoss(y, proba)
	return -loss, err
}
