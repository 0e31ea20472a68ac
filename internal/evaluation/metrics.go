package evaluation

import (
	"fmt"
	"math"
	"strings"
)

// ClassificationMetrics summarizes binary predictions thresholded at 0.5.
type ClassificationMetrics struct {
	LogLoss         float64 `json:"log_loss"`
	// Score is the negated log loss, for higher-is-better comparisons.
	Score           float64 `json:"neg_log_loss"`
	Accuracy        float64 `json:"accuracy"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	F1Score         float64 `json:"f1_score"`
	ConfusionMatrix [][]int `json:"confusion_matrix"`
	NumSamples      int     `json:"num_samples"`
}

// CalculateMetrics scores probabilities against labels.
func CalculateMetrics(yTrue []int, proba []float64) (*ClassificationMetrics, error) {
	score, err := NegLogLossScore(yTrue, proba)
	if err != nil {
		return nil, err
	}

	yPred := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			yPred[i] = 1
		}
	}
	confusionMatrix := ConfusionMatrix(yTrue, yPred)

	tp := confusionMatrix[1][1]
	fp := confusionMatrix[0][1]
	fn := confusionMatrix[1][0]
	precision := safeDivide(float64(tp), float64(tp+fp))
	recall := safeDivide(float64(tp), float64(tp+fn))

	return &ClassificationMetrics{
		LogLoss:         -score,
		Score:           score,
		Accuracy:        Accuracy(yTrue, yPred),
		Precision:       precision,
		Recall:          recall,
		F1Score:         safeDivide(2*precision*recall, precision+recall),
		ConfusionMatrix: confusionMatrix,
		NumSamples:      len(yTrue),
	}, nil
}

// Accuracy is the share of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ConfusionMatrix counts [true][predicted] label pairs for labels 0 and 1.
func ConfusionMatrix(yTrue, yPred []int) [][]int {
	return buildConfusionMatrix(yTrue, yPred, []int{0, 1})
}

func buildConfusionMatrix(yTrue, yPred []int, classes []int) [][]int {
	numClasses := len(classes)
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}

	classToIdx := make(map[int]int)
	for i, class := range classes {
		classToIdx[class] = i
	}

	for i := range yTrue {
		trueIdx, trueOk := classToIdx[yTrue[i]]
		predIdx, predOk := classToIdx[yPred[i]]
		if trueOk && predOk {
			matrix[trueIdx][predIdx]++
		}
	}

	return matrix
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0.0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0.0
	}
	return result
}

// FormatMetrics renders the metrics followed by the confusion matrix, rows
// being the true label.
func (m *ClassificationMetrics) FormatMetrics() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Log Loss: %.5f\n", m.LogLoss)
	fmt.Fprintf(&sb, "Accuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(&sb, "Precision: %.4f, Recall: %.4f, F1: %.4f\n", m.Precision, m.Recall, m.F1Score)
	if len(m.ConfusionMatrix) == 2 {
		fmt.Fprintf(&sb, "%-8s %8s %8s\n", "true", "missed", "made")
		for i, label := range []string{"missed", "made"} {
			fmt.Fprintf(&sb, "%-8s %8d %8d\n", label, m.ConfusionMatrix[i][0], m.ConfusionMatrix[i][1])
		}
	}
	return sb.String()
}
