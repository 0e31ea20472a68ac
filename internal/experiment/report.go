package experiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Result is one model section flattened for export.
type Result struct {
	RunID          string
	Seasons        string
	Algorithm      string
	Parameters     string
	Encoding       string
	Features       int
	CVMean         float64
	CVStd          float64
	ValidationLoss float64
	Accuracy       float64
	GridCandidates int
	GridFailed     int
	HeldOutRows    int
	TrainingTimeMs int64
	// Error is set for a failed section, whose numbers are left blank.
	Error string
}

var resultHeader = []string{
	"RunID", "Seasons", "Algorithm", "Parameters", "Encoding", "Features",
	"CVMean", "CVStd", "ValidationLoss", "Accuracy",
	"GridCandidates", "GridFailed", "HeldOutRows", "TrainingTimeMs", "Error",
}

// Round formats v with the given number of decimal places.
func Round(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

func (r Result) record() []string {
	row := []string{
		r.RunID,
		r.Seasons,
		r.Algorithm,
		r.Parameters,
		r.Encoding,
		strconv.Itoa(r.Features),
	}
	if r.Error != "" {
		row = append(row, "", "", "", "")
	} else {
		row = append(row,
			Round(r.CVMean, 5),
			Round(r.CVStd, 5),
			Round(r.ValidationLoss, 5),
			Round(r.Accuracy, 4),
		)
	}
	return append(row,
		strconv.Itoa(r.GridCandidates),
		strconv.Itoa(r.GridFailed),
		strconv.Itoa(r.HeldOutRows),
		strconv.FormatInt(r.TrainingTimeMs, 10),
		r.Error,
	)
}

// ExportResults writes results as CSV with a header row.
func ExportResults(results []Result, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(resultHeader); err != nil {
		return err
	}
	for _, result := range results {
		if err := writer.Write(result.record()); err != nil {
			return fmt.Errorf("writing %s: %w", result.Algorithm, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
