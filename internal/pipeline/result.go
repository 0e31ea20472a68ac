package pipeline

import (
	"time"

	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/explore"
	"shotclassifier/internal/models"
	"shotclassifier/internal/preprocessing"
	"shotclassifier/internal/shots"
)

// Views is the data behind the exploration charts for the selected seasons.
type Views struct {
	Shape     explore.Shape
	Actions   []explore.Count
	Locations []explore.Point
	Periods   []explore.Histogram
	ZoneAreas []string
}

// Section is the evaluation of one model. When Err is set the numbers are
// absent; other sections are unaffected.
type Section struct {
	Algorithm    string
	Encoding     preprocessing.Encoding
	FeatureNames []string
	// Params are the hyperparameters of the reported estimator: the grid
	// winner when a grid was searched, otherwise the defaults.
	Params     models.Params
	CV         *evaluation.CVResult
	Grid       *evaluation.GridSearchResult
	Validation *evaluation.ClassificationMetrics
	// HeldOut is P(made) for every unlabeled row, in row order, from the
	// estimator refitted on all labeled rows.
	HeldOut []float64
	// UnknownCategories counts held-out values per column that the encoder
	// never saw on the labeled rows.
	UnknownCategories map[string]int
	// Tree renders the fitted single tree; empty for other models.
	Tree       string
	TreeDepth  int
	TreeLeaves int

	Duration time.Duration
	Err      error
}

func (s *Section) Name() string { return models.DisplayName(s.Algorithm) }

func (s *Section) Failed() bool { return s.Err != nil }

// Result is everything one run produced.
type Result struct {
	RunID string
	// Seasons lists every season of the cleaned table in chronological order.
	Seasons []string
	Range   shots.SeasonRange
	// Dataset is the shape of the cleaned table before any season filter.
	Dataset explore.Shape
	Views   Views

	LabeledRows    int
	UnlabeledRows  int
	TrainRows      int
	ValidationRows int
	Sections       []*Section
}

// Section returns the section for algorithm.
func (r *Result) Section(algorithm string) (*Section, bool) {
	for _, s := range r.Sections {
		if s.Algorithm == algorithm {
			return s, true
		}
	}
	return nil, false
}

// Best returns the successful section with the lowest mean CV loss.
func (r *Result) Best() (*Section, bool) {
	var best *Section
	for _, s := range r.Sections {
		if s.Failed() {
			continue
		}
		if best == nil || s.CV.Mean < best.CV.Mean {
			best = s
		}
	}
	return best, best != nil
}

// Results flattens the sections into report rows.
func (r *Result) Results() []experiment.Result {
	out := make([]experiment.Result, 0, len(r.Sections))
	for _, s := range r.Sections {
		row := experiment.Result{
			RunID:          r.RunID,
			Seasons:        r.Range.String(),
			Algorithm:      s.Algorithm,
			Encoding:       s.Encoding.String(),
			Features:       len(s.FeatureNames),
			HeldOutRows:    len(s.HeldOut),
			TrainingTimeMs: s.Duration.Milliseconds(),
		}
		if s.Params != nil {
			row.Parameters = s.Params.String()
		}
		if s.Grid != nil {
			row.GridCandidates = len(s.Grid.Candidates)
			row.GridFailed = s.Grid.Failed()
		}
		if s.Failed() {
			row.Error = s.Err.Error()
		} else {
			row.CVMean = s.CV.Mean
			row.CVStd = s.CV.Std
			row.ValidationLoss = s.Validation.LogLoss
			row.Accuracy = s.Validation.Accuracy
		}
		out = append(out, row)
	}
	return out
}
