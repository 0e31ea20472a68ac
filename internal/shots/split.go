package shots

import (
	"fmt"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
)

// ErrNoLabeledRows means no row carries an outcome, so nothing can be trained.
var ErrNoLabeledRows = perrors.NewConfigError("SplitLabeled", "no labeled rows to train on")

// LabeledSplit partitions the cleaned table by presence of the outcome.
// Both tables have the label column removed.
type LabeledSplit struct {
	Labeled   *data.Table
	Labels    []int
	Unlabeled *data.Table
}

// SplitLabeled puts every row with a shot_made_flag into Labeled and every
// row without one into Unlabeled, keeping row order within each.
func SplitLabeled(t *data.Table) (*LabeledSplit, error) {
	if err := data.NewDataValidator().RequireKind("SplitLabeled", t, data.Numeric, Label); err != nil {
		return nil, err
	}
	flag, _ := t.Column(Label)

	var labeledRows, unlabeledRows []int
	var labels []int
	for i, v := range flag.Floats {
		if flag.IsMissing(i) {
			unlabeledRows = append(unlabeledRows, i)
			continue
		}
		switch v {
		case 0, 1:
			labels = append(labels, int(v))
		default:
			return nil, perrors.NewInputError("SplitLabeled", Label, fmt.Sprintf("row %d has label %g, expected 0 or 1", i, v))
		}
		labeledRows = append(labeledRows, i)
	}

	if len(labeledRows) == 0 {
		return nil, ErrNoLabeledRows
	}

	features := t.Drop(Label)
	return &LabeledSplit{
		Labeled:   features.Take(labeledRows),
		Labels:    labels,
		Unlabeled: features.Take(unlabeledRows),
	}, nil
}
