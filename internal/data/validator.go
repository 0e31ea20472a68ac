package data

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	perrors "shotclassifier/internal/errors"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// RequireColumns fails with an input error naming the first absent column.
func (dv *DataValidator) RequireColumns(op string, t *Table, names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return perrors.NewColumnNotFoundError(op, name)
		}
	}
	return nil
}

// RequireKind fails when a column exists with the wrong kind.
func (dv *DataValidator) RequireKind(op string, t *Table, kind Kind, names ...string) error {
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return perrors.NewColumnNotFoundError(op, name)
		}
		if col.Kind != kind {
			return perrors.NewInputError(op, name, fmt.Sprintf("expected %s column, found %s", kind, col.Kind))
		}
	}
	return nil
}

// ValidateDataset checks a feature matrix against its labels.
func (dv *DataValidator) ValidateDataset(X mat.Matrix, y []int) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return fmt.Errorf("dataset is empty")
	}

	if rows != len(y) {
		return fmt.Errorf("feature matrix and labels have different lengths: %d vs %d", rows, len(y))
	}

	if cols == 0 {
		return fmt.Errorf("features cannot be empty")
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite value at sample %d, feature %d", i, j)
			}
		}
	}

	return dv.ValidateLabels(y)
}

// ValidateLabels requires binary 0/1 labels.
func (dv *DataValidator) ValidateLabels(y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("labels are empty")
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label at sample %d is %d, expected 0 or 1", i, label)
		}
	}
	return nil
}
