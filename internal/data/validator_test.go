package data_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestDataValidator(t *testing.T) {
	dv := data.NewDataValidator()
	tbl := sampleTable(t)

	assert.NoError(t, dv.RequireColumns("Clean", tbl, "loc_x", "season"))

	err := dv.RequireColumns("Clean", tbl, "loc_x", "combined_shot_type")
	assert.ErrorIs(t, err, perrors.ErrInput)
	assert.Contains(t, err.Error(), "combined_shot_type")

	assert.NoError(t, dv.RequireKind("Clean", tbl, data.Categorical, "season"))
	assert.ErrorIs(t, dv.RequireKind("Clean", tbl, data.Categorical, "loc_x"), perrors.ErrInput)

	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.NoError(t, dv.ValidateDataset(X, []int{0, 1}))
	assert.Error(t, dv.ValidateDataset(X, []int{0}))
	assert.Error(t, dv.ValidateDataset(X, []int{0, 2}))

	bad := mat.NewDense(1, 2, []float64{1, math.NaN()})
	assert.Error(t, dv.ValidateDataset(bad, []int{1}))
}
