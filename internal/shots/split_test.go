package shots_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/shots"
	"shotclassifier/internal/shots/shotstest"
)

func cleanedSample(t *testing.T) *data.Table {
	t.Helper()
	cleaned, err := shots.Clean(shotstest.Generate(shotstest.DefaultOptions()))
	require.NoError(t, err)
	return cleaned
}

func TestSplitLabeled(t *testing.T) {
	cleaned := cleanedSample(t)

	split, err := shots.SplitLabeled(cleaned)
	require.NoError(t, err)

	assert.Equal(t, cleaned.Len(), split.Labeled.Len()+split.Unlabeled.Len())
	assert.Equal(t, split.Labeled.Len(), len(split.Labels))
	assert.False(t, split.Labeled.HasColumn(shots.Label))
	assert.False(t, split.Unlabeled.HasColumn(shots.Label))
	assert.Positive(t, split.Unlabeled.Len())

	// Every row lands in exactly one side, in original order.
	flag, _ := cleaned.Column(shots.Label)
	ids, _ := cleaned.Column(shots.ColLocX)
	labeledX, _ := split.Labeled.Column(shots.ColLocX)
	unlabeledX, _ := split.Unlabeled.Column(shots.ColLocX)
	var li, ui int
	for i := 0; i < cleaned.Len(); i++ {
		if flag.IsMissing(i) {
			assert.Equal(t, ids.Floats[i], unlabeledX.Floats[ui])
			ui++
			continue
		}
		assert.Equal(t, ids.Floats[i], labeledX.Floats[li])
		assert.Equal(t, int(flag.Floats[i]), split.Labels[li])
		li++
	}
}

func TestSplitLabeledErrors(t *testing.T) {
	t.Run("no labeled rows", func(t *testing.T) {
		tbl, err := data.NewTable(data.NewNumericColumn(shots.Label, []float64{math.NaN(), math.NaN()}))
		require.NoError(t, err)
		_, err = shots.SplitLabeled(tbl)
		assert.ErrorIs(t, err, shots.ErrNoLabeledRows)
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})

	t.Run("label out of range", func(t *testing.T) {
		tbl, err := data.NewTable(data.NewNumericColumn(shots.Label, []float64{1, 2}))
		require.NoError(t, err)
		_, err = shots.SplitLabeled(tbl)
		assert.ErrorIs(t, err, perrors.ErrInput)
	})

	t.Run("no label column", func(t *testing.T) {
		tbl, err := data.NewTable(data.NewNumericColumn(shots.ColLocX, []float64{1}))
		require.NoError(t, err)
		_, err = shots.SplitLabeled(tbl)
		assert.ErrorIs(t, err, perrors.ErrInput)
	})
}

func TestSeasons(t *testing.T) {
	cleaned := cleanedSample(t)

	seasons, err := shots.Seasons(cleaned)
	require.NoError(t, err)
	assert.Equal(t, []string{shotstest.Season(0), shotstest.Season(1), shotstest.Season(2), shotstest.Season(3)}, seasons)

	t.Run("zero range keeps everything", func(t *testing.T) {
		out, err := shots.FilterSeasons(cleaned, shots.SeasonRange{})
		require.NoError(t, err)
		assert.Same(t, cleaned, out)
	})

	t.Run("range is inclusive and order preserving", func(t *testing.T) {
		r := shots.SeasonRange{Start: seasons[1], End: seasons[2]}
		out, err := shots.FilterSeasons(cleaned, r)
		require.NoError(t, err)

		col, _ := out.Column(shots.ColSeason)
		got := map[string]bool{}
		for _, s := range col.Strings {
			got[s] = true
		}
		assert.Equal(t, map[string]bool{seasons[1]: true, seasons[2]: true}, got)

		year, _ := out.Column(shots.ColYear)
		for i := 1; i < out.Len(); i++ {
			assert.LessOrEqual(t, year.Floats[i-1], year.Floats[i])
		}
	})

	t.Run("single season", func(t *testing.T) {
		out, err := shots.FilterSeasons(cleaned, shots.SeasonRange{Start: seasons[0], End: seasons[0]})
		require.NoError(t, err)
		assert.Positive(t, out.Len())
	})

	t.Run("degenerate ranges are configuration errors", func(t *testing.T) {
		_, err := shots.FilterSeasons(cleaned, shots.SeasonRange{Start: seasons[2], End: seasons[1]})
		assert.ErrorIs(t, err, perrors.ErrConfiguration)

		_, err = shots.FilterSeasons(cleaned, shots.SeasonRange{Start: "1990-91", End: seasons[1]})
		assert.ErrorIs(t, err, perrors.ErrConfiguration)
	})
}
