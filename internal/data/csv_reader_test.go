package data_test

import (
	"math"
	"strings"
	"testing"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	t.Run("infers numeric and categorical columns", func(t *testing.T) {
		csvData := `action_type,loc_x,shot_made_flag,season
Jump Shot,167,0,2000-01
Layup Shot,-157,,2000-01
Dunk Shot,0,1,2001-02`

		tbl, err := data.NewCSVReader(strings.NewReader(csvData), data.DefaultCSVOptions()).Read()
		require.NoError(t, err)

		assert.Equal(t, 3, tbl.Len())
		assert.Equal(t, []string{"action_type", "loc_x", "shot_made_flag", "season"}, tbl.Columns())

		x, ok := tbl.Column("loc_x")
		require.True(t, ok)
		assert.Equal(t, data.Numeric, x.Kind)
		assert.Equal(t, []float64{167, -157, 0}, x.Floats)

		flag, _ := tbl.Column("shot_made_flag")
		assert.Equal(t, data.Numeric, flag.Kind)
		assert.True(t, math.IsNaN(flag.Floats[1]))

		season, _ := tbl.Column("season")
		assert.Equal(t, data.Categorical, season.Kind)
		assert.Equal(t, "2001-02", season.Strings[2])
	})

	t.Run("custom delimiter", func(t *testing.T) {
		csvData := "a;b\n1;x\n2;y\n"
		opts := data.DefaultCSVOptions()
		opts.Delimiter = ';'

		tbl, err := data.NewCSVReader(strings.NewReader(csvData), opts).Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	})

	t.Run("header only is an input error", func(t *testing.T) {
		_, err := data.NewCSVReader(strings.NewReader("a,b\n"), data.DefaultCSVOptions()).Read()
		assert.ErrorIs(t, err, perrors.ErrInput)
	})

	t.Run("ragged rows are an input error", func(t *testing.T) {
		_, err := data.NewCSVReader(strings.NewReader("a,b\n1,2\n3\n"), data.DefaultCSVOptions()).Read()
		assert.ErrorIs(t, err, perrors.ErrInput)
	})
}
