package data_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotclassifier/internal/data"
)

func writeParquetFixture(t *testing.T) string {
	t.Helper()
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "season", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "loc_x", Type: arrow.PrimitiveTypes.Int64},
		{Name: "shot_made_flag", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "playoffs", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"2000-01", "2000-01", ""}, []bool{true, true, false})
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, -20, 30}, nil)
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{1, 0, 0}, []bool{true, true, false})
	b.Field(3).(*array.BooleanBuilder).AppendValues([]bool{false, true, false}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "shots.parquet")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParquetLoad(t *testing.T) {
	path := writeParquetFixture(t)

	tbl, fp, err := data.LoadFile(context.Background(), path, data.DefaultCSVOptions())
	require.NoError(t, err)
	assert.NotZero(t, fp.Digest)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"season", "loc_x", "shot_made_flag", "playoffs"}, tbl.Columns())

	season, _ := tbl.Column("season")
	assert.Equal(t, data.Categorical, season.Kind)
	assert.True(t, season.IsMissing(2))

	x, _ := tbl.Column("loc_x")
	assert.Equal(t, []float64{10, -20, 30}, x.Floats)

	flag, _ := tbl.Column("shot_made_flag")
	assert.True(t, math.IsNaN(flag.Floats[2]))

	playoffs, _ := tbl.Column("playoffs")
	assert.Equal(t, []float64{0, 1, 0}, playoffs.Floats)
}
