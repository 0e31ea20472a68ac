package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	perrors "shotclassifier/internal/errors"
)

// ParquetReader reads the dataset from a Parquet file.
type ParquetReader struct {
	reader io.Reader
	mem    memory.Allocator
}

func NewParquetReader(r io.Reader) *ParquetReader {
	return &ParquetReader{reader: r, mem: memory.NewGoAllocator()}
}

// Read loads every row group into a Table. Integer, float and boolean columns
// become numeric, string columns categorical; nulls become missing cells.
func (r *ParquetReader) Read(ctx context.Context) (*Table, error) {
	raw, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, perrors.WrapInput("ReadParquet", "reading data", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(raw))
	if err != nil {
		return nil, perrors.WrapInput("ReadParquet", "opening parquet file", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, perrors.WrapInput("ReadParquet", "creating arrow reader", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, perrors.WrapInput("ReadParquet", "reading table", err)
	}
	defer table.Release()

	if table.NumRows() == 0 {
		return nil, perrors.NewInputError("ReadParquet", "", "insufficient data in file")
	}

	schema := table.Schema()
	cols := make([]*Column, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		field := schema.Field(i)
		col, err := convertChunked(field.Name, table.Column(i).Data())
		if err != nil {
			return nil, perrors.WrapInput("ReadParquet", "converting column "+field.Name, err)
		}
		cols = append(cols, col)
	}

	t, err := NewTable(cols...)
	if err != nil {
		return nil, perrors.WrapInput("ReadParquet", "assembling table", err)
	}
	return t, nil
}

func convertChunked(name string, chunked *arrow.Chunked) (*Column, error) {
	switch chunked.DataType().ID() {
	case arrow.STRING:
		values := make([]string, 0, chunked.Len())
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.String)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					values = append(values, "")
					continue
				}
				values = append(values, arr.Value(i))
			}
		}
		return NewCategoricalColumn(name, values), nil
	case arrow.INT64, arrow.INT32, arrow.FLOAT64, arrow.FLOAT32, arrow.BOOL:
		values := make([]float64, 0, chunked.Len())
		for _, chunk := range chunked.Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					values = append(values, math.NaN())
					continue
				}
				values = append(values, numericValue(chunk, i))
			}
		}
		return NewNumericColumn(name, values), nil
	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", chunked.DataType())
	}
}

func numericValue(arr arrow.Array, i int) float64 {
	switch a := arr.(type) {
	case *array.Int64:
		return float64(a.Value(i))
	case *array.Int32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Boolean:
		if a.Value(i) {
			return 1
		}
		return 0
	default:
		f, _ := strconv.ParseFloat(arr.ValueStr(i), 64)
		return f
	}
}
