package data

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	perrors "shotclassifier/internal/errors"
)

// CSVOptions configures delimited-text parsing.
type CSVOptions struct {
	Delimiter        rune
	Comment          rune
	TrimLeadingSpace bool
}

// DefaultCSVOptions returns comma-separated options.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ','}
}

// CSVReader reads a header-led delimited table and infers column kinds.
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
}

func NewCSVReader(r io.Reader, options CSVOptions) *CSVReader {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	return &CSVReader{reader: r, options: options}
}

// Read parses the whole input. Ragged rows and header-only input are input errors.
func (cr *CSVReader) Read() (*Table, error) {
	reader := csv.NewReader(cr.reader)
	reader.Comma = cr.options.Delimiter
	reader.Comment = cr.options.Comment
	reader.TrimLeadingSpace = cr.options.TrimLeadingSpace

	records, err := reader.ReadAll()
	if err != nil {
		return nil, perrors.WrapInput("ReadCSV", "reading delimited text", err)
	}

	if len(records) < 2 {
		return nil, perrors.NewInputError("ReadCSV", "", "insufficient data in file")
	}

	headers := records[0]
	data := records[1:]

	columns := make([][]string, len(headers))
	for j := range headers {
		columns[j] = make([]string, len(data))
	}
	for i, record := range data {
		for j, val := range record {
			columns[j][i] = strings.TrimSpace(val)
		}
	}

	cols := make([]*Column, len(headers))
	for j, header := range headers {
		cols[j] = columnFromStrings(strings.TrimSpace(header), columns[j])
	}

	t, err := NewTable(cols...)
	if err != nil {
		return nil, perrors.WrapInput("ReadCSV", "assembling table", err)
	}
	return t, nil
}

// columnFromStrings infers a numeric column when every non-empty cell parses as a number.
func columnFromStrings(name string, values []string) *Column {
	floats := make([]float64, len(values))
	numeric := true
	for i, v := range values {
		if v == "" {
			floats[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = f
	}
	if numeric {
		return NewNumericColumn(name, floats)
	}
	return NewCategoricalColumn(name, values)
}
