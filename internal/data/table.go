package data

import (
	"fmt"
	"math"
	"slices"
)

// Kind is the semantic class of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column holds one typed column. Numeric columns mark missing cells with NaN,
// categorical columns with the empty string.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// NewNumericColumn builds a numeric column. The slice is owned by the column.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: values}
}

// NewCategoricalColumn builds a categorical column. The slice is owned by the column.
func NewCategoricalColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Categorical, Strings: values}
}

func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// Format renders row i for display.
func (c *Column) Format(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.Kind == Numeric {
		return fmt.Sprintf("%g", c.Floats[i])
	}
	return c.Strings[i]
}

func (c *Column) take(indices []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = make([]float64, len(indices))
		for i, idx := range indices {
			out.Floats[i] = c.Floats[idx]
		}
		return out
	}
	out.Strings = make([]string, len(indices))
	for i, idx := range indices {
		out.Strings[i] = c.Strings[idx]
	}
	return out
}

// Table is an immutable column-oriented table. Every operation returns a new
// Table; columns shared between tables are never written after construction.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable assembles columns of equal length into a table.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NamesOfKind lists the columns of the given kind in table order, skipping excluded names.
func (t *Table) NamesOfKind(kind Kind, exclude ...string) []string {
	var names []string
	for _, c := range t.columns {
		if c.Kind == kind && !slices.Contains(exclude, c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Take returns the rows at indices, in the given order.
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.take(indices)
	}
	out, _ := NewTable(cols...)
	if len(cols) == 0 {
		out.rows = len(indices)
	}
	return out
}

// Filter returns the rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	indices := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return t.Take(indices)
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	cols := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !slices.Contains(names, c.Name) {
			cols = append(cols, c)
		}
	}
	out, _ := NewTable(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// WithColumn returns a table with c appended, or replacing a column of the same name.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c.Len() != t.rows && len(t.columns) > 0 {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
	}
	cols := slices.Clone(t.columns)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// Head returns the first n rows formatted for display.
func (t *Table) Head(n int) [][]string {
	n = min(n, t.rows)
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.columns))
		for j, c := range t.columns {
			row[j] = c.Format(i)
		}
		out[i] = row
	}
	return out
}
