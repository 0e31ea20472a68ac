// Package preprocessing turns feature tables into numeric matrices: median
// imputation and scaling for numeric columns, ordinal or one-hot encoding for
// categorical ones.
package preprocessing

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
)

// Encoding selects the categorical output layout.
type Encoding int

const (
	Ordinal Encoding = iota
	OneHot
)

func (e Encoding) String() string {
	if e == OneHot {
		return "one-hot"
	}
	return "ordinal"
}

// ErrUnknownCategory is returned when a transform meets a category the
// transformer was not fitted on and the policy is UnknownError.
var ErrUnknownCategory = perrors.NewConfigError("Transform", "unknown category")

// Options configure a ColumnTransformer.
type Options struct {
	Scale    string
	Encoding Encoding
	Unknown  UnknownPolicy
}

// LinearOptions standardizes numeric columns and one-hot encodes categories,
// the layout for linear and distance-based models.
func LinearOptions(policy UnknownPolicy) Options {
	return Options{Scale: ScaleStandard, Encoding: OneHot, Unknown: policy}
}

// TreeOptions leaves numeric columns unscaled and encodes categories as codes.
func TreeOptions(policy UnknownPolicy) Options {
	return Options{Scale: ScaleNone, Encoding: Ordinal, Unknown: policy}
}

// FeatureColumns partitions the columns of t by kind, skipping exclude.
func FeatureColumns(t *data.Table, exclude ...string) (numeric, categorical []string) {
	return t.NamesOfKind(data.Numeric, exclude...), t.NamesOfKind(data.Categorical, exclude...)
}

// ColumnTransformer is fitted once and then replays the same transformation on
// any table with the same columns. The output holds the numeric block, in
// Numeric order, followed by the categorical block, in Categorical order; in
// one-hot mode each categorical contributes one column per fitted category
// in sorted order.
type ColumnTransformer struct {
	Numeric     []string
	Categorical []string
	Options     Options

	imputer  *MedianImputer
	scaler   *Scaler
	encoders []*CategoryEncoder
	fitted   bool
}

func NewColumnTransformer(numeric, categorical []string, options Options) *ColumnTransformer {
	return &ColumnTransformer{
		Numeric:     numeric,
		Categorical: categorical,
		Options:     options,
	}
}

// Fit learns medians, scaling statistics and category codes from t.
func (ct *ColumnTransformer) Fit(t *data.Table) error {
	if len(ct.Numeric)+len(ct.Categorical) == 0 {
		return perrors.NewConfigError("FitTransformer", "no feature columns")
	}
	if t.Len() == 0 {
		return perrors.NewConfigError("FitTransformer", "no rows to fit on")
	}
	numCols, catCols, err := ct.columns("FitTransformer", t)
	if err != nil {
		return err
	}

	ct.imputer = NewMedianImputer()
	if err := ct.imputer.Fit(numCols); err != nil {
		var empty *emptyColumnError
		if errors.As(err, &empty) {
			return &perrors.PipelineError{
				Kind:    perrors.KindConfiguration,
				Op:      "FitTransformer",
				Column:  ct.Numeric[empty.index],
				Message: "column has no values in the fitting rows",
			}
		}
		return perrors.NewConfigError("FitTransformer", err.Error())
	}
	imputed, err := ct.imputer.Transform(numCols)
	if err != nil {
		return perrors.NewConfigError("FitTransformer", err.Error())
	}

	ct.scaler = NewScaler(ct.Options.Scale)
	if err := ct.scaler.Fit(imputed); err != nil {
		return perrors.NewConfigError("FitTransformer", err.Error())
	}

	ct.encoders = make([]*CategoryEncoder, len(catCols))
	for j, col := range catCols {
		ct.encoders[j] = NewCategoryEncoder()
		ct.encoders[j].Fit(col)
	}
	if ct.Width() == 0 {
		return perrors.NewConfigError("FitTransformer", "transformation produces no output columns")
	}

	ct.fitted = true
	return nil
}

// Width returns the number of output columns.
func (ct *ColumnTransformer) Width() int {
	w := len(ct.Numeric)
	for _, enc := range ct.encoders {
		if ct.Options.Encoding == OneHot {
			w += enc.Len()
		} else {
			w++
		}
	}
	return w
}

// FeatureNames names the output columns in order. One-hot columns are named
// "column=category".
func (ct *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, ct.Width())
	names = append(names, ct.Numeric...)
	for j, name := range ct.Categorical {
		if ct.Options.Encoding != OneHot {
			names = append(names, name)
			continue
		}
		for _, category := range ct.encoders[j].IntToClass {
			names = append(names, name+"="+category)
		}
	}
	return names
}

// Transform applies the fitted transformation to t without refitting. A
// table with no rows yields a nil matrix.
func (ct *ColumnTransformer) Transform(t *data.Table) (*mat.Dense, error) {
	if !ct.fitted {
		return nil, perrors.NewConfigError("Transform", "transformer must be fitted before transform")
	}
	numCols, catCols, err := ct.columns("Transform", t)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, nil
	}

	out := mat.NewDense(t.Len(), ct.Width(), nil)
	for j, col := range numCols {
		for i, v := range col {
			out.Set(i, j, ct.scaler.TransformValue(j, ct.imputer.TransformValue(j, v)))
		}
	}

	offset := len(numCols)
	for j, col := range catCols {
		enc := ct.encoders[j]
		codes, err := enc.Transform(col, ct.Options.Unknown)
		if err != nil {
			return nil, &perrors.PipelineError{
				Kind:    perrors.KindConfiguration,
				Op:      ErrUnknownCategory.Op,
				Column:  ct.Categorical[j],
				Message: ErrUnknownCategory.Message,
				Cause:   err,
			}
		}

		if ct.Options.Encoding == OneHot {
			for i, code := range codes {
				if code < enc.Len() {
					out.Set(i, offset+code, 1)
				}
			}
			offset += enc.Len()
			continue
		}
		for i, code := range codes {
			out.Set(i, offset, float64(code))
		}
		offset++
	}
	return out, nil
}

// FitTransform fits on t and transforms it.
func (ct *ColumnTransformer) FitTransform(t *data.Table) (*mat.Dense, error) {
	if err := ct.Fit(t); err != nil {
		return nil, err
	}
	return ct.Transform(t)
}

// UnknownCounts reports, per categorical column, how many non-missing values
// of t were not seen during Fit. Columns with none are omitted.
func (ct *ColumnTransformer) UnknownCounts(t *data.Table) map[string]int {
	counts := make(map[string]int)
	if !ct.fitted {
		return counts
	}
	for j, name := range ct.Categorical {
		col, ok := t.Column(name)
		if !ok || col.Kind != data.Categorical {
			continue
		}
		for _, v := range col.Strings {
			if _, seen := ct.encoders[j].Code(v); !seen && v != "" {
				counts[name]++
			}
		}
	}
	return counts
}

// Categories returns the fitted categories of a categorical column.
func (ct *ColumnTransformer) Categories(column string) ([]string, bool) {
	for j, name := range ct.Categorical {
		if name == column && ct.fitted {
			return ct.encoders[j].IntToClass, true
		}
	}
	return nil, false
}

func (ct *ColumnTransformer) columns(op string, t *data.Table) ([][]float64, [][]string, error) {
	dv := data.NewDataValidator()
	if err := dv.RequireKind(op, t, data.Numeric, ct.Numeric...); err != nil {
		return nil, nil, err
	}
	if err := dv.RequireKind(op, t, data.Categorical, ct.Categorical...); err != nil {
		return nil, nil, err
	}

	numCols := make([][]float64, len(ct.Numeric))
	for j, name := range ct.Numeric {
		col, _ := t.Column(name)
		numCols[j] = col.Floats
	}
	catCols := make([][]string, len(ct.Categorical))
	for j, name := range ct.Categorical {
		col, _ := t.Column(name)
		catCols[j] = col.Strings
	}
	return numCols, catCols, nil
}

func (ct *ColumnTransformer) String() string {
	return fmt.Sprintf("ColumnTransformer(numeric=%d, categorical=%d, scale=%s, encoding=%s, unknown=%s)",
		len(ct.Numeric), len(ct.Categorical), ct.Options.Scale, ct.Options.Encoding, ct.Options.Unknown)
}
