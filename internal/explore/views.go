// Package explore computes the data behind the exploratory views: shot
// locations, action type counts and per-period timing histograms.
package explore

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"shotclassifier/internal/data"
	"shotclassifier/internal/shots"
)

const (
	// HistogramBins matches the resolution of the period timing charts.
	HistogramBins = 100
	// PeriodMinutes is the length of a regulation period.
	PeriodMinutes = 12.0
)

// Count is one entry of a value count.
type Count struct {
	Value string
	Count int
}

// ActionCounts counts shot attempts per action type, most frequent first and
// ties broken by name.
func ActionCounts(t *data.Table) ([]Count, error) {
	if err := data.NewDataValidator().RequireKind("ActionCounts", t, data.Categorical, shots.ColActionType); err != nil {
		return nil, err
	}
	col, _ := t.Column(shots.ColActionType)

	counts := make(map[string]int)
	for i, v := range col.Strings {
		if col.IsMissing(i) {
			continue
		}
		counts[v]++
	}

	out := make([]Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// Point is one shot on the court. Made is nil for held-out shots.
type Point struct {
	X, Y float64
	Made *bool
}

// ShotLocations returns the court position and outcome of every shot.
func ShotLocations(t *data.Table) ([]Point, error) {
	dv := data.NewDataValidator()
	if err := dv.RequireKind("ShotLocations", t, data.Numeric, shots.ColLocX, shots.ColLocY, shots.Label); err != nil {
		return nil, err
	}
	xs, _ := t.Column(shots.ColLocX)
	ys, _ := t.Column(shots.ColLocY)
	flag, _ := t.Column(shots.Label)

	points := make([]Point, t.Len())
	for i := range points {
		points[i] = Point{X: xs.Floats[i], Y: ys.Floats[i]}
		if !flag.IsMissing(i) {
			made := flag.Floats[i] == 1
			points[i].Made = &made
		}
	}
	return points, nil
}

// Histogram counts values over equal-width bins. Dividers has one more entry
// than Counts; the last bin is closed on the right.
type Histogram struct {
	Period   int
	Dividers []float64
	Counts   []float64
	Total    int
}

// BinWidthSeconds is the width of one bin in seconds.
func (h Histogram) BinWidthSeconds() float64 {
	if len(h.Dividers) < 2 {
		return 0
	}
	return (h.Dividers[1] - h.Dividers[0]) * 60
}

// PeriodHistograms bins period_minutes_remaining for periods 1 through 4.
// Values outside [0, 12] and missing values are left out.
func PeriodHistograms(t *data.Table) ([]Histogram, error) {
	dv := data.NewDataValidator()
	if err := dv.RequireKind("PeriodHistograms", t, data.Numeric, shots.ColPeriod, shots.ColPeriodMinutesRemaining); err != nil {
		return nil, err
	}
	period, _ := t.Column(shots.ColPeriod)
	remaining, _ := t.Column(shots.ColPeriodMinutesRemaining)

	dividers := make([]float64, HistogramBins+1)
	for i := range dividers {
		dividers[i] = PeriodMinutes * float64(i) / HistogramBins
	}
	// stat.Histogram treats the upper divider as exclusive.
	upper := make([]float64, len(dividers))
	copy(upper, dividers)
	upper[HistogramBins] = PeriodMinutes + 1e-9

	out := make([]Histogram, 0, 4)
	for p := 1; p <= 4; p++ {
		var values []float64
		for i := 0; i < t.Len(); i++ {
			if period.Floats[i] != float64(p) || remaining.IsMissing(i) {
				continue
			}
			v := remaining.Floats[i]
			if v < 0 || v > PeriodMinutes {
				continue
			}
			values = append(values, v)
		}
		sort.Float64s(values)
		counts := stat.Histogram(nil, upper, values, nil)
		out = append(out, Histogram{Period: p, Dividers: dividers, Counts: counts, Total: len(values)})
	}
	return out, nil
}

// Distinct lists the distinct non-missing values of a column in order of
// first appearance.
func Distinct(t *data.Table, column string) ([]string, error) {
	if err := data.NewDataValidator().RequireColumns("Distinct", t, column); err != nil {
		return nil, err
	}
	col, _ := t.Column(column)

	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v := col.Format(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Shape is the row and column count of a table.
type Shape struct {
	Rows    int
	Columns int
}

// Summary reports the shape of t.
func Summary(t *data.Table) Shape {
	return Shape{Rows: t.Len(), Columns: t.Width()}
}
