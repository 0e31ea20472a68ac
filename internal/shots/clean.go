package shots

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
)

// dateLayouts are tried in order when parsing game_date.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a game_date cell in any of the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// Clean sorts the raw shots chronologically, derives the date parts and the
// continuous time remaining in the period, and drops the redundant columns.
// The row count is unchanged and raw is left untouched.
func Clean(raw *data.Table) (*data.Table, error) {
	dv := data.NewDataValidator()
	if err := dv.RequireColumns("Clean", raw, DroppedColumns...); err != nil {
		return nil, err
	}
	if err := dv.RequireKind("Clean", raw, data.Categorical, ColGameDate); err != nil {
		return nil, err
	}
	if err := dv.RequireKind("Clean", raw, data.Numeric, ColGameEventID, ColMinutesRemaining, ColSecondsRemaining); err != nil {
		return nil, err
	}

	dates, _ := raw.Column(ColGameDate)
	events, _ := raw.Column(ColGameEventID)

	parsed := make([]time.Time, raw.Len())
	for i, v := range dates.Strings {
		t, err := ParseDate(v)
		if err != nil {
			return nil, &perrors.PipelineError{
				Kind:    perrors.KindInput,
				Op:      "Clean",
				Column:  ColGameDate,
				Message: fmt.Sprintf("row %d", i),
				Cause:   err,
			}
		}
		parsed[i] = t
		if events.IsMissing(i) {
			return nil, perrors.NewInputError("Clean", ColGameEventID, fmt.Sprintf("row %d has no event order key", i))
		}
	}

	order := make([]int, raw.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if !parsed[ia].Equal(parsed[ib]) {
			return parsed[ia].Before(parsed[ib])
		}
		return events.Floats[ia] < events.Floats[ib]
	})

	sorted := raw.Take(order)

	year := make([]float64, len(order))
	month := make([]float64, len(order))
	day := make([]float64, len(order))
	for i, idx := range order {
		y, m, d := parsed[idx].Date()
		year[i], month[i], day[i] = float64(y), float64(m), float64(d)
	}

	minutes, _ := sorted.Column(ColMinutesRemaining)
	seconds, _ := sorted.Column(ColSecondsRemaining)
	remaining := make([]float64, len(order))
	for i := range remaining {
		remaining[i] = PeriodMinutesRemaining(minutes.Floats[i], seconds.Floats[i])
	}

	out := sorted.Drop(DroppedColumns...)
	derived := []*data.Column{
		data.NewNumericColumn(ColYear, year),
		data.NewNumericColumn(ColMonth, month),
		data.NewNumericColumn(ColDay, day),
		data.NewNumericColumn(ColPeriodMinutesRemaining, remaining),
	}
	for _, c := range derived {
		var err error
		if out, err = out.WithColumn(c); err != nil {
			return nil, perrors.WrapInput("Clean", "adding derived column", err)
		}
	}
	return out, nil
}

// PeriodMinutesRemaining combines whole minutes and seconds into minutes.
// A missing part yields NaN, which the imputer fills later.
func PeriodMinutesRemaining(minutes, seconds float64) float64 {
	if math.IsNaN(minutes) || math.IsNaN(seconds) {
		return math.NaN()
	}
	return minutes + seconds/60
}
