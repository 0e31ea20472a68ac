package shots

import (
	"fmt"
	"slices"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
)

// SeasonRange is an inclusive range of season identifiers. The zero value
// selects every season.
type SeasonRange struct {
	Start string
	End   string
}

func (r SeasonRange) IsZero() bool { return r.Start == "" && r.End == "" }

func (r SeasonRange) String() string {
	if r.IsZero() {
		return "all seasons"
	}
	return r.Start + " to " + r.End
}

// Seasons lists the distinct seasons in order of first appearance. On a
// cleaned table that order is chronological.
func Seasons(t *data.Table) ([]string, error) {
	if err := data.NewDataValidator().RequireKind("Seasons", t, data.Categorical, ColSeason); err != nil {
		return nil, err
	}
	col, _ := t.Column(ColSeason)

	seen := make(map[string]struct{})
	var seasons []string
	for _, s := range col.Strings {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		seasons = append(seasons, s)
	}
	return seasons, nil
}

// FilterSeasons keeps the rows whose season falls within r, bounds included,
// using the season order reported by Seasons. Row order is preserved.
func FilterSeasons(t *data.Table, r SeasonRange) (*data.Table, error) {
	if r.IsZero() {
		return t, nil
	}
	seasons, err := Seasons(t)
	if err != nil {
		return nil, err
	}

	start := slices.Index(seasons, r.Start)
	if start < 0 {
		return nil, perrors.NewConfigError("FilterSeasons", fmt.Sprintf("unknown season %q", r.Start))
	}
	end := slices.Index(seasons, r.End)
	if end < 0 {
		return nil, perrors.NewConfigError("FilterSeasons", fmt.Sprintf("unknown season %q", r.End))
	}
	if start > end {
		return nil, perrors.NewConfigError("FilterSeasons", fmt.Sprintf("season %s comes after %s", r.Start, r.End))
	}

	selected := make(map[string]struct{}, end-start+1)
	for _, s := range seasons[start : end+1] {
		selected[s] = struct{}{}
	}

	col, _ := t.Column(ColSeason)
	return t.Filter(func(i int) bool {
		_, ok := selected[col.Strings[i]]
		return ok
	}), nil
}
