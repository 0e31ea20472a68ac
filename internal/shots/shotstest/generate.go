// Package shotstest builds synthetic raw shot tables for tests.
package shotstest

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"shotclassifier/internal/data"
	"shotclassifier/internal/shots"
)

var (
	actions   = []string{"Jump Shot", "Layup Shot", "Dunk Shot", "Driving Layup Shot", "Fadeaway Jump Shot"}
	combined  = []string{"Jump Shot", "Layup", "Dunk", "Layup", "Jump Shot"}
	opponents = []string{"POR", "UTA", "SAS", "HOU", "BOS", "PHX"}
	areas     = []string{"Center(C)", "Left Side(L)", "Right Side(R)", "Left Side Center(LC)", "Right Side Center(RC)"}
)

// Options shape the generated table.
type Options struct {
	Rows int
	// Seasons is the number of seasons, starting at 2000-01.
	Seasons int
	// UnlabeledEvery leaves every n-th row without an outcome; 0 labels all rows.
	UnlabeledEvery int
	Seed           int64
}

// DefaultOptions returns a small table with a held-out subset.
func DefaultOptions() Options {
	return Options{Rows: 200, Seasons: 4, UnlabeledEvery: 7, Seed: 1}
}

// Season returns the identifier of the i-th generated season.
func Season(i int) string {
	return fmt.Sprintf("%d-%02d", 2000+i, (i+1)%100)
}

// Generate builds a raw table with every column of the shot dataset, rows in
// random order. Short shots are made more often than long ones so simple
// models can beat the base rate.
func Generate(opts Options) *data.Table {
	rng := rand.New(rand.NewSource(opts.Seed))
	n := opts.Rows
	seasons := max(opts.Seasons, 1)

	num := func() []float64 { return make([]float64, n) }
	str := func() []string { return make([]string, n) }

	actionType, combinedType, season, shotType := str(), str(), str(), str()
	zoneArea, zoneBasic, zoneRange := str(), str(), str()
	teamName, gameDate, matchup, opponent := str(), str(), str(), str()
	eventID, gameID, lat, locX, locY, lon := num(), num(), num(), num(), num(), num()
	minutes, period, playoffs, seconds, distance, flag := num(), num(), num(), num(), num(), num()
	teamID, shotID := num(), num()

	for i := 0; i < n; i++ {
		s := rng.Intn(seasons)
		start := time.Date(2000+s, time.November, 1, 0, 0, 0, 0, time.UTC)
		date := start.AddDate(0, 0, rng.Intn(150))

		a := rng.Intn(len(actions))
		opp := opponents[rng.Intn(len(opponents))]
		x := float64(rng.Intn(500) - 250)
		y := float64(rng.Intn(470) - 50)
		dist := math.Round(math.Hypot(x, y) / 10)

		actionType[i] = actions[a]
		combinedType[i] = combined[a]
		season[i] = Season(s)
		gameDate[i] = date.Format("2006-01-02")
		eventID[i] = float64(rng.Intn(600))
		gameID[i] = float64(20000000 + s*1000 + date.YearDay())
		locX[i], locY[i] = x, y
		lat[i] = 34.0443 - y/1000
		lon[i] = -118.2698 + x/1000
		minutes[i] = float64(rng.Intn(12))
		seconds[i] = float64(rng.Intn(60))
		period[i] = float64(1 + rng.Intn(4))
		if rng.Intn(10) == 0 {
			playoffs[i] = 1
		}
		distance[i] = dist
		if dist >= 24 {
			shotType[i] = "3PT Field Goal"
		} else {
			shotType[i] = "2PT Field Goal"
		}
		zoneArea[i] = areas[rng.Intn(len(areas))]
		zoneBasic[i] = zoneFor(dist)
		zoneRange[i] = rangeFor(dist)
		teamID[i] = 1610612747
		teamName[i] = "Los Angeles Lakers"
		matchup[i] = "LAL vs. " + opp
		opponent[i] = opp
		shotID[i] = float64(i + 1)

		if opts.UnlabeledEvery > 0 && (i+1)%opts.UnlabeledEvery == 0 {
			flag[i] = math.NaN()
			continue
		}
		p := 0.75 - dist/60
		if rng.Float64() < p {
			flag[i] = 1
		}
	}

	t, err := data.NewTable(
		data.NewCategoricalColumn(shots.ColActionType, actionType),
		data.NewCategoricalColumn(shots.ColCombinedShotType, combinedType),
		data.NewNumericColumn(shots.ColGameEventID, eventID),
		data.NewNumericColumn(shots.ColGameID, gameID),
		data.NewNumericColumn(shots.ColLat, lat),
		data.NewNumericColumn(shots.ColLocX, locX),
		data.NewNumericColumn(shots.ColLocY, locY),
		data.NewNumericColumn(shots.ColLon, lon),
		data.NewNumericColumn(shots.ColMinutesRemaining, minutes),
		data.NewNumericColumn(shots.ColPeriod, period),
		data.NewNumericColumn(shots.ColPlayoffs, playoffs),
		data.NewCategoricalColumn(shots.ColSeason, season),
		data.NewNumericColumn(shots.ColSecondsRemaining, seconds),
		data.NewNumericColumn(shots.ColShotDistance, distance),
		data.NewNumericColumn(shots.ColShotMadeFlag, flag),
		data.NewCategoricalColumn(shots.ColShotType, shotType),
		data.NewCategoricalColumn(shots.ColShotZoneArea, zoneArea),
		data.NewCategoricalColumn(shots.ColShotZoneBasic, zoneBasic),
		data.NewCategoricalColumn(shots.ColShotZoneRange, zoneRange),
		data.NewNumericColumn(shots.ColTeamID, teamID),
		data.NewCategoricalColumn(shots.ColTeamName, teamName),
		data.NewCategoricalColumn(shots.ColGameDate, gameDate),
		data.NewCategoricalColumn(shots.ColMatchup, matchup),
		data.NewCategoricalColumn(shots.ColOpponent, opponent),
		data.NewNumericColumn(shots.ColShotID, shotID),
	)
	if err != nil {
		panic(err)
	}
	return t
}

func zoneFor(dist float64) string {
	switch {
	case dist < 8:
		return "Restricted Area"
	case dist < 16:
		return "In The Paint (Non-RA)"
	case dist < 24:
		return "Mid-Range"
	default:
		return "Above the Break 3"
	}
}

func rangeFor(dist float64) string {
	switch {
	case dist < 8:
		return "Less Than 8 ft."
	case dist < 16:
		return "8-16 ft."
	case dist < 24:
		return "16-24 ft."
	default:
		return "24+ ft."
	}
}

// WriteCSV writes t to path as comma separated text with a header row.
func WriteCSV(path string, t *data.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns()); err != nil {
		return err
	}
	for _, row := range t.Head(t.Len()) {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
