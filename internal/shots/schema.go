// Package shots holds the shot-record schema and the cleaning and splitting
// stages that turn the raw dataset into labeled and unlabeled feature tables.
package shots

// Raw dataset columns.
const (
	ColActionType       = "action_type"
	ColCombinedShotType = "combined_shot_type"
	ColGameEventID      = "game_event_id"
	ColGameID           = "game_id"
	ColLat              = "lat"
	ColLocX             = "loc_x"
	ColLocY             = "loc_y"
	ColLon              = "lon"
	ColMinutesRemaining = "minutes_remaining"
	ColPeriod           = "period"
	ColPlayoffs         = "playoffs"
	ColSeason           = "season"
	ColSecondsRemaining = "seconds_remaining"
	ColShotDistance     = "shot_distance"
	ColShotMadeFlag     = "shot_made_flag"
	ColShotType         = "shot_type"
	ColShotZoneArea     = "shot_zone_area"
	ColShotZoneBasic    = "shot_zone_basic"
	ColShotZoneRange    = "shot_zone_range"
	ColTeamID           = "team_id"
	ColTeamName         = "team_name"
	ColGameDate         = "game_date"
	ColMatchup          = "matchup"
	ColOpponent         = "opponent"
	ColShotID           = "shot_id"
)

// Columns derived by Clean.
const (
	ColYear                   = "year"
	ColMonth                  = "month"
	ColDay                    = "day"
	ColPeriodMinutesRemaining = "period_minutes_remaining"
)

// DroppedColumns are removed by Clean: the constant team fields, matchup
// (duplicates opponent), lat/lon (linear in loc_y/loc_x) and the row keys.
var DroppedColumns = []string{
	ColTeamID, ColTeamName, ColMatchup, ColGameDate, ColLat, ColLon, ColShotID, ColGameEventID,
}

// DerivedColumns are appended by Clean, in order.
var DerivedColumns = []string{ColYear, ColMonth, ColDay, ColPeriodMinutesRemaining}

// Label is the outcome column; it is null for the held-out rows.
const Label = ColShotMadeFlag
