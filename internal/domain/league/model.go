package league

import (
	"github.com/pitchdata/footystats/internal/domain/match"
)

// MaxTrailingMatches caps the per-side trailing match list on a team.
const MaxTrailingMatches = 5

// League is a competition document owning an embedded team array. LeagueKey
// is the unique document key; LeagueID is the provider identifier used by
// match payloads.
type League struct {
	LeagueKey    string `json:"league_key"`
	LeagueID     string `json:"league_id"`
	LeagueName   string `json:"league_name"`
	CountryID    string `json:"country_id,omitempty"`
	CountryName  string `json:"country_name,omitempty"`
	LeagueSeason string `json:"league_season,omitempty"`
	LeagueLogo   string `json:"league_logo,omitempty"`
	CountryLogo  string `json:"country_logo,omitempty"`
	Teams        []Team `json:"league_teams"`
}

// Team is embedded in a League. TeamKey is unique within its league, not
// globally. Venue, coach and player payloads are carried opaquely.
type Team struct {
	TeamKey     string           `json:"team_key"`
	TeamName    string           `json:"team_name"`
	TeamBadge   string           `json:"team_badge,omitempty"`
	TeamCountry string           `json:"team_country,omitempty"`
	TeamFounded string           `json:"team_founded,omitempty"`
	Venue       map[string]any   `json:"venue,omitempty"`
	Coaches     []map[string]any `json:"coaches,omitempty"`
	Players     []map[string]any `json:"players,omitempty"`

	HomeStatistic TeamStatistics `json:"home_statistic"`
	AwayStatistic TeamStatistics `json:"away_statistic"`

	LastFiveHomeMatches []MatchRef `json:"last_5_home_matches"`
	LastFiveAwayMatches []MatchRef `json:"last_5_away_matches"`
}

// MatchRef points at a match document in the past store.
type MatchRef struct {
	MatchID string `json:"match_id"`
}

// TeamStatistics summarizes a team's trailing matches from one side.
// Percentages are 0-100 with two decimals; average fields are two-decimal
// strings matching the stored document format.
type TeamStatistics struct {
	WinPercentage          float64            `json:"win_percentage"`
	DrawPercentage         float64            `json:"draw_percentage"`
	LossPercentage         float64            `json:"loss_percentage"`
	AvgGoalsFirstHalf      string             `json:"avg_goals_first_half"`
	AvgGoalsFullMatch      string             `json:"avg_goals_full_match"`
	GoalIntervals          GoalIntervals      `json:"goal_intervals"`
	CardsStatistic         CardsStatistic     `json:"cards_statistic"`
	AvgStatistics          map[string]float64 `json:"avg_statistics,omitempty"`
	AvgFirstHalfStatistics map[string]float64 `json:"avg_first_half_statistics,omitempty"`
}

// GoalIntervals buckets attributable goals by match minute.
type GoalIntervals struct {
	Min0To15  int `json:"0-15"`
	Min16To30 int `json:"16-30"`
	Min31To45 int `json:"31-45"`
	Min46To60 int `json:"46-60"`
	Min61To75 int `json:"61-75"`
	Min76To90 int `json:"76-90"`
}

// Sum returns the total of all buckets.
func (g GoalIntervals) Sum() int {
	return g.Min0To15 + g.Min16To30 + g.Min31To45 + g.Min46To60 + g.Min61To75 + g.Min76To90
}

// CardsStatistic carries per-match card averages as two-decimal strings,
// split by half and for the full match.
type CardsStatistic struct {
	FirstHalf  FirstHalfCards  `json:"first_half"`
	SecondHalf SecondHalfCards `json:"second_half"`
	FullMatch  FullMatchCards  `json:"full_match"`
}

type FirstHalfCards struct {
	Yellow string `json:"yellow_card_first_half"`
	Red    string `json:"red_card_first_half"`
}

type SecondHalfCards struct {
	Yellow string `json:"yellow_card_second_half"`
	Red    string `json:"red_card_second_half"`
}

type FullMatchCards struct {
	Yellow string `json:"yellow_card_full_match"`
	Red    string `json:"red_card_full_match"`
}

// FindTeam returns the embedded team with the given key.
func (l League) FindTeam(teamKey string) (Team, bool) {
	for _, team := range l.Teams {
		if team.TeamKey == teamKey {
			return team, true
		}
	}
	return Team{}, false
}

// TrailingMatches returns the team's trailing refs for the given side,
// oldest first.
func (t Team) TrailingMatches(side match.Side) []MatchRef {
	if side == match.SideHome {
		return t.LastFiveHomeMatches
	}
	return t.LastFiveAwayMatches
}

// SetTrailingMatches replaces the team's trailing refs for the given side.
func (t *Team) SetTrailingMatches(side match.Side, refs []MatchRef) {
	if side == match.SideHome {
		t.LastFiveHomeMatches = refs
		return
	}
	t.LastFiveAwayMatches = refs
}

// Statistic returns the team's statistics block for the given side.
func (t Team) Statistic(side match.Side) TeamStatistics {
	if side == match.SideHome {
		return t.HomeStatistic
	}
	return t.AwayStatistic
}

// SetStatistic replaces the team's statistics block for the given side.
func (t *Team) SetStatistic(side match.Side, stats TeamStatistics) {
	if side == match.SideHome {
		t.HomeStatistic = stats
		return
	}
	t.AwayStatistic = stats
}

// ContainsRef reports whether refs already holds the given match id.
func ContainsRef(refs []MatchRef, matchID string) bool {
	for _, ref := range refs {
		if ref.MatchID == matchID {
			return true
		}
	}
	return false
}

// AppendMatchRef appends a ref and evicts the oldest entries beyond
// MaxTrailingMatches. Appending an already-present ref is a no-op, so
// recovery after a partial run cannot double-count a match.
func AppendMatchRef(refs []MatchRef, matchID string) []MatchRef {
	if ContainsRef(refs, matchID) {
		return refs
	}

	out := append(append([]MatchRef(nil), refs...), MatchRef{MatchID: matchID})
	return TrimRefs(out)
}

// TrimRefs drops the oldest refs until at most MaxTrailingMatches remain.
func TrimRefs(refs []MatchRef) []MatchRef {
	if len(refs) <= MaxTrailingMatches {
		return refs
	}
	return append([]MatchRef(nil), refs[len(refs)-MaxTrailingMatches:]...)
}
