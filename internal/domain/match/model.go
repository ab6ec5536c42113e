package match

import (
	"strings"
	"time"
)

// Side is the perspective a team played a match from.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

const (
	StatusFinished   = "Finished"
	StatusNotStarted = "Not Started"
)

// Match is a provider-shaped match document keyed by MatchID. Field names
// follow the upstream payload so the document round-trips through storage
// without translation.
type Match struct {
	MatchID     string `json:"match_id"`
	CountryID   string `json:"country_id,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	LeagueID    string `json:"league_id"`
	LeagueName  string `json:"league_name,omitempty"`
	MatchDate   string `json:"match_date"`
	MatchTime   string `json:"match_time,omitempty"`
	Status      string `json:"match_status"`

	HomeTeamID   string `json:"match_hometeam_id"`
	HomeTeamName string `json:"match_hometeam_name,omitempty"`
	AwayTeamID   string `json:"match_awayteam_id"`
	AwayTeamName string `json:"match_awayteam_name,omitempty"`

	HomeTeamScore         string `json:"match_hometeam_score,omitempty"`
	AwayTeamScore         string `json:"match_awayteam_score,omitempty"`
	HomeTeamHalftimeScore string `json:"match_hometeam_halftime_score,omitempty"`
	AwayTeamHalftimeScore string `json:"match_awayteam_halftime_score,omitempty"`
	HomeTeamFullTimeScore string `json:"match_hometeam_ft_score,omitempty"`
	AwayTeamFullTimeScore string `json:"match_awayteam_ft_score,omitempty"`
	HomeTeamExtraScore    string `json:"match_hometeam_extra_score,omitempty"`
	AwayTeamExtraScore    string `json:"match_awayteam_extra_score,omitempty"`
	HomeTeamPenaltyScore  string `json:"match_hometeam_penalty_score,omitempty"`
	AwayTeamPenaltyScore  string `json:"match_awayteam_penalty_score,omitempty"`
	HomeTeamSystem        string `json:"match_hometeam_system,omitempty"`
	AwayTeamSystem        string `json:"match_awayteam_system,omitempty"`

	Live        string `json:"match_live,omitempty"`
	Round       string `json:"match_round,omitempty"`
	Stadium     string `json:"match_stadium,omitempty"`
	Referee     string `json:"match_referee,omitempty"`
	HomeBadge   string `json:"team_home_badge,omitempty"`
	AwayBadge   string `json:"team_away_badge,omitempty"`
	LeagueLogo  string `json:"league_logo,omitempty"`
	CountryLogo string `json:"country_logo,omitempty"`
	LeagueYear  string `json:"league_year,omitempty"`
	StageKey    string `json:"fk_stage_key,omitempty"`
	StageName   string `json:"stage_name,omitempty"`

	Goalscorers []GoalEvent `json:"goalscorer,omitempty"`
	Cards       []CardEvent `json:"cards,omitempty"`

	// Lineups and substitutions are carried opaquely; nothing downstream
	// interprets them.
	Substitutions map[string]any `json:"substitutions,omitempty"`
	Lineup        map[string]any `json:"lineup,omitempty"`

	Statistics          []StatLine `json:"statistics,omitempty"`
	FirstHalfStatistics []StatLine `json:"statistics_1half,omitempty"`
}

// GoalEvent is a single scoring event. Scorer-id presence decides which side
// the goal is attributed to.
type GoalEvent struct {
	Time          string `json:"time"`
	HomeScorer    string `json:"home_scorer,omitempty"`
	HomeScorerID  string `json:"home_scorer_id,omitempty"`
	HomeAssist    string `json:"home_assist,omitempty"`
	HomeAssistID  string `json:"home_assist_id,omitempty"`
	Score         string `json:"score,omitempty"`
	AwayScorer    string `json:"away_scorer,omitempty"`
	AwayScorerID  string `json:"away_scorer_id,omitempty"`
	AwayAssist    string `json:"away_assist,omitempty"`
	AwayAssistID  string `json:"away_assist_id,omitempty"`
	Info          string `json:"info,omitempty"`
	ScoreInfoTime string `json:"score_info_time,omitempty"`
}

// CardEvent is a booking. The fault fields name the punished player and carry
// side attribution by presence.
type CardEvent struct {
	Time          string `json:"time"`
	HomeFault     string `json:"home_fault,omitempty"`
	Card          string `json:"card"`
	AwayFault     string `json:"away_fault,omitempty"`
	Info          string `json:"info,omitempty"`
	HomePlayerID  string `json:"home_player_id,omitempty"`
	AwayPlayerID  string `json:"away_player_id,omitempty"`
	ScoreInfoTime string `json:"score_info_time,omitempty"`
}

// StatLine is one per-type statistic row with string-encoded values for both
// sides, as the provider emits it.
type StatLine struct {
	Type string `json:"type"`
	Home string `json:"home"`
	Away string `json:"away"`
}

// Kickoff parses the provider date and time fields. The second return is
// false when the date cannot be parsed; such matches are never considered due.
func (m Match) Kickoff() (time.Time, bool) {
	date := strings.TrimSpace(m.MatchDate)
	if date == "" {
		return time.Time{}, false
	}

	if clock := strings.TrimSpace(m.MatchTime); clock != "" {
		if at, err := time.Parse("2006-01-02 15:04", date+" "+clock); err == nil {
			return at.UTC(), true
		}
	}

	at, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	return at.UTC(), true
}

func (m Match) IsFinished() bool {
	return strings.EqualFold(strings.TrimSpace(m.Status), StatusFinished)
}

func (m Match) IsNotStarted() bool {
	return strings.EqualFold(strings.TrimSpace(m.Status), StatusNotStarted)
}

// TeamSide reports the side the given team played from, if it took part.
func (m Match) TeamSide(teamKey string) (Side, bool) {
	switch teamKey {
	case "":
		return "", false
	case m.HomeTeamID:
		return SideHome, true
	case m.AwayTeamID:
		return SideAway, true
	default:
		return "", false
	}
}
