package usecase

import (
	"context"
	"time"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
)

// EventQuery narrows a match listing against the data provider. Zero fields
// are omitted.
type EventQuery struct {
	MatchID  string
	LeagueID string
	TeamID   string
	From     time.Time
	To       time.Time
}

// FootballDataProvider is the upstream football data source.
type FootballDataProvider interface {
	FetchLeagues(ctx context.Context) ([]league.League, error)
	FetchTeams(ctx context.Context, leagueID string) ([]league.Team, error)
	FetchEvents(ctx context.Context, query EventQuery) ([]match.Match, error)
	FetchMatchByID(ctx context.Context, matchID string) (match.Match, bool, error)
}
