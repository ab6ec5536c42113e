package league

import (
	"context"

	"github.com/pitchdata/footystats/internal/domain/match"
)

// Repository persists league documents. Upsert replaces only the embedded
// team array when the league key already exists; the targeted update methods
// rewrite a single team element without touching its siblings.
type Repository interface {
	List(ctx context.Context) ([]League, error)
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
	GetByKey(ctx context.Context, leagueKey string) (League, bool, error)
	// FindByTeamKey scans leagues in insertion order and returns the first
	// league embedding the team. Team keys are only unique per league, so
	// prefer GetByID when a league id is at hand.
	FindByTeamKey(ctx context.Context, teamKey string) (League, bool, error)
	Upsert(ctx context.Context, item League) error
	UpdateTeamMatches(ctx context.Context, leagueID, teamKey string, side match.Side, refs []MatchRef) error
	UpdateTeamStatistics(ctx context.Context, leagueID, teamKey string, side match.Side, stats TeamStatistics) error
}
