package memory

import (
	"context"
	"sync"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
)

// LeagueRepository keeps league documents in process memory, preserving
// insertion order so FindByTeamKey scans deterministically.
type LeagueRepository struct {
	mu      sync.RWMutex
	byKey   map[string]league.League
	ordered []string
}

func NewLeagueRepository() *LeagueRepository {
	return &LeagueRepository{byKey: make(map[string]league.League)}
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.ordered))
	for _, key := range r.ordered {
		out = append(out, r.byKey[key])
	}
	return out, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.ordered {
		if item := r.byKey[key]; item.LeagueID == leagueID {
			return item, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) GetByKey(_ context.Context, leagueKey string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byKey[leagueKey]
	return item, ok, nil
}

func (r *LeagueRepository) FindByTeamKey(_ context.Context, teamKey string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.ordered {
		item := r.byKey[key]
		if _, ok := item.FindTeam(teamKey); ok {
			return item, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) Upsert(_ context.Context, item league.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[item.LeagueKey]; ok {
		existing.Teams = item.Teams
		r.byKey[item.LeagueKey] = existing
		return nil
	}

	r.byKey[item.LeagueKey] = item
	r.ordered = append(r.ordered, item.LeagueKey)
	return nil
}

func (r *LeagueRepository) UpdateTeamMatches(_ context.Context, leagueID, teamKey string, side match.Side, refs []league.MatchRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mutateTeam(leagueID, teamKey, func(team *league.Team) {
		team.SetTrailingMatches(side, append([]league.MatchRef(nil), refs...))
	})
}

func (r *LeagueRepository) UpdateTeamStatistics(_ context.Context, leagueID, teamKey string, side match.Side, stats league.TeamStatistics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mutateTeam(leagueID, teamKey, func(team *league.Team) {
		team.SetStatistic(side, stats)
	})
}

func (r *LeagueRepository) mutateTeam(leagueID, teamKey string, mutate func(*league.Team)) error {
	for _, key := range r.ordered {
		item := r.byKey[key]
		if item.LeagueID != leagueID {
			continue
		}
		for i := range item.Teams {
			if item.Teams[i].TeamKey == teamKey {
				mutate(&item.Teams[i])
			}
		}
		r.byKey[key] = item
		return nil
	}
	return nil
}
