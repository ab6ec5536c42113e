package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/infrastructure/repository/memory"
	"github.com/pitchdata/footystats/internal/platform/logging"
)

func newIngestionFixture(t *testing.T, provider *stubProvider, cfg IngestionConfig) (*IngestionService, *memory.MatchRepository, *memory.LeagueRepository) {
	t.Helper()

	matches := memory.NewMatchRepository()
	leagues := memory.NewLeagueRepository()
	stats := NewStatsService(matches, logging.NewNop())
	svc := NewIngestionService(provider, matches, leagues, stats, cfg, nil, logging.NewNop())
	return svc, matches, leagues
}

func TestIngestionRunFiltersAllowlist(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{events: []match.Match{
		{MatchID: "m1", LeagueID: "3"},
		{MatchID: "m2", LeagueID: "999"},
	}}
	svc, matches, _ := newIngestionFixture(t, provider, IngestionConfig{AllowedLeagueIDs: []string{"3"}})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if matches.PastCount() != 1 {
		t.Fatalf("expected one allow-listed past match, got %d", matches.PastCount())
	}
	if _, found, _ := matches.GetPast(context.Background(), "m2"); found {
		t.Fatal("expected league 999 match to be filtered out")
	}
}

func TestIngestionRunSeedsLeagueTeams(t *testing.T) {
	t.Parallel()

	events := make([]match.Match, 0, 7)
	for i := 1; i <= 7; i++ {
		events = append(events, match.Match{
			MatchID:               fmt.Sprintf("m%d", i),
			LeagueID:              "3",
			HomeTeamID:            "10",
			AwayTeamID:            "20",
			HomeTeamFullTimeScore: "2",
			AwayTeamFullTimeScore: "0",
		})
	}
	provider := &stubProvider{
		leagues: []league.League{
			{LeagueID: "3", LeagueName: "Serie A"},
			{LeagueID: "999", LeagueName: "Elsewhere"},
		},
		teams:  map[string][]league.Team{"3": {{TeamKey: "10", TeamName: "Napoli"}}},
		events: events,
	}
	svc, _, leagues := newIngestionFixture(t, provider, IngestionConfig{AllowedLeagueIDs: []string{"3"}})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, found, _ := leagues.GetByKey(context.Background(), "999"); found {
		t.Fatal("expected non-allow-listed league to be skipped")
	}

	doc, found, err := leagues.GetByKey(context.Background(), "3")
	if err != nil || !found {
		t.Fatalf("expected league 3 stored, found=%v err=%v", found, err)
	}
	team, ok := doc.FindTeam("10")
	if !ok {
		t.Fatalf("expected team 10 in league doc: %+v", doc)
	}

	refs := team.LastFiveHomeMatches
	if len(refs) != league.MaxTrailingMatches {
		t.Fatalf("expected trailing list capped at %d, got %d", league.MaxTrailingMatches, len(refs))
	}
	if refs[0].MatchID != "m2" || refs[4].MatchID != "m6" {
		t.Fatalf("expected refs m2..m6, got %+v", refs)
	}
	if team.HomeStatistic.WinPercentage != 100 {
		t.Fatalf("expected seeded win percentage 100, got %v", team.HomeStatistic.WinPercentage)
	}
	if len(team.LastFiveAwayMatches) != 0 {
		t.Fatalf("expected no away refs, got %+v", team.LastFiveAwayMatches)
	}
}

func TestIngestionRunReplacesTeamsOnExistingLeague(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		leagues: []league.League{{LeagueID: "3"}},
		teams:   map[string][]league.Team{"3": {{TeamKey: "10"}}},
	}
	svc, _, leagues := newIngestionFixture(t, provider, IngestionConfig{AllowedLeagueIDs: []string{"3"}})

	existing := league.League{
		LeagueKey:  "3",
		LeagueID:   "3",
		LeagueName: "Serie A",
		Teams:      []league.Team{{TeamKey: "99"}},
	}
	if err := leagues.Upsert(context.Background(), existing); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc, _, _ := leagues.GetByKey(context.Background(), "3")
	if doc.LeagueName != "Serie A" {
		t.Fatalf("expected existing league fields preserved, got %+v", doc)
	}
	if len(doc.Teams) != 1 || doc.Teams[0].TeamKey != "10" {
		t.Fatalf("expected team array replaced, got %+v", doc.Teams)
	}
}

func TestIngestionRunIsIdempotent(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{events: []match.Match{
		{MatchID: "m1", LeagueID: "3", Status: match.StatusFinished},
		{MatchID: "m2", LeagueID: "3"},
	}}
	svc, matches, _ := newIngestionFixture(t, provider, IngestionConfig{AllowedLeagueIDs: []string{"3"}})

	for i := 0; i < 2; i++ {
		if err := svc.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i+1, err)
		}
	}

	if matches.PastCount() != 2 {
		t.Fatalf("expected re-ingestion to keep 2 past matches, got %d", matches.PastCount())
	}
	if matches.FutureCount() != 2 {
		t.Fatalf("expected re-ingestion to keep 2 future matches, got %d", matches.FutureCount())
	}
}

func TestIngestionRunToleratesProviderFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		eventsErr:  errors.New("upstream down"),
		leaguesErr: errors.New("upstream down"),
	}
	svc, matches, leagues := newIngestionFixture(t, provider, IngestionConfig{})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("expected degraded run to succeed, got %v", err)
	}
	if matches.PastCount() != 0 || matches.FutureCount() != 0 {
		t.Fatalf("expected empty stores, past=%d future=%d", matches.PastCount(), matches.FutureCount())
	}
	if stored, _ := leagues.List(context.Background()); len(stored) != 0 {
		t.Fatalf("expected no leagues stored, got %d", len(stored))
	}
}
