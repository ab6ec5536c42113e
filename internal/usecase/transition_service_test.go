package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/infrastructure/repository/memory"
	"github.com/pitchdata/footystats/internal/platform/logging"
)

// stubProvider is shared by the ingestion and transition tests.
type stubProvider struct {
	mu sync.Mutex

	leagues    []league.League
	leaguesErr error

	teams    map[string][]league.Team
	teamsErr error

	events    []match.Match
	eventsErr error

	matches    map[string]match.Match
	matchErrs  map[string]error
	eventCalls []EventQuery
}

func (p *stubProvider) FetchLeagues(context.Context) ([]league.League, error) {
	return p.leagues, p.leaguesErr
}

func (p *stubProvider) FetchTeams(_ context.Context, leagueID string) ([]league.Team, error) {
	if p.teamsErr != nil {
		return nil, p.teamsErr
	}
	return p.teams[leagueID], nil
}

func (p *stubProvider) FetchEvents(_ context.Context, query EventQuery) ([]match.Match, error) {
	p.mu.Lock()
	p.eventCalls = append(p.eventCalls, query)
	p.mu.Unlock()

	if p.eventsErr != nil {
		return nil, p.eventsErr
	}
	return p.events, nil
}

func (p *stubProvider) FetchMatchByID(_ context.Context, matchID string) (match.Match, bool, error) {
	if err := p.matchErrs[matchID]; err != nil {
		return match.Match{}, false, err
	}
	item, ok := p.matches[matchID]
	return item, ok, nil
}

func yesterdayMatch(id, homeTeam, awayTeam string) match.Match {
	return match.Match{
		MatchID:    id,
		LeagueID:   "3",
		MatchDate:  time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
		MatchTime:  "12:00",
		Status:     match.StatusNotStarted,
		HomeTeamID: homeTeam,
		AwayTeamID: awayTeam,
	}
}

func finishedCopy(item match.Match, homeScore, awayScore string) match.Match {
	item.Status = match.StatusFinished
	item.HomeTeamFullTimeScore = homeScore
	item.AwayTeamFullTimeScore = awayScore
	return item
}

func seedLeagueDoc(t *testing.T, repo *memory.LeagueRepository, teamKeys ...string) {
	t.Helper()

	teams := make([]league.Team, 0, len(teamKeys))
	for _, key := range teamKeys {
		teams = append(teams, league.Team{TeamKey: key, TeamName: "team " + key})
	}
	doc := league.League{LeagueKey: "3", LeagueID: "3", LeagueName: "Serie A", Teams: teams}
	if err := repo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func newTransitionFixture(t *testing.T, provider *stubProvider) (*TransitionService, *memory.MatchRepository, *memory.LeagueRepository) {
	t.Helper()

	matches := memory.NewMatchRepository()
	leagues := memory.NewLeagueRepository()
	stats := NewStatsService(matches, logging.NewNop())
	svc := NewTransitionService(provider, matches, leagues, stats, 2, nil, logging.NewNop())
	return svc, matches, leagues
}

func TestTransitionRunMovesFinishedMatch(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m1", "10", "20")
	provider := &stubProvider{matches: map[string]match.Match{
		"m1": finishedCopy(due, "2", "1"),
	}}
	svc, matches, leagues := newTransitionFixture(t, provider)
	seedLeagueDoc(t, leagues, "10", "20")
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Due != 1 || result.Transitioned != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if matches.FutureCount() != 0 || matches.PastCount() != 1 {
		t.Fatalf("expected match moved, future=%d past=%d", matches.FutureCount(), matches.PastCount())
	}

	doc, _, err := leagues.GetByKey(context.Background(), "3")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	home, _ := doc.FindTeam("10")
	if len(home.LastFiveHomeMatches) != 1 || home.LastFiveHomeMatches[0].MatchID != "m1" {
		t.Fatalf("unexpected home trailing list: %+v", home.LastFiveHomeMatches)
	}
	if home.HomeStatistic.WinPercentage != 100 {
		t.Fatalf("expected home win percentage 100, got %v", home.HomeStatistic.WinPercentage)
	}
	away, _ := doc.FindTeam("20")
	if len(away.LastFiveAwayMatches) != 1 || away.AwayStatistic.LossPercentage != 100 {
		t.Fatalf("unexpected away team state: %+v", away.AwayStatistic)
	}
}

func TestTransitionRunKeepsUnfinishedMatch(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m1", "10", "20")
	provider := &stubProvider{matches: map[string]match.Match{"m1": due}}
	svc, matches, leagues := newTransitionFixture(t, provider)
	seedLeagueDoc(t, leagues, "10", "20")
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Retried != 1 || result.Transitioned != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if matches.FutureCount() != 1 {
		t.Fatalf("expected match kept in future store, got %d", matches.FutureCount())
	}
}

func TestTransitionRunIgnoresNotDueMatches(t *testing.T) {
	t.Parallel()

	upcoming := yesterdayMatch("m1", "10", "20")
	upcoming.MatchDate = time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	provider := &stubProvider{}
	svc, matches, _ := newTransitionFixture(t, provider)
	if err := matches.InsertFuture(context.Background(), []match.Match{upcoming}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Due != 0 || matches.FutureCount() != 1 {
		t.Fatalf("expected untouched future match, result=%+v", result)
	}
}

func TestTransitionRunHealsMatchAlreadyInPast(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m1", "10", "20")
	finished := finishedCopy(due, "1", "0")
	provider := &stubProvider{matches: map[string]match.Match{"m1": finished}}
	svc, matches, leagues := newTransitionFixture(t, provider)
	seedLeagueDoc(t, leagues, "10", "20")
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}
	if err := matches.InsertPast(context.Background(), []match.Match{finished}); err != nil {
		t.Fatalf("InsertPast: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Transitioned != 0 {
		t.Fatalf("expected no new transitions, got %+v", result)
	}
	if matches.FutureCount() != 0 || matches.PastCount() != 1 {
		t.Fatalf("expected future copy removed, future=%d past=%d", matches.FutureCount(), matches.PastCount())
	}

	doc, _, _ := leagues.GetByKey(context.Background(), "3")
	home, _ := doc.FindTeam("10")
	if len(home.LastFiveHomeMatches) != 0 {
		t.Fatalf("expected team data untouched, got %+v", home.LastFiveHomeMatches)
	}
}

func TestTransitionRunEvictsOldestRef(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m6", "10", "20")
	provider := &stubProvider{matches: map[string]match.Match{
		"m6": finishedCopy(due, "0", "0"),
	}}
	svc, matches, leagues := newTransitionFixture(t, provider)

	prior := make([]league.MatchRef, 0, 5)
	priorMatches := make([]match.Match, 0, 5)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("m%d", i)
		prior = append(prior, league.MatchRef{MatchID: id})
		priorMatches = append(priorMatches, match.Match{MatchID: id, HomeTeamID: "10", AwayTeamID: "30"})
	}
	if err := matches.InsertPast(context.Background(), priorMatches); err != nil {
		t.Fatalf("InsertPast: %v", err)
	}

	doc := league.League{
		LeagueKey: "3",
		LeagueID:  "3",
		Teams: []league.Team{
			{TeamKey: "10", LastFiveHomeMatches: prior},
			{TeamKey: "20"},
		},
	}
	if err := leagues.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	updated, _, _ := leagues.GetByKey(context.Background(), "3")
	home, _ := updated.FindTeam("10")
	refs := home.LastFiveHomeMatches
	if len(refs) != 5 {
		t.Fatalf("expected 5 trailing refs, got %d", len(refs))
	}
	if refs[0].MatchID != "m2" || refs[4].MatchID != "m6" {
		t.Fatalf("expected oldest ref evicted, got %+v", refs)
	}
}

func TestTransitionRunSkipsUnknownLeague(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m1", "10", "20")
	provider := &stubProvider{matches: map[string]match.Match{
		"m1": finishedCopy(due, "1", "1"),
	}}
	svc, matches, _ := newTransitionFixture(t, provider)
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Skipped != 1 || result.Transitioned != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if matches.FutureCount() != 1 {
		t.Fatalf("expected match kept for the next run, got %d", matches.FutureCount())
	}
}

func TestTransitionRunFallsBackToTeamLookup(t *testing.T) {
	t.Parallel()

	due := yesterdayMatch("m1", "10", "20")
	due.LeagueID = "cup-77"
	provider := &stubProvider{matches: map[string]match.Match{
		"m1": finishedCopy(due, "3", "0"),
	}}
	svc, matches, leagues := newTransitionFixture(t, provider)
	seedLeagueDoc(t, leagues, "10", "20")
	if err := matches.InsertFuture(context.Background(), []match.Match{due}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Transitioned != 1 {
		t.Fatalf("expected fallback lookup to transition the match, got %+v", result)
	}
	doc, _, _ := leagues.GetByKey(context.Background(), "3")
	home, _ := doc.FindTeam("10")
	if len(home.LastFiveHomeMatches) != 1 {
		t.Fatalf("expected home trailing ref recorded, got %+v", home.LastFiveHomeMatches)
	}
}

func TestTransitionRunIsolatesRefetchFailure(t *testing.T) {
	t.Parallel()

	failing := yesterdayMatch("m1", "10", "20")
	passing := yesterdayMatch("m2", "20", "10")
	provider := &stubProvider{
		matches:   map[string]match.Match{"m2": finishedCopy(passing, "0", "2")},
		matchErrs: map[string]error{"m1": errors.New("upstream boom")},
	}
	svc, matches, leagues := newTransitionFixture(t, provider)
	seedLeagueDoc(t, leagues, "10", "20")
	if err := matches.InsertFuture(context.Background(), []match.Match{failing, passing}); err != nil {
		t.Fatalf("InsertFuture: %v", err)
	}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Retried != 1 || result.Transitioned != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if matches.FutureCount() != 1 || matches.PastCount() != 1 {
		t.Fatalf("expected one moved and one kept, future=%d past=%d", matches.FutureCount(), matches.PastCount())
	}
}
