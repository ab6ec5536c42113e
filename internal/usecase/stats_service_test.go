package usecase

import (
	"context"
	"testing"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/infrastructure/repository/memory"
	"github.com/pitchdata/footystats/internal/platform/logging"
)

func TestComputeStatisticsEmptyRefs(t *testing.T) {
	t.Parallel()

	svc := NewStatsService(memory.NewMatchRepository(), logging.NewNop())

	stats, err := svc.ComputeStatistics(context.Background(), nil, match.SideHome)
	if err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	if stats.WinPercentage != 0 || stats.DrawPercentage != 0 || stats.LossPercentage != 0 {
		t.Fatalf("expected zero percentages, got %+v", stats)
	}
	if stats.AvgGoalsFullMatch != "0.00" || stats.AvgGoalsFirstHalf != "0.00" {
		t.Fatalf("expected 0.00 goal averages, got %q and %q", stats.AvgGoalsFullMatch, stats.AvgGoalsFirstHalf)
	}
	if stats.CardsStatistic.FullMatch.Yellow != "0.00" {
		t.Fatalf("expected 0.00 yellow average, got %q", stats.CardsStatistic.FullMatch.Yellow)
	}
	if stats.AvgStatistics != nil {
		t.Fatalf("expected no stat averages, got %v", stats.AvgStatistics)
	}
}

func TestComputeStatisticsAggregatesHomeSide(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository()
	mustInsertPast(t, repo,
		match.Match{
			MatchID:               "m1",
			HomeTeamID:            "10",
			AwayTeamID:            "20",
			HomeTeamFullTimeScore: "2",
			AwayTeamFullTimeScore: "1",
			HomeTeamHalftimeScore: "1",
			AwayTeamHalftimeScore: "0",
			Goalscorers: []match.GoalEvent{
				{Time: "10", HomeScorerID: "p1"},
				{Time: "46", HomeScorerID: "p2"},
				{Time: "88", AwayScorerID: "p9"},
			},
			Cards: []match.CardEvent{
				{Time: "30", HomeFault: "p3", Card: "yellow card"},
				{Time: "78", HomeFault: "p4", Card: "red card"},
				{Time: "55", AwayFault: "p8", Card: "yellow card"},
			},
			Statistics: []match.StatLine{
				{Type: "Ball Possession", Home: "60%", Away: "40%"},
				{Type: "Shots Total", Home: "14", Away: "6"},
			},
			FirstHalfStatistics: []match.StatLine{
				{Type: "Ball Possession", Home: "55%", Away: "45%"},
			},
		},
		match.Match{
			MatchID:               "m2",
			HomeTeamID:            "10",
			AwayTeamID:            "30",
			HomeTeamFullTimeScore: "0",
			AwayTeamFullTimeScore: "0",
		},
	)

	svc := NewStatsService(repo, logging.NewNop())
	refs := []league.MatchRef{{MatchID: "m1"}, {MatchID: "m2"}}

	stats, err := svc.ComputeStatistics(context.Background(), refs, match.SideHome)
	if err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	if stats.WinPercentage != 50 || stats.DrawPercentage != 50 || stats.LossPercentage != 0 {
		t.Fatalf("unexpected percentages: %+v", stats)
	}
	if stats.AvgGoalsFullMatch != "1.00" {
		t.Fatalf("expected 1.00 full-match goals, got %q", stats.AvgGoalsFullMatch)
	}
	if stats.AvgGoalsFirstHalf != "0.50" {
		t.Fatalf("expected 0.50 first-half goals, got %q", stats.AvgGoalsFirstHalf)
	}

	intervals := stats.GoalIntervals
	if intervals.Min0To15 != 1 || intervals.Min46To60 != 1 || intervals.Sum() != 2 {
		t.Fatalf("unexpected goal intervals: %+v", intervals)
	}

	cards := stats.CardsStatistic
	if cards.FirstHalf.Yellow != "0.50" || cards.FirstHalf.Red != "0.00" {
		t.Fatalf("unexpected first-half cards: %+v", cards.FirstHalf)
	}
	if cards.SecondHalf.Red != "0.50" || cards.SecondHalf.Yellow != "0.00" {
		t.Fatalf("unexpected second-half cards: %+v", cards.SecondHalf)
	}
	if cards.FullMatch.Yellow != "0.50" || cards.FullMatch.Red != "0.50" {
		t.Fatalf("unexpected full-match cards: %+v", cards.FullMatch)
	}

	if got := stats.AvgStatistics["Ball Possession"]; got != 60 {
		t.Fatalf("expected possession average 60, got %v", got)
	}
	if got := stats.AvgStatistics["Shots Total"]; got != 14 {
		t.Fatalf("expected shots average 14, got %v", got)
	}
	if got := stats.AvgFirstHalfStatistics["Ball Possession"]; got != 55 {
		t.Fatalf("expected first-half possession 55, got %v", got)
	}
}

func TestComputeStatisticsIgnoresGoalsPastMinute90(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository()
	mustInsertPast(t, repo, match.Match{
		MatchID:               "m1",
		HomeTeamID:            "10",
		AwayTeamID:            "20",
		HomeTeamFullTimeScore: "4",
		AwayTeamFullTimeScore: "0",
		Goalscorers: []match.GoalEvent{
			{Time: "90", HomeScorerID: "p1"},
			{Time: "90+4", HomeScorerID: "p2"},
			{Time: "95", HomeScorerID: "p3"},
			{Time: "120", HomeScorerID: "p4"},
		},
	})

	svc := NewStatsService(repo, logging.NewNop())
	refs := []league.MatchRef{{MatchID: "m1"}}

	stats, err := svc.ComputeStatistics(context.Background(), refs, match.SideHome)
	if err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	intervals := stats.GoalIntervals
	if intervals.Min76To90 != 2 {
		t.Fatalf("expected minute-90 goals in the 76-90 bucket, got %+v", intervals)
	}
	if intervals.Sum() != 2 {
		t.Fatalf("expected goals past minute 90 left out of every bucket, got %+v", intervals)
	}
}

func TestComputeStatisticsMissingRefKeepsDenominator(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository()
	mustInsertPast(t, repo, match.Match{
		MatchID:               "m1",
		HomeTeamID:            "10",
		AwayTeamID:            "20",
		HomeTeamFullTimeScore: "3",
		AwayTeamFullTimeScore: "0",
	})

	svc := NewStatsService(repo, logging.NewNop())
	refs := []league.MatchRef{{MatchID: "m1"}, {MatchID: "gone"}}

	stats, err := svc.ComputeStatistics(context.Background(), refs, match.SideHome)
	if err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	if stats.WinPercentage != 50 {
		t.Fatalf("expected win percentage 50, got %v", stats.WinPercentage)
	}
	if stats.AvgGoalsFullMatch != "1.50" {
		t.Fatalf("expected goal average 1.50, got %q", stats.AvgGoalsFullMatch)
	}
}

func TestComputeStatisticsDropsZeroAverages(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository()
	mustInsertPast(t, repo, match.Match{
		MatchID:    "m1",
		HomeTeamID: "10",
		AwayTeamID: "20",
		Statistics: []match.StatLine{
			{Type: "Offsides", Home: "0", Away: "2"},
			{Type: "Corners", Home: "5", Away: "1"},
		},
	})

	svc := NewStatsService(repo, logging.NewNop())
	refs := []league.MatchRef{{MatchID: "m1"}}

	stats, err := svc.ComputeStatistics(context.Background(), refs, match.SideHome)
	if err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	if _, ok := stats.AvgStatistics["Offsides"]; ok {
		t.Fatalf("expected all-zero type to be dropped, got %v", stats.AvgStatistics)
	}
	if got := stats.AvgStatistics["Corners"]; got != 5 {
		t.Fatalf("expected corners average 5, got %v", got)
	}
}

func TestLeadingInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"45", 45, true},
		{"45+2", 45, true},
		{" 90 ", 90, true},
		{"57%", 57, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tc := range cases {
		got, ok := leadingInt(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("leadingInt(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func mustInsertPast(t *testing.T, repo *memory.MatchRepository, matches ...match.Match) {
	t.Helper()
	if err := repo.InsertPast(context.Background(), matches); err != nil {
		t.Fatalf("InsertPast: %v", err)
	}
}
