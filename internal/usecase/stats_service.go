package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/platform/logging"
)

// PastMatchSource resolves match refs against the past store.
type PastMatchSource interface {
	GetPast(ctx context.Context, matchID string) (match.Match, bool, error)
}

// StatsService derives a team's rolling statistics from its trailing match
// refs. Refs that no longer resolve are skipped but still count toward the
// averaging denominator, matching the stored document format.
type StatsService struct {
	pastMatches PastMatchSource
	logger      *logging.Logger
}

func NewStatsService(pastMatches PastMatchSource, logger *logging.Logger) *StatsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsService{pastMatches: pastMatches, logger: logger}
}

// WithSource returns a copy of the service resolving refs against src.
func (s *StatsService) WithSource(src PastMatchSource) *StatsService {
	return &StatsService{pastMatches: src, logger: s.logger}
}

// ComputeStatistics aggregates the referenced matches from the given side's
// perspective. An empty ref list yields the zero-valued statistics block with
// "0.00" averages.
func (s *StatsService) ComputeStatistics(ctx context.Context, refs []league.MatchRef, side match.Side) (league.TeamStatistics, error) {
	ctx, span := startUsecaseSpan(ctx, "stats.compute")
	defer span.End()

	var acc statsAccumulator
	for _, ref := range refs {
		item, found, err := s.pastMatches.GetPast(ctx, ref.MatchID)
		if err != nil {
			return league.TeamStatistics{}, fmt.Errorf("resolve match %s: %w", ref.MatchID, err)
		}
		if !found {
			s.logger.DebugContext(ctx, "trailing match missing from past store", "match_id", ref.MatchID)
			continue
		}
		acc.ingest(item, side)
	}

	return acc.finalize(len(refs)), nil
}

type statsAccumulator struct {
	wins   int
	draws  int
	losses int

	goalsFirstHalf int
	goalsFullMatch int
	intervals      league.GoalIntervals

	yellowFirstHalf  int
	yellowSecondHalf int
	redFirstHalf     int
	redSecondHalf    int

	fullSums   map[string]int
	fullCounts map[string]int
	halfSums   map[string]int
	halfCounts map[string]int
}

func (a *statsAccumulator) ingest(item match.Match, side match.Side) {
	ourScore, theirScore := fullTimeScores(item, side)
	switch {
	case ourScore > theirScore:
		a.wins++
	case ourScore < theirScore:
		a.losses++
	default:
		a.draws++
	}

	a.goalsFullMatch += ourScore
	if side == match.SideHome {
		a.goalsFirstHalf += scoreValue(item.HomeTeamHalftimeScore)
	} else {
		a.goalsFirstHalf += scoreValue(item.AwayTeamHalftimeScore)
	}

	for _, goal := range item.Goalscorers {
		ours := goal.HomeScorerID != ""
		if side == match.SideAway {
			ours = goal.AwayScorerID != ""
		}
		if !ours {
			continue
		}
		minute, ok := leadingInt(goal.Time)
		if !ok {
			continue
		}
		a.bucketGoal(minute)
	}

	for _, card := range item.Cards {
		ours := card.HomeFault != ""
		if side == match.SideAway {
			ours = card.AwayFault != ""
		}
		if !ours {
			continue
		}

		minute := scoreValue(card.Time)
		firstHalf := minute <= 45
		switch strings.ToLower(strings.TrimSpace(card.Card)) {
		case "yellow card":
			if firstHalf {
				a.yellowFirstHalf++
			} else {
				a.yellowSecondHalf++
			}
		case "red card":
			if firstHalf {
				a.redFirstHalf++
			} else {
				a.redSecondHalf++
			}
		}
	}

	a.fullSums, a.fullCounts = accumulateStatLines(a.fullSums, a.fullCounts, item.Statistics, side)
	a.halfSums, a.halfCounts = accumulateStatLines(a.halfSums, a.halfCounts, item.FirstHalfStatistics, side)
}

func (a *statsAccumulator) bucketGoal(minute int) {
	switch {
	case minute <= 15:
		a.intervals.Min0To15++
	case minute <= 30:
		a.intervals.Min16To30++
	case minute <= 45:
		a.intervals.Min31To45++
	case minute <= 60:
		a.intervals.Min46To60++
	case minute <= 75:
		a.intervals.Min61To75++
	case minute <= 90:
		a.intervals.Min76To90++
	}
}

func (a *statsAccumulator) finalize(refCount int) league.TeamStatistics {
	total := refCount
	if total < 1 {
		total = 1
	}

	return league.TeamStatistics{
		WinPercentage:     round2(float64(a.wins) / float64(total) * 100),
		DrawPercentage:    round2(float64(a.draws) / float64(total) * 100),
		LossPercentage:    round2(float64(a.losses) / float64(total) * 100),
		AvgGoalsFirstHalf: formatAverage(a.goalsFirstHalf, total),
		AvgGoalsFullMatch: formatAverage(a.goalsFullMatch, total),
		GoalIntervals:     a.intervals,
		CardsStatistic: league.CardsStatistic{
			FirstHalf: league.FirstHalfCards{
				Yellow: formatAverage(a.yellowFirstHalf, total),
				Red:    formatAverage(a.redFirstHalf, total),
			},
			SecondHalf: league.SecondHalfCards{
				Yellow: formatAverage(a.yellowSecondHalf, total),
				Red:    formatAverage(a.redSecondHalf, total),
			},
			FullMatch: league.FullMatchCards{
				Yellow: formatAverage(a.yellowFirstHalf+a.yellowSecondHalf, total),
				Red:    formatAverage(a.redFirstHalf+a.redSecondHalf, total),
			},
		},
		AvgStatistics:          averageStatLines(a.fullSums, a.fullCounts),
		AvgFirstHalfStatistics: averageStatLines(a.halfSums, a.halfCounts),
	}
}

func accumulateStatLines(sums, counts map[string]int, lines []match.StatLine, side match.Side) (map[string]int, map[string]int) {
	if len(lines) == 0 {
		return sums, counts
	}
	if sums == nil {
		sums = make(map[string]int)
		counts = make(map[string]int)
	}

	for _, line := range lines {
		value := line.Home
		if side == match.SideAway {
			value = line.Away
		}
		sums[line.Type] += scoreValue(value)
		counts[line.Type]++
	}
	return sums, counts
}

// averageStatLines keeps only types whose average is positive; all-zero rows
// are dropped from the stored block.
func averageStatLines(sums, counts map[string]int) map[string]float64 {
	var out map[string]float64
	for statType, count := range counts {
		if count == 0 {
			continue
		}
		avg := round2(float64(sums[statType]) / float64(count))
		if avg <= 0 {
			continue
		}
		if out == nil {
			out = make(map[string]float64)
		}
		out[statType] = avg
	}
	return out
}

func fullTimeScores(item match.Match, side match.Side) (ours, theirs int) {
	home := scoreValue(item.HomeTeamFullTimeScore)
	away := scoreValue(item.AwayTeamFullTimeScore)
	if side == match.SideHome {
		return home, away
	}
	return away, home
}

// leadingInt parses the leading digit run of a value like "45+2" or "57%".
func leadingInt(value string) (int, bool) {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func scoreValue(value string) int {
	n, ok := leadingInt(value)
	if !ok {
		return 0
	}
	return n
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func formatAverage(sum, total int) string {
	return strconv.FormatFloat(float64(sum)/float64(total), 'f', 2, 64)
}
