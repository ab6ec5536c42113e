package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/platform/logging"
	"github.com/pitchdata/footystats/internal/platform/metrics"
)

const defaultTransitionWorkers = 8

// TransitionResult summarizes one transition run.
type TransitionResult struct {
	Due          int
	Transitioned int
	Retried      int
	Skipped      int
	StatFailures int
}

// TransitionService moves finished matches from the future store to the past
// store and folds them into the owning teams' rolling statistics. There is no
// cross-store transaction; every step tolerates re-running after a partial
// failure.
type TransitionService struct {
	provider FootballDataProvider
	matches  match.Repository
	leagues  league.Repository
	stats    *StatsService
	workers  int
	metrics  *metrics.Metrics
	logger   *logging.Logger
	now      func() time.Time
}

func NewTransitionService(
	provider FootballDataProvider,
	matches match.Repository,
	leagues league.Repository,
	stats *StatsService,
	workers int,
	m *metrics.Metrics,
	logger *logging.Logger,
) *TransitionService {
	if workers <= 0 {
		workers = defaultTransitionWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &TransitionService{
		provider: provider,
		matches:  matches,
		leagues:  leagues,
		stats:    stats,
		workers:  workers,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

type refreshedMatch struct {
	stored  match.Match
	updated match.Match
	found   bool
	err     error
}

func (s *TransitionService) Run(ctx context.Context) (TransitionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "transition.run")
	defer span.End()

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.TransitionDuration.Observe(time.Since(started).Seconds())
		}
	}()

	var result TransitionResult

	future, err := s.matches.ListFuture(ctx)
	if err != nil {
		return result, fmt.Errorf("list future matches: %w", err)
	}

	now := s.now().UTC()
	due := make([]match.Match, 0, len(future))
	for _, item := range future {
		kickoff, ok := item.Kickoff()
		if ok && kickoff.Before(now) {
			due = append(due, item)
		}
	}
	result.Due = len(due)

	if len(due) == 0 {
		s.finishRun(ctx, result)
		return result, nil
	}

	refreshed, err := s.refreshDueMatches(ctx, due)
	if err != nil {
		return result, err
	}

	var toInsert []match.Match
	var toDelete []string
	for _, item := range refreshed {
		switch s.processMatch(ctx, item, &result) {
		case transitionMove:
			toInsert = append(toInsert, item.updated)
			toDelete = append(toDelete, item.updated.MatchID)
		case transitionDeleteOnly:
			toDelete = append(toDelete, item.stored.MatchID)
		case transitionKeep:
		}
	}

	// Insert before delete. A crash between the two leaves the match in both
	// stores, which the next run heals via the already-in-past check.
	if err := s.matches.InsertPast(ctx, toInsert); err != nil {
		return result, fmt.Errorf("store transitioned matches: %w", err)
	}
	if err := s.matches.DeleteFuture(ctx, toDelete); err != nil {
		return result, fmt.Errorf("delete transitioned matches: %w", err)
	}

	result.Transitioned = len(toInsert)
	s.finishRun(ctx, result)
	return result, nil
}

// refreshDueMatches re-fetches every due match concurrently. Results keep the
// input order so the sequential team updates stay deterministic.
func (s *TransitionService) refreshDueMatches(ctx context.Context, due []match.Match) ([]refreshedMatch, error) {
	results := make([]refreshedMatch, len(due))

	size := s.workers
	if len(due) < size {
		size = len(due)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range due {
		i := i
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			updated, found, err := s.provider.FetchMatchByID(ctx, due[i].MatchID)
			results[i] = refreshedMatch{stored: due[i], updated: updated, found: found, err: err}
		})
		if submitErr != nil {
			results[i] = refreshedMatch{stored: due[i], err: submitErr}
			wg.Done()
		}
	}
	wg.Wait()

	return results, nil
}

type transitionAction int

const (
	transitionKeep transitionAction = iota
	transitionMove
	transitionDeleteOnly
)

func (s *TransitionService) processMatch(ctx context.Context, item refreshedMatch, result *TransitionResult) transitionAction {
	matchID := item.stored.MatchID

	if item.err != nil {
		s.logger.WarnContext(ctx, "due match refetch failed", "match_id", matchID, "error", item.err)
		if s.metrics != nil {
			s.metrics.UpstreamErrors.Inc()
		}
		s.retry(result)
		return transitionKeep
	}
	if !item.found {
		s.logger.WarnContext(ctx, "due match missing upstream", "match_id", matchID)
		s.retry(result)
		return transitionKeep
	}
	if !item.updated.IsFinished() {
		s.logger.DebugContext(ctx, "due match not finished yet", "match_id", matchID, "status", item.updated.Status)
		s.retry(result)
		return transitionKeep
	}

	exists, err := s.matches.ExistsPast(ctx, matchID)
	if err != nil {
		s.logger.ErrorContext(ctx, "past store lookup failed", "match_id", matchID, "error", err)
		s.statFailure(result)
		return transitionKeep
	}
	if exists {
		// A previous run crashed after the insert; drop the stale future copy
		// without touching team data again.
		s.logger.InfoContext(ctx, "match already in past store, removing future copy", "match_id", matchID)
		return transitionDeleteOnly
	}

	updated, err := s.applyTeamUpdates(ctx, item.updated, result)
	if err != nil {
		s.logger.ErrorContext(ctx, "team update failed", "match_id", matchID, "error", err)
		s.statFailure(result)
		return transitionKeep
	}
	if !updated {
		return transitionKeep
	}
	return transitionMove
}

// applyTeamUpdates folds a finished match into both teams' trailing lists and
// statistics. The second return is false when the owning league or either
// team is unknown; such matches stay in the future store.
func (s *TransitionService) applyTeamUpdates(ctx context.Context, item match.Match, result *TransitionResult) (bool, error) {
	// The match is not in the past store yet, so statistics resolve it
	// through an overlay instead.
	stats := s.stats.WithSource(pastOverlay{base: s.matches, extra: item})

	owner, found, err := s.leagues.GetByID(ctx, item.LeagueID)
	if err != nil {
		return false, fmt.Errorf("load league %s: %w", item.LeagueID, err)
	}
	if !found {
		// Provider payloads occasionally carry a stage or cup league id the
		// catalog does not know; fall back to locating the home team.
		owner, found, err = s.leagues.FindByTeamKey(ctx, item.HomeTeamID)
		if err != nil {
			return false, fmt.Errorf("find league by team %s: %w", item.HomeTeamID, err)
		}
	}
	if !found {
		s.skip(ctx, result, item, "league not found")
		return false, nil
	}

	sides := []struct {
		teamKey string
		side    match.Side
	}{
		{teamKey: item.HomeTeamID, side: match.SideHome},
		{teamKey: item.AwayTeamID, side: match.SideAway},
	}

	for _, entry := range sides {
		team, ok := owner.FindTeam(entry.teamKey)
		if !ok {
			s.skip(ctx, result, item, "team not found in league")
			return false, nil
		}

		refs := league.AppendMatchRef(team.TrailingMatches(entry.side), item.MatchID)
		if err := s.leagues.UpdateTeamMatches(ctx, owner.LeagueID, entry.teamKey, entry.side, refs); err != nil {
			return false, fmt.Errorf("update team %s matches: %w", entry.teamKey, err)
		}

		updated, err := stats.ComputeStatistics(ctx, refs, entry.side)
		if err != nil {
			return false, fmt.Errorf("recompute team %s statistics: %w", entry.teamKey, err)
		}
		if err := s.leagues.UpdateTeamStatistics(ctx, owner.LeagueID, entry.teamKey, entry.side, updated); err != nil {
			return false, fmt.Errorf("update team %s statistics: %w", entry.teamKey, err)
		}
	}

	return true, nil
}

// pastOverlay resolves the in-flight match ahead of the past store.
type pastOverlay struct {
	base  PastMatchSource
	extra match.Match
}

func (o pastOverlay) GetPast(ctx context.Context, matchID string) (match.Match, bool, error) {
	if matchID == o.extra.MatchID {
		return o.extra, true, nil
	}
	return o.base.GetPast(ctx, matchID)
}

func (s *TransitionService) skip(ctx context.Context, result *TransitionResult, item match.Match, reason string) {
	result.Skipped++
	if s.metrics != nil {
		s.metrics.MatchesSkipped.Inc()
	}
	s.logger.WarnContext(ctx, "due match skipped", "match_id", item.MatchID, "league_id", item.LeagueID, "reason", reason)
}

func (s *TransitionService) retry(result *TransitionResult) {
	result.Retried++
	if s.metrics != nil {
		s.metrics.MatchesRetried.Inc()
	}
}

func (s *TransitionService) statFailure(result *TransitionResult) {
	result.StatFailures++
	if s.metrics != nil {
		s.metrics.StatFailures.Inc()
	}
}

func (s *TransitionService) finishRun(ctx context.Context, result TransitionResult) {
	if s.metrics != nil {
		s.metrics.TransitionRuns.Inc()
		s.metrics.MatchesTransitioned.Add(float64(result.Transitioned))
	}
	s.logger.InfoContext(ctx, "transition run finished",
		"due", result.Due,
		"transitioned", result.Transitioned,
		"retried", result.Retried,
		"skipped", result.Skipped,
		"stat_failures", result.StatFailures,
	)
}
