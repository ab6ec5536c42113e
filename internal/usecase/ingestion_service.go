package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/platform/logging"
	"github.com/pitchdata/footystats/internal/platform/metrics"
)

// maxSeedMatches caps the per-side history considered when seeding a team's
// initial statistics.
const maxSeedMatches = 6

type IngestionConfig struct {
	// AllowedLeagueIDs restricts ingestion to these provider league ids. An
	// empty list allows every league.
	AllowedLeagueIDs   []string
	PastWindowMonths   int
	FutureWindowMonths int
}

// IngestionService pulls the provider's match and league catalogs into local
// storage. Provider failures degrade to empty result sets with a warning;
// storage failures abort the run.
type IngestionService struct {
	provider FootballDataProvider
	matches  match.Repository
	leagues  league.Repository
	stats    *StatsService
	cfg      IngestionConfig
	metrics  *metrics.Metrics
	logger   *logging.Logger
	now      func() time.Time
}

func NewIngestionService(
	provider FootballDataProvider,
	matches match.Repository,
	leagues league.Repository,
	stats *StatsService,
	cfg IngestionConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *IngestionService {
	if cfg.PastWindowMonths <= 0 {
		cfg.PastWindowMonths = 6
	}
	if cfg.FutureWindowMonths <= 0 {
		cfg.FutureWindowMonths = 2
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &IngestionService{
		provider: provider,
		matches:  matches,
		leagues:  leagues,
		stats:    stats,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *IngestionService) Run(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "ingestion.run")
	defer span.End()

	now := s.now().UTC()

	if err := s.ingestPastMatches(ctx, now); err != nil {
		return err
	}
	if err := s.ingestFutureMatches(ctx, now); err != nil {
		return err
	}
	if err := s.seedLeagues(ctx, now); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IngestionRuns.Inc()
	}

	stored, err := s.leagues.List(ctx)
	if err != nil {
		return fmt.Errorf("list leagues: %w", err)
	}
	s.logger.InfoContext(ctx, "ingestion run finished", "leagues", len(stored))
	return nil
}

func (s *IngestionService) ingestPastMatches(ctx context.Context, now time.Time) error {
	from := now.AddDate(0, -s.cfg.PastWindowMonths, 0)
	events := s.fetchEvents(ctx, EventQuery{From: from, To: now})

	kept := s.filterAllowed(events)
	if err := s.matches.InsertPast(ctx, kept); err != nil {
		return fmt.Errorf("store past matches: %w", err)
	}

	s.logger.InfoContext(ctx, "past matches ingested", "fetched", len(events), "stored", len(kept))
	return nil
}

func (s *IngestionService) ingestFutureMatches(ctx context.Context, now time.Time) error {
	to := now.AddDate(0, s.cfg.FutureWindowMonths, 0)
	events := s.fetchEvents(ctx, EventQuery{From: now, To: to})

	kept := s.filterAllowed(events)
	if err := s.matches.InsertFuture(ctx, kept); err != nil {
		return fmt.Errorf("store future matches: %w", err)
	}

	s.logger.InfoContext(ctx, "future matches ingested", "fetched", len(events), "stored", len(kept))
	return nil
}

// seedLeagues rebuilds each allow-listed league document with its current
// team list, trailing match refs and initial per-side statistics.
func (s *IngestionService) seedLeagues(ctx context.Context, now time.Time) error {
	catalog, err := s.provider.FetchLeagues(ctx)
	if err != nil {
		s.recordUpstreamError(ctx, "fetch leagues", err)
		return nil
	}

	from := now.AddDate(0, -s.cfg.PastWindowMonths, 0)
	for _, item := range catalog {
		if !s.leagueAllowed(item.LeagueID) {
			continue
		}

		teams, err := s.provider.FetchTeams(ctx, item.LeagueID)
		if err != nil {
			s.recordUpstreamError(ctx, "fetch teams", err, "league_id", item.LeagueID)
			teams = nil
		}

		built := make([]league.Team, 0, len(teams))
		for _, team := range teams {
			seeded, err := s.seedTeam(ctx, item.LeagueID, team, from, now)
			if err != nil {
				return err
			}
			built = append(built, seeded)
		}

		item.Teams = built
		if item.LeagueKey == "" {
			item.LeagueKey = item.LeagueID
		}
		if err := s.leagues.Upsert(ctx, item); err != nil {
			return fmt.Errorf("store league %s: %w", item.LeagueKey, err)
		}
	}

	return nil
}

func (s *IngestionService) seedTeam(ctx context.Context, leagueID string, team league.Team, from, to time.Time) (league.Team, error) {
	events := s.fetchEvents(ctx, EventQuery{LeagueID: leagueID, TeamID: team.TeamKey, From: from, To: to})
	homeRefs, awayRefs := splitTeamRefs(events, team.TeamKey)

	homeStats, err := s.stats.ComputeStatistics(ctx, homeRefs, match.SideHome)
	if err != nil {
		return league.Team{}, fmt.Errorf("seed team %s home statistics: %w", team.TeamKey, err)
	}
	awayStats, err := s.stats.ComputeStatistics(ctx, awayRefs, match.SideAway)
	if err != nil {
		return league.Team{}, fmt.Errorf("seed team %s away statistics: %w", team.TeamKey, err)
	}

	team.SetStatistic(match.SideHome, homeStats)
	team.SetStatistic(match.SideAway, awayStats)
	team.SetTrailingMatches(match.SideHome, league.TrimRefs(homeRefs))
	team.SetTrailingMatches(match.SideAway, league.TrimRefs(awayRefs))
	return team, nil
}

// fetchEvents degrades provider failures to an empty slice so one bad window
// cannot fail the whole run.
func (s *IngestionService) fetchEvents(ctx context.Context, query EventQuery) []match.Match {
	events, err := s.provider.FetchEvents(ctx, query)
	if err != nil {
		s.recordUpstreamError(ctx, "fetch events", err, "league_id", query.LeagueID, "team_id", query.TeamID)
		return nil
	}
	return events
}

func (s *IngestionService) recordUpstreamError(ctx context.Context, operation string, err error, kv ...any) {
	if s.metrics != nil {
		s.metrics.UpstreamErrors.Inc()
	}
	fields := append([]any{"operation", operation, "error", err}, kv...)
	s.logger.WarnContext(ctx, "football data provider request failed", fields...)
}

func (s *IngestionService) filterAllowed(events []match.Match) []match.Match {
	kept := make([]match.Match, 0, len(events))
	for _, event := range events {
		if s.leagueAllowed(event.LeagueID) {
			kept = append(kept, event)
		}
	}
	return kept
}

func (s *IngestionService) leagueAllowed(leagueID string) bool {
	if len(s.cfg.AllowedLeagueIDs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedLeagueIDs {
		if allowed == leagueID {
			return true
		}
	}
	return false
}

// splitTeamRefs partitions a team's events by the side it played from,
// keeping at most maxSeedMatches per side in provider order.
func splitTeamRefs(events []match.Match, teamKey string) (home, away []league.MatchRef) {
	for _, event := range events {
		side, ok := event.TeamSide(teamKey)
		if !ok {
			continue
		}
		if side == match.SideHome && len(home) < maxSeedMatches {
			home = append(home, league.MatchRef{MatchID: event.MatchID})
		}
		if side == match.SideAway && len(away) < maxSeedMatches {
			away = append(away, league.MatchRef{MatchID: event.MatchID})
		}
	}
	return home, away
}
