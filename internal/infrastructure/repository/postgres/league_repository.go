package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	qb "github.com/pitchdata/footystats/internal/platform/querybuilder"
)

const leaguesTable = "leagues"

var leagueColumns = []string{
	"league_key",
	"league_id",
	"league_name",
	"country_id",
	"country_name",
	"league_season",
	"league_logo",
	"country_logo",
	"league_teams",
	"created_at",
	"updated_at",
}

// LeagueRepository stores league documents with the embedded team array in a
// JSONB column. The per-team update methods rewrite the single matching array
// element so concurrent sibling updates are never clobbered.
type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	query, args, err := qb.Select(leagueColumns...).
		From(leaguesTable).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	return out, nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("league_id", leagueID))
}

func (r *LeagueRepository) GetByKey(ctx context.Context, leagueKey string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("league_key", leagueKey))
}

func (r *LeagueRepository) FindByTeamKey(ctx context.Context, teamKey string) (league.League, bool, error) {
	probe, err := sonic.Marshal([]map[string]string{{"team_key": teamKey}})
	if err != nil {
		return league.League{}, false, fmt.Errorf("encode team key probe: %w", err)
	}
	return r.getOne(ctx, qb.Expr("league_teams @> ?::jsonb", string(probe)))
}

func (r *LeagueRepository) getOne(ctx context.Context, condition qb.Condition) (league.League, bool, error) {
	query, args, err := qb.Select(leagueColumns...).
		From(leaguesTable).
		Where(condition).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("select league: %w", err)
	}

	item, err := row.toDomain()
	if err != nil {
		return league.League{}, false, err
	}

	return item, true, nil
}

// Upsert inserts a new league document, or replaces only the embedded team
// array when the league key already exists.
func (r *LeagueRepository) Upsert(ctx context.Context, item league.League) error {
	teams, err := sonic.Marshal(item.Teams)
	if err != nil {
		return fmt.Errorf("encode league_teams for league %s: %w", item.LeagueKey, err)
	}

	query, args, err := qb.InsertInto(leaguesTable).
		Columns("league_key", "league_id", "league_name", "country_id", "country_name",
			"league_season", "league_logo", "country_logo", "league_teams").
		Values(item.LeagueKey, item.LeagueID, item.LeagueName, item.CountryID, item.CountryName,
			item.LeagueSeason, item.LeagueLogo, item.CountryLogo, string(teams)).
		Suffix("ON CONFLICT (league_key) DO UPDATE SET league_teams = EXCLUDED.league_teams, updated_at = now()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert league query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert league %s: %w", item.LeagueKey, err)
	}

	return nil
}

func (r *LeagueRepository) UpdateTeamMatches(ctx context.Context, leagueID, teamKey string, side match.Side, refs []league.MatchRef) error {
	if refs == nil {
		refs = []league.MatchRef{}
	}
	value, err := sonic.Marshal(refs)
	if err != nil {
		return fmt.Errorf("encode trailing matches for team %s: %w", teamKey, err)
	}

	return r.rewriteTeamField(ctx, leagueID, teamKey, trailingMatchesField(side), string(value))
}

func (r *LeagueRepository) UpdateTeamStatistics(ctx context.Context, leagueID, teamKey string, side match.Side, stats league.TeamStatistics) error {
	value, err := sonic.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics for team %s: %w", teamKey, err)
	}

	return r.rewriteTeamField(ctx, leagueID, teamKey, statisticField(side), string(value))
}

// rewriteTeamField replaces one field of the single team element matching
// teamKey and leaves every other element byte-for-byte untouched.
func (r *LeagueRepository) rewriteTeamField(ctx context.Context, leagueID, teamKey, field, value string) error {
	expr := "(SELECT COALESCE(jsonb_agg(CASE WHEN team->>'team_key' = ? " +
		"THEN jsonb_set(team, '{" + field + "}', ?::jsonb) ELSE team END), '[]'::jsonb) " +
		"FROM jsonb_array_elements(league_teams) AS team)"

	query, args, err := qb.Update(leaguesTable).
		SetExpr("league_teams", expr, teamKey, value).
		SetExpr("updated_at", "now()").
		Where(qb.Eq("league_id", leagueID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update league team query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update team %s in league %s: %w", teamKey, leagueID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read update result for league %s: %w", leagueID, err)
	}
	if affected == 0 {
		return fmt.Errorf("league %s not found", leagueID)
	}

	return nil
}

func trailingMatchesField(side match.Side) string {
	if side == match.SideHome {
		return "last_5_home_matches"
	}
	return "last_5_away_matches"
}

func statisticField(side match.Side) string {
	if side == match.SideHome {
		return "home_statistic"
	}
	return "away_statistic"
}
