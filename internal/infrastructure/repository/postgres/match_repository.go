package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/pitchdata/footystats/internal/domain/match"
	qb "github.com/pitchdata/footystats/internal/platform/querybuilder"
)

const (
	futureMatchesTable = "future_matches"
	pastMatchesTable   = "past_matches"
)

// MatchRepository stores matches as JSONB documents, one table per
// collection, with the id, league, status and kickoff lifted into columns.
type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) InsertFuture(ctx context.Context, matches []match.Match) error {
	return r.insert(ctx, futureMatchesTable, matches)
}

func (r *MatchRepository) InsertPast(ctx context.Context, matches []match.Match) error {
	return r.insert(ctx, pastMatchesTable, matches)
}

func (r *MatchRepository) insert(ctx context.Context, table string, matches []match.Match) error {
	if len(matches) == 0 {
		return nil
	}

	builder := qb.InsertInto(table).
		Columns("match_id", "league_id", "status", "kickoff_at", "payload").
		Suffix("ON CONFLICT (match_id) DO NOTHING")

	for _, item := range matches {
		payload, err := sonic.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode match %s: %w", item.MatchID, err)
		}

		var kickoffAt sql.NullTime
		if at, ok := item.Kickoff(); ok {
			kickoffAt = sql.NullTime{Time: at, Valid: true}
		}

		builder.Values(item.MatchID, item.LeagueID, item.Status, kickoffAt, string(payload))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert %s query: %w", table, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}

	return nil
}

func (r *MatchRepository) ListFuture(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("payload").
		From(futureMatchesTable).
		OrderBy("kickoff_at NULLS LAST", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select future matches query: %w", err)
	}

	var payloads []string
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("select future matches: %w", err)
	}

	out := make([]match.Match, 0, len(payloads))
	for _, payload := range payloads {
		var item match.Match
		if err := sonic.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("decode future match document: %w", err)
		}
		out = append(out, item)
	}

	return out, nil
}

func (r *MatchRepository) GetPast(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := qb.Select("payload").
		From(pastMatchesTable).
		Where(qb.Eq("match_id", matchID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select past match query: %w", err)
	}

	var payload string
	if err := r.db.GetContext(ctx, &payload, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select past match %s: %w", matchID, err)
	}

	var item match.Match
	if err := sonic.Unmarshal([]byte(payload), &item); err != nil {
		return match.Match{}, false, fmt.Errorf("decode past match document: %w", err)
	}

	return item, true, nil
}

func (r *MatchRepository) ExistsPast(ctx context.Context, matchID string) (bool, error) {
	query, args, err := qb.Select("1").
		From(pastMatchesTable).
		Where(qb.Eq("match_id", matchID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build select past match existence query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("select past match existence %s: %w", matchID, err)
	}

	return true, nil
}

func (r *MatchRepository) DeleteFuture(ctx context.Context, matchIDs []string) error {
	if len(matchIDs) == 0 {
		return nil
	}

	values := make([]any, 0, len(matchIDs))
	for _, id := range matchIDs {
		values = append(values, id)
	}

	query, args, err := qb.DeleteFrom(futureMatchesTable).
		Where(qb.In("match_id", values)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete future matches query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete future matches: %w", err)
	}

	return nil
}
