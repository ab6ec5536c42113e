package match

import "context"

// Repository persists matches in two collections: upcoming matches waiting to
// finish, and finished matches used for statistics resolution. Inserts are
// insert-if-absent keyed by match_id, so re-ingestion is idempotent.
type Repository interface {
	InsertFuture(ctx context.Context, matches []Match) error
	InsertPast(ctx context.Context, matches []Match) error
	ListFuture(ctx context.Context) ([]Match, error)
	GetPast(ctx context.Context, matchID string) (Match, bool, error)
	ExistsPast(ctx context.Context, matchID string) (bool, error)
	DeleteFuture(ctx context.Context, matchIDs []string) error
}
