package memory

import (
	"context"
	"sync"

	"github.com/pitchdata/footystats/internal/domain/match"
)

// MatchRepository keeps both match collections in process memory. It backs
// local runs without a database and the usecase tests.
type MatchRepository struct {
	mu     sync.RWMutex
	future map[string]match.Match
	past   map[string]match.Match
	order  []string
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		future: make(map[string]match.Match),
		past:   make(map[string]match.Match),
	}
}

func (r *MatchRepository) InsertFuture(_ context.Context, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range matches {
		if _, exists := r.future[item.MatchID]; exists {
			continue
		}
		r.future[item.MatchID] = item
		r.order = append(r.order, item.MatchID)
	}
	return nil
}

func (r *MatchRepository) InsertPast(_ context.Context, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range matches {
		if _, exists := r.past[item.MatchID]; exists {
			continue
		}
		r.past[item.MatchID] = item
	}
	return nil
}

func (r *MatchRepository) ListFuture(_ context.Context) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(r.future))
	for _, id := range r.order {
		if item, ok := r.future[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *MatchRepository) GetPast(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.past[matchID]
	return item, ok, nil
}

func (r *MatchRepository) ExistsPast(_ context.Context, matchID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.past[matchID]
	return ok, nil
}

func (r *MatchRepository) DeleteFuture(_ context.Context, matchIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range matchIDs {
		delete(r.future, id)
	}
	return nil
}

// PastCount reports the size of the past collection.
func (r *MatchRepository) PastCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.past)
}

// FutureCount reports the size of the future collection.
func (r *MatchRepository) FutureCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.future)
}
