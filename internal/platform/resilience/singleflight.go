package resilience

import "sync"

// SingleFlight collapses concurrent calls sharing a key into one execution.
// Latecomers block until the leader finishes and receive its result; the
// third return value reports whether the result was shared. The zero value
// is ready to use.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*flightResult
}

type flightResult struct {
	done chan struct{}
	val  any
	err  error
}

func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[string]*flightResult)
	}
	if leader, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-leader.done
		return leader.val, leader.err, true
	}

	r := &flightResult{done: make(chan struct{})}
	g.inflight[key] = r
	g.mu.Unlock()

	r.val, r.err = fn()
	close(r.done)

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	return r.val, r.err, false
}
