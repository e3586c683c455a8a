package scheduler

import "sync"

// postLocks serializes job execution per post id so two targets of the
// same post finishing in the same tick cannot race the status
// aggregation.
type postLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPostLocks() *postLocks {
	return &postLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *postLocks) lock(postID string) func() {
	p.mu.Lock()
	m, ok := p.locks[postID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[postID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
