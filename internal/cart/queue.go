package cart

import (
	"context"
	"sync"
)

// Queue runs cart mutations one at a time per owner. Different owners do not
// wait on each other.
type Queue struct {
	mu    sync.Mutex
	slots map[Owner]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func NewQueue() *Queue {
	return &Queue{slots: map[Owner]*slot{}}
}

// Do waits for the owner's turn and runs fn. It returns ctx.Err() if the
// context ends while waiting.
func (q *Queue) Do(ctx context.Context, owner Owner, fn func(ctx context.Context) error) error {
	s := q.acquire(owner)
	defer q.release(owner, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	return fn(ctx)
}

func (q *Queue) acquire(owner Owner) *slot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.slots[owner]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		q.slots[owner] = s
	}
	s.refs++
	return s
}

func (q *Queue) release(owner Owner, s *slot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(q.slots, owner)
	}
}

// pending reports how many callers hold or wait for an owner's slot.
func (q *Queue) pending(owner Owner) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.slots[owner]; ok {
		return s.refs
	}
	return 0
}
