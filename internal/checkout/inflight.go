package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/internal/cart"
)

// ErrAborted is the cancellation cause of a checkout stopped through Abort.
var ErrAborted = errors.New("checkout aborted")

type running struct {
	owner  cart.Owner
	cancel context.CancelCauseFunc
}

// inflight tracks submissions that can still be aborted. It is local to the
// process, so an abort only reaches submissions running on this instance.
type inflight struct {
	mu   sync.Mutex
	runs map[uuid.UUID]running
}

func newInflight() *inflight {
	return &inflight{runs: make(map[uuid.UUID]running)}
}

// register returns false when a submission with the same id is already running.
func (f *inflight) register(id uuid.UUID, owner cart.Owner, cancel context.CancelCauseFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; ok {
		return false
	}
	f.runs[id] = running{owner: owner, cancel: cancel}
	return true
}

func (f *inflight) remove(id uuid.UUID) {
	f.mu.Lock()
	delete(f.runs, id)
	f.mu.Unlock()
}

// abort cancels the submission when it is running and belongs to owner.
func (f *inflight) abort(id uuid.UUID, owner cart.Owner) bool {
	f.mu.Lock()
	run, ok := f.runs[id]
	f.mu.Unlock()
	if !ok || run.owner != owner {
		return false
	}
	run.cancel(ErrAborted)
	return true
}

func (f *inflight) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}
