package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/getstubd/stubd/pkg/stub"
)

// Lifecycle applies user-driven status transitions. Allowed moves are
// draft -> active, active <-> inactive, and any state -> archived;
// archived is terminal. The matcher only ever sees active stubs.
//
// Transitions run under the guard's per-destination lock, so a status
// change and a concurrent Guard.Update on the same stub serialize
// instead of overwriting each other with stale reads.
type Lifecycle struct {
	guard   *Guard
	timeout time.Duration
}

// NewLifecycle creates a Lifecycle controller writing through the
// guard's lock.
func NewLifecycle(g *Guard) *Lifecycle {
	return &Lifecycle{guard: g, timeout: DefaultWriteTimeout}
}

// UpdateStatus transitions the stub to the requested status. An
// unknown id is stub.ErrNotFound; an illegal transition is a
// validation error.
func (l *Lifecycle) UpdateStatus(ctx context.Context, stubID string, next stub.Status) (*stub.Stub, error) {
	if !next.Valid() {
		return nil, &stub.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status: %q", next)}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	current, err := l.guard.store.Get(ctx, stubID)
	if err != nil {
		return nil, err
	}
	for {
		key := current.Destination.Key()
		unlock := l.guard.lock(key)

		// Re-read under the lock so a write that landed in between is
		// not overwritten.
		latest, err := l.guard.store.Get(ctx, stubID)
		if err != nil {
			unlock()
			return nil, err
		}
		if latest.Destination.Key() != key {
			// A concurrent update moved the stub; lock its new home.
			unlock()
			current = latest
			continue
		}

		updated, err := l.transition(ctx, latest, next)
		unlock()
		return updated, err
	}
}

func (l *Lifecycle) transition(ctx context.Context, current *stub.Stub, next stub.Status) (*stub.Stub, error) {
	if current.Status == next {
		return current, nil
	}
	if !current.Status.CanTransition(next) {
		return nil, &stub.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %q to %q", current.Status, next),
		}
	}

	current.Status = next
	current.UpdatedAt = time.Now().UTC()
	if err := l.guard.store.Put(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
