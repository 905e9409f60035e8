package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getstubd/stubd/internal/id"
	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/stub"
)

// DefaultWriteTimeout bounds the check-then-persist sequence of one
// write.
const DefaultWriteTimeout = 5 * time.Second

// Guard is the stub write path. It validates stubs, assigns IDs and
// timestamps, and enforces the priority invariant: among non-archived
// stubs at one destination, priorities are strictly unique and a
// write must exceed the destination's current maximum.
//
// The check and the persist run under a per-destination lock, so two
// concurrent writes for the same destination cannot both observe the
// same maximum and both succeed. Unrelated destinations are fully
// concurrent.
type Guard struct {
	store   storage.StubStore
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a Guard writing through the given store.
func NewGuard(store storage.StubStore) *Guard {
	return &Guard{
		store:   store,
		timeout: DefaultWriteTimeout,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Create validates and persists a new stub. The stub is created in
// draft or active state; ID and timestamps are assigned here and the
// caller's ID field is ignored.
func (g *Guard) Create(ctx context.Context, st *stub.Stub) (*stub.Stub, error) {
	created := st.Clone()
	if created.Status == "" {
		created.Status = stub.StatusDraft
	}
	if created.Status != stub.StatusDraft && created.Status != stub.StatusActive {
		return nil, &stub.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("stubs are created in %q or %q state, not %q", stub.StatusDraft, stub.StatusActive, created.Status),
		}
	}
	if err := created.Validate(); err != nil {
		return nil, err
	}

	created.ID = id.New()
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	unlock := g.lock(created.Destination.Key())
	defer unlock()

	if err := g.checkPriority(ctx, created.Destination, created.Priority, ""); err != nil {
		return nil, err
	}
	if err := g.store.Put(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update validates and persists changes to an existing stub. ID,
// owner and creation time are immutable; a status change must be a
// legal lifecycle transition. When the update moves the stub to a new
// destination, both destinations are locked (in sorted order) and the
// priority is checked against the new one.
func (g *Guard) Update(ctx context.Context, st *stub.Stub) (*stub.Stub, error) {
	if st.ID == "" {
		return nil, &stub.ValidationError{Field: "id", Message: "id is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	existing, err := g.store.Get(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	updated := st.Clone()
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	if updated.Status == "" {
		updated.Status = existing.Status
	}
	if updated.Status != existing.Status && !existing.Status.CanTransition(updated.Status) {
		return nil, &stub.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %q to %q", existing.Status, updated.Status),
		}
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()

	unlock := g.lockBoth(existing.Destination.Key(), updated.Destination.Key())
	defer unlock()

	if err := g.checkPriority(ctx, updated.Destination, updated.Priority, updated.ID); err != nil {
		return nil, err
	}
	if err := g.store.Put(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// checkPriority rejects the candidate priority unless it is strictly
// greater than every priority registered for the destination among
// non-archived stubs (the candidate itself excluded on updates).
// Archived stubs are historical and do not constrain new priorities.
func (g *Guard) checkPriority(ctx context.Context, d stub.Destination, priority int, excludeID string) error {
	stubs, err := g.store.ListByDestination(ctx, d)
	if err != nil {
		return err
	}

	max := -1
	duplicate := false
	for _, s := range stubs {
		if s.ID == excludeID || s.Status.Archived() {
			continue
		}
		if s.Priority > max {
			max = s.Priority
		}
		if s.Priority == priority {
			duplicate = true
		}
	}

	if priority < max || duplicate {
		return &stub.PriorityConflictError{
			Destination: d,
			Priority:    priority,
			MaxPriority: max,
		}
	}
	return nil
}

// lock acquires the per-destination mutex, creating it on first use.
// The returned func releases it.
func (g *Guard) lock(key string) func() {
	g.mu.Lock()
	m, ok := g.locks[key]
	if !ok {
		m = &sync.Mutex{}
		g.locks[key] = m
	}
	g.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// lockBoth acquires the locks of two destinations in sorted key order
// so concurrent cross-destination updates cannot deadlock.
func (g *Guard) lockBoth(a, b string) func() {
	if a == b {
		return g.lock(a)
	}
	if a > b {
		a, b = b, a
	}
	unlockA := g.lock(a)
	unlockB := g.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}
