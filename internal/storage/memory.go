package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/getstubd/stubd/pkg/stub"
)

// MemoryStore is a thread-safe in-memory StubStore. Stubs are deep
// copied on the way in and out so callers can never mutate stored
// state behind the store's back.
type MemoryStore struct {
	mu    sync.RWMutex
	stubs map[string]*stub.Stub
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stubs: make(map[string]*stub.Stub)}
}

// Get retrieves a stub by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*stub.Stub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, ok := s.stubs[id]
	if !ok {
		return nil, stub.ErrNotFound
	}
	return found.Clone(), nil
}

// Put stores or replaces a stub keyed by its ID.
func (s *MemoryStore) Put(ctx context.Context, st *stub.Stub) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[st.ID] = st.Clone()
	return nil
}

// Delete removes a stub.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stubs[id]; !ok {
		return stub.ErrNotFound
	}
	delete(s.stubs, id)
	return nil
}

// List returns all stubs in ranking order.
func (s *MemoryStore) List(ctx context.Context) ([]*stub.Stub, error) {
	return s.collect(func(*stub.Stub) bool { return true }), nil
}

// ListByDestination returns all stubs for the destination in ranking
// order.
func (s *MemoryStore) ListByDestination(ctx context.Context, d stub.Destination) ([]*stub.Stub, error) {
	return s.collect(func(st *stub.Stub) bool { return st.Destination == d }), nil
}

// ListByOwner returns all stubs created by the owner.
func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]*stub.Stub, error) {
	return s.collect(func(st *stub.Stub) bool { return st.OwnerID == ownerID }), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) collect(keep func(*stub.Stub) bool) []*stub.Stub {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*stub.Stub, 0, len(s.stubs))
	for _, st := range s.stubs {
		if keep(st) {
			result = append(result, st.Clone())
		}
	}
	SortStubs(result)
	return result
}

// SortStubs orders stubs by priority (descending), then most recent
// update, then ID. This is the canonical listing and ranking order.
func SortStubs(stubs []*stub.Stub) {
	sort.Slice(stubs, func(i, j int) bool {
		if stubs[i].Priority != stubs[j].Priority {
			return stubs[i].Priority > stubs[j].Priority
		}
		if !stubs[i].UpdatedAt.Equal(stubs[j].UpdatedAt) {
			return stubs[i].UpdatedAt.After(stubs[j].UpdatedAt)
		}
		return stubs[i].ID < stubs[j].ID
	})
}

// Ensure MemoryStore implements StubStore.
var _ StubStore = (*MemoryStore)(nil)
