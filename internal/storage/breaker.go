package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/getstubd/stubd/pkg/stub"
)

// BreakerStore wraps a StubStore with a circuit breaker. When the
// backing store fails repeatedly, subsequent calls fail fast with
// stub.ErrStoreUnavailable instead of each waiting out its timeout.
// Lookup misses (stub.ErrNotFound) are ordinary outcomes and do not
// trip the breaker.
type BreakerStore struct {
	inner StubStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner with a circuit breaker named for
// diagnostics.
func NewBreakerStore(inner StubStore) *BreakerStore {
	settings := gobreaker.Settings{
		Name:    "stub-store",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, stub.ErrNotFound)
		},
	}
	return &BreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, stub.ErrStoreUnavailable
	}
	return out, err
}

// Get retrieves a stub by ID.
func (b *BreakerStore) Get(ctx context.Context, id string) (*stub.Stub, error) {
	out, err := b.execute(func() (any, error) { return b.inner.Get(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*stub.Stub), nil
}

// Put stores or replaces a stub.
func (b *BreakerStore) Put(ctx context.Context, st *stub.Stub) error {
	_, err := b.execute(func() (any, error) { return nil, b.inner.Put(ctx, st) })
	return err
}

// Delete removes a stub.
func (b *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := b.execute(func() (any, error) { return nil, b.inner.Delete(ctx, id) })
	return err
}

// List returns all stubs.
func (b *BreakerStore) List(ctx context.Context) ([]*stub.Stub, error) {
	return b.list(func() (any, error) { return b.inner.List(ctx) })
}

// ListByDestination returns all stubs for the destination.
func (b *BreakerStore) ListByDestination(ctx context.Context, d stub.Destination) ([]*stub.Stub, error) {
	return b.list(func() (any, error) { return b.inner.ListByDestination(ctx, d) })
}

// ListByOwner returns all stubs created by the owner.
func (b *BreakerStore) ListByOwner(ctx context.Context, ownerID string) ([]*stub.Stub, error) {
	return b.list(func() (any, error) { return b.inner.ListByOwner(ctx, ownerID) })
}

func (b *BreakerStore) list(fn func() (any, error)) ([]*stub.Stub, error) {
	out, err := b.execute(fn)
	if err != nil {
		return nil, err
	}
	return out.([]*stub.Stub), nil
}

// Close closes the underlying store.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

// Ensure BreakerStore implements StubStore.
var _ StubStore = (*BreakerStore)(nil)
