// Package storage provides stub persistence: the StubStore interface,
// an in-memory implementation, a SQLite implementation, and a
// circuit-breaker wrapper that fails fast when the backing store is
// unhealthy.
package storage

import (
	"context"

	"github.com/getstubd/stubd/pkg/stub"
)

// StubStore is the persistence interface the engine and the
// administrative layer share. Implementations must be safe for
// concurrent use. Lookups on missing IDs return stub.ErrNotFound;
// stores that can lose their backend report stub.ErrStoreUnavailable.
type StubStore interface {
	// Get retrieves a stub by ID.
	Get(ctx context.Context, id string) (*stub.Stub, error)

	// Put stores or replaces a stub keyed by its ID.
	Put(ctx context.Context, s *stub.Stub) error

	// Delete removes a stub. Irreversible.
	Delete(ctx context.Context, id string) error

	// List returns all stubs ordered by priority (descending), then
	// most recent update, then ID.
	List(ctx context.Context) ([]*stub.Stub, error)

	// ListByDestination returns all stubs registered for the
	// destination, in the same order as List.
	ListByDestination(ctx context.Context, d stub.Destination) ([]*stub.Stub, error)

	// ListByOwner returns all stubs created by the given owner.
	ListByOwner(ctx context.Context, ownerID string) ([]*stub.Stub, error)

	// Close releases any resources held by the store.
	Close() error
}
