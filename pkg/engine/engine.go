package engine

import (
	"context"
	"log/slog"

	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/stub"
)

// Engine bundles the matcher, the write-path guard and the lifecycle
// controller over one store. The administrative API and the CLI talk
// to this facade; protocol adapters only need Resolve.
type Engine struct {
	store     storage.StubStore
	guard     *Guard
	matcher   *Matcher
	lifecycle *Lifecycle
	resolver  *Resolver
	log       *slog.Logger
}

// New creates an Engine over the given store.
func New(store storage.StubStore, log *slog.Logger) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	guard := NewGuard(store)
	return &Engine{
		store:     store,
		guard:     guard,
		matcher:   NewMatcher(store, log),
		lifecycle: NewLifecycle(guard),
		resolver:  NewResolver(),
		log:       log,
	}
}

// Resolve selects and renders the best-matching stub for the request.
func (e *Engine) Resolve(ctx context.Context, req *stub.MatchRequest) (*stub.MatchResult, error) {
	return e.matcher.Resolve(ctx, req)
}

// Deliver applies a rendered response's scheduled latency.
func (e *Engine) Deliver(ctx context.Context, res *stub.RenderedResponse) error {
	return e.resolver.Deliver(ctx, res)
}

// CreateStub validates and persists a new stub through the guard.
func (e *Engine) CreateStub(ctx context.Context, st *stub.Stub) (*stub.Stub, error) {
	return e.guard.Create(ctx, st)
}

// UpdateStub validates and persists changes to an existing stub.
func (e *Engine) UpdateStub(ctx context.Context, st *stub.Stub) (*stub.Stub, error) {
	return e.guard.Update(ctx, st)
}

// UpdateStatus applies a lifecycle transition.
func (e *Engine) UpdateStatus(ctx context.Context, id string, next stub.Status) (*stub.Stub, error) {
	return e.lifecycle.UpdateStatus(ctx, id, next)
}

// GetStub retrieves a stub by id.
func (e *Engine) GetStub(ctx context.Context, id string) (*stub.Stub, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultResolveTimeout)
	defer cancel()
	return e.store.Get(ctx, id)
}

// DeleteStub removes a stub entirely. Irreversible.
func (e *Engine) DeleteStub(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultWriteTimeout)
	defer cancel()
	return e.store.Delete(ctx, id)
}

// ListFilter narrows administrative listings. Zero fields match
// everything.
type ListFilter struct {
	DestinationType string
	DestinationName string
	OwnerID         string
	Protocol        stub.Protocol
	Status          stub.Status
}

// ListStubs returns stubs matching the filter in ranking order. All
// statuses are visible here; only the matcher is restricted to active
// stubs.
func (e *Engine) ListStubs(ctx context.Context, filter ListFilter) ([]*stub.Stub, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultResolveTimeout)
	defer cancel()

	var (
		stubs []*stub.Stub
		err   error
	)
	switch {
	case filter.DestinationType != "" && filter.DestinationName != "":
		stubs, err = e.store.ListByDestination(ctx, stub.Destination{
			Type: filter.DestinationType,
			Name: filter.DestinationName,
		})
	case filter.OwnerID != "":
		stubs, err = e.store.ListByOwner(ctx, filter.OwnerID)
	default:
		stubs, err = e.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	filtered := stubs[:0]
	for _, s := range stubs {
		if filter.DestinationType != "" && s.Destination.Type != filter.DestinationType {
			continue
		}
		if filter.DestinationName != "" && s.Destination.Name != filter.DestinationName {
			continue
		}
		if filter.OwnerID != "" && s.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Protocol != "" && s.Protocol != filter.Protocol {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered, nil
}

// Store exposes the underlying store for seeding and diagnostics.
func (e *Engine) Store() storage.StubStore {
	return e.store
}
