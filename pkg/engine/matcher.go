package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getstubd/stubd/internal/matching"
	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/selector"
	"github.com/getstubd/stubd/pkg/stub"
)

// DefaultResolveTimeout bounds the store read behind one resolution.
// On expiry the matcher reports the store unavailable rather than
// guessing a matching decision.
const DefaultResolveTimeout = 5 * time.Second

// Matcher selects the single best-matching active stub for an inbound
// request. It is read-only and safe for unbounded concurrent use; its
// output depends only on store state at invocation time, so identical
// requests against an unchanged store resolve identically.
type Matcher struct {
	store     storage.StubStore
	selectors *selector.Cache
	resolver  *Resolver
	log       *slog.Logger
	timeout   time.Duration
}

// NewMatcher creates a Matcher reading from the given store.
func NewMatcher(store storage.StubStore, log *slog.Logger) *Matcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Matcher{
		store:     store,
		selectors: selector.NewCache(selector.DefaultCacheSize),
		resolver:  NewResolver(),
		log:       log,
		timeout:   DefaultResolveTimeout,
	}
}

// Resolve picks the best-matching stub for the request and renders its
// response. No surviving candidate is a NoMatch result, not an error;
// an unreachable store is stub.ErrStoreUnavailable.
func (m *Matcher) Resolve(ctx context.Context, req *stub.MatchRequest) (*stub.MatchResult, error) {
	if req.Destination.IsZero() {
		return nil, &stub.ValidationError{Field: "destination", Message: "destination is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	candidates, err := m.store.ListByDestination(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("list stubs for %s: %w", req.Destination.Key(), err)
	}

	// Stores return ranking order (priority desc, updatedAt desc, id
	// asc), so the first survivor is the winner. Sorted again here so
	// a store that loses ordering cannot change the outcome.
	storage.SortStubs(candidates)

	for _, cand := range candidates {
		if !cand.Status.Matchable() {
			continue
		}
		if !m.selectorMatches(cand, req) {
			continue
		}
		if cand.ContentMatch != nil && !matching.Match(cand.ContentMatch, req.Payload) {
			continue
		}
		return &stub.MatchResult{
			Matched:  true,
			Stub:     cand,
			Response: m.resolver.Render(cand, req),
		}, nil
	}

	return stub.NoMatch(), nil
}

// selectorMatches evaluates the stub's selector against the request
// properties. Protocols without selector support skip the check. An
// unparsable or type-mismatched selector is a configuration defect
// flagged at write time; here it never matches and is logged, so one
// bad stub cannot break matching for its destination.
func (m *Matcher) selectorMatches(cand *stub.Stub, req *stub.MatchRequest) bool {
	if cand.Selector == "" || !cand.Protocol.Capabilities().Selector {
		return true
	}
	ok, err := m.selectors.Eval(cand.Selector, req.Properties)
	if err != nil {
		m.log.Warn("selector evaluation failed",
			"stub", cand.ID,
			"destination", cand.Destination.Key(),
			"selector", cand.Selector,
			"error", err)
		return false
	}
	return ok
}
