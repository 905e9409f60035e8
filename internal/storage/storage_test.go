package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/stub"
)

func newStub(id string, dest stub.Destination, priority int, status stub.Status) *stub.Stub {
	now := time.Now().UTC()
	return &stub.Stub{
		ID:          id,
		OwnerID:     "tester",
		Protocol:    stub.ProtocolActiveMQ,
		Name:        "stub-" + id,
		Destination: dest,
		Priority:    priority,
		Status:      status,
		Response:    stub.ResponseSpec{ContentType: "text/plain", Content: "ok"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// storeUnderTest runs the same battery against every StubStore
// implementation.
func storeUnderTest(t *testing.T, store StubStore) {
	t.Helper()
	ctx := context.Background()
	orders := stub.Destination{Type: "queue", Name: "orders"}
	billing := stub.Destination{Type: "queue", Name: "billing"}

	t.Run("get missing is not found", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, stub.ErrNotFound)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		s := newStub("s1", orders, 1, stub.StatusActive)
		s.Selector = "region = 'EU'"
		s.ContentMatch = &stub.ContentMatch{Type: stub.MatchContains, Pattern: "URGENT", CaseSensitive: true}
		s.Response.Headers = []stub.Header{{Name: "X-A", Value: "1"}, {Name: "X-B", Value: "2"}}
		s.Response.ReplyDestination = &stub.Destination{Type: "queue", Name: "replies"}
		s.Response.LatencyMs = 250
		require.NoError(t, store.Put(ctx, s))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, s.Selector, got.Selector)
		assert.Equal(t, s.ContentMatch, got.ContentMatch)
		assert.Equal(t, s.Response.Headers, got.Response.Headers)
		assert.Equal(t, s.Response.ReplyDestination, got.Response.ReplyDestination)
		assert.Equal(t, 250, got.Response.LatencyMs)
		assert.Equal(t, stub.ProtocolActiveMQ, got.Protocol)
	})

	t.Run("list by destination in ranking order", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, newStub("s2", orders, 5, stub.StatusActive)))
		require.NoError(t, store.Put(ctx, newStub("s3", orders, 3, stub.StatusDraft)))
		require.NoError(t, store.Put(ctx, newStub("s4", billing, 9, stub.StatusActive)))

		got, err := store.ListByDestination(ctx, orders)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "s2", got[0].ID)
		assert.Equal(t, "s3", got[1].ID)
		assert.Equal(t, "s1", got[2].ID)
	})

	t.Run("list by owner", func(t *testing.T) {
		other := newStub("s5", billing, 11, stub.StatusActive)
		other.OwnerID = "someone-else"
		require.NoError(t, store.Put(ctx, other))

		got, err := store.ListByOwner(ctx, "someone-else")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "s5", got[0].ID)
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStub("s2", orders, 7, stub.StatusInactive)
		require.NoError(t, store.Put(ctx, s))
		got, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, 7, got.Priority)
		assert.Equal(t, stub.StatusInactive, got.Status)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "s5"))
		_, err := store.Get(ctx, "s5")
		assert.ErrorIs(t, err, stub.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "s5"), stub.ErrNotFound)
	})

	t.Run("list all", func(t *testing.T) {
		got, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "stubd-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storeUnderTest(t, store)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := stub.Destination{Type: "queue", Name: "orders"}

	s := newStub("iso", orders, 1, stub.StatusActive)
	require.NoError(t, store.Put(ctx, s))

	// Mutating the caller's copy after Put must not affect the store.
	s.Priority = 99
	got, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Priority)

	// Nor may mutating a returned copy.
	got.Priority = 42
	again, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Priority)
}

func TestSortStubsTieBreaks(t *testing.T) {
	orders := stub.Destination{Type: "queue", Name: "orders"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := newStub("aaa", orders, 1, stub.StatusActive)
	a.UpdatedAt = base
	b := newStub("bbb", orders, 1, stub.StatusActive)
	b.UpdatedAt = base.Add(time.Minute)
	c := newStub("ccc", orders, 1, stub.StatusActive)
	c.UpdatedAt = base

	stubs := []*stub.Stub{a, c, b}
	SortStubs(stubs)

	// Same priority: most recent update first, then id for
	// determinism.
	assert.Equal(t, []string{"bbb", "aaa", "ccc"}, []string{stubs[0].ID, stubs[1].ID, stubs[2].ID})
}

func TestBreakerStorePassesThrough(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore(NewMemoryStore())
	orders := stub.Destination{Type: "queue", Name: "orders"}

	s := newStub("b1", orders, 1, stub.StatusActive)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)

	listed, err := store.ListByDestination(ctx, orders)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// Not-found is an ordinary outcome and must not trip the breaker.
	for i := 0; i < 10; i++ {
		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, stub.ErrNotFound)
	}
	_, err = store.Get(ctx, "b1")
	assert.NoError(t, err)
}
