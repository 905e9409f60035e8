package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/stub"
)

func TestLifecycleTransitions(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	lc := NewLifecycle(g)
	ctx := context.Background()

	s := draftStub(1)
	s.Status = stub.StatusDraft
	created, err := g.Create(ctx, s)
	require.NoError(t, err)

	activated, err := lc.UpdateStatus(ctx, created.ID, stub.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, stub.StatusActive, activated.Status)
	assert.True(t, activated.UpdatedAt.After(created.UpdatedAt) || activated.UpdatedAt.Equal(created.UpdatedAt))

	paused, err := lc.UpdateStatus(ctx, created.ID, stub.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, stub.StatusInactive, paused.Status)

	resumed, err := lc.UpdateStatus(ctx, created.ID, stub.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, stub.StatusActive, resumed.Status)
}

func TestLifecycleIllegalTransition(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	lc := NewLifecycle(g)
	ctx := context.Background()

	s := draftStub(1)
	s.Status = stub.StatusDraft
	created, err := g.Create(ctx, s)
	require.NoError(t, err)

	// draft -> inactive skips activation.
	_, err = lc.UpdateStatus(ctx, created.ID, stub.StatusInactive)
	require.Error(t, err)
	_, ok := stub.IsValidation(err)
	assert.True(t, ok)
}

func TestLifecycleArchivedIsTerminal(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	lc := NewLifecycle(g)
	ctx := context.Background()

	created, err := g.Create(ctx, draftStub(1))
	require.NoError(t, err)

	archived, err := lc.UpdateStatus(ctx, created.ID, stub.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, stub.StatusArchived, archived.Status)

	for _, next := range []stub.Status{stub.StatusDraft, stub.StatusActive, stub.StatusInactive} {
		_, err := lc.UpdateStatus(ctx, created.ID, next)
		require.Error(t, err, "archived -> %s must fail", next)
		_, ok := stub.IsValidation(err)
		assert.True(t, ok)
	}
}

func TestLifecycleSameStatusIsNoOp(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	lc := NewLifecycle(g)
	ctx := context.Background()

	created, err := g.Create(ctx, draftStub(1)) // active
	require.NoError(t, err)

	same, err := lc.UpdateStatus(ctx, created.ID, stub.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, same.UpdatedAt)
}

func TestLifecycleUnknownStub(t *testing.T) {
	lc := NewLifecycle(NewGuard(storage.NewMemoryStore()))
	_, err := lc.UpdateStatus(context.Background(), "ghost", stub.StatusActive)
	assert.ErrorIs(t, err, stub.ErrNotFound)
}

func TestLifecycleRejectsUnknownStatus(t *testing.T) {
	lc := NewLifecycle(NewGuard(storage.NewMemoryStore()))
	_, err := lc.UpdateStatus(context.Background(), "any", stub.Status("frozen"))
	require.Error(t, err)
	_, ok := stub.IsValidation(err)
	assert.True(t, ok)
}

// A status transition racing a field update on the same stub must not
// lose either write: both run under the destination's write lock, so
// whichever lands second observes the first. The archive always sticks
// (it either applies last, or applies first and blocks the update),
// and a successful update is never reverted by a stale put.
func TestLifecycleSerializedWithGuard(t *testing.T) {
	for i := 0; i < 25; i++ {
		store := storage.NewMemoryStore()
		g := NewGuard(store)
		lc := NewLifecycle(g)
		ctx := context.Background()

		created, err := g.Create(ctx, draftStub(1))
		require.NoError(t, err)

		var wg sync.WaitGroup
		var archiveErr, updateErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, archiveErr = lc.UpdateStatus(ctx, created.ID, stub.StatusArchived)
		}()
		go func() {
			defer wg.Done()
			changed := created.Clone()
			changed.Response.Content = "updated"
			_, updateErr = g.Update(ctx, changed)
		}()
		wg.Wait()

		require.NoError(t, archiveErr)

		final, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, stub.StatusArchived, final.Status)
		if updateErr == nil {
			assert.Equal(t, "updated", final.Response.Content)
		} else {
			_, ok := stub.IsValidation(updateErr)
			assert.True(t, ok, "unexpected error: %v", updateErr)
		}
	}
}
