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

func draftStub(priority int) *stub.Stub {
	return &stub.Stub{
		Protocol:    stub.ProtocolActiveMQ,
		Name:        "guard-test",
		Destination: ordersQueue,
		Priority:    priority,
		Status:      stub.StatusActive,
		Response:    stub.ResponseSpec{ContentType: "text/plain", Content: "ok"},
	}
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())

	created, err := g.Create(context.Background(), draftStub(1))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestCreateDefaultsToDraft(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())

	s := draftStub(1)
	s.Status = ""
	created, err := g.Create(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, stub.StatusDraft, created.Status)
}

func TestCreateRejectsTerminalStatus(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())

	s := draftStub(1)
	s.Status = stub.StatusArchived
	_, err := g.Create(context.Background(), s)
	require.Error(t, err)
	_, ok := stub.IsValidation(err)
	assert.True(t, ok)
}

// Priorities must be strictly orderable per destination: equal or
// lower than the current maximum is a conflict carrying that maximum.
func TestCreatePriorityConflicts(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := g.Create(ctx, draftStub(1))
	require.NoError(t, err)
	_, err = g.Create(ctx, draftStub(5))
	require.NoError(t, err)

	// Duplicate of an existing priority.
	_, err = g.Create(ctx, draftStub(1))
	pc, ok := stub.IsPriorityConflict(err)
	require.True(t, ok)
	assert.Equal(t, 5, pc.MaxPriority)
	assert.Equal(t, 1, pc.Priority)
	assert.Equal(t, ordersQueue, pc.Destination)

	// Below the maximum.
	_, err = g.Create(ctx, draftStub(3))
	_, ok = stub.IsPriorityConflict(err)
	assert.True(t, ok)

	// Strictly above the maximum is accepted.
	_, err = g.Create(ctx, draftStub(6))
	assert.NoError(t, err)
}

func TestCreateIndependentDestinations(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := g.Create(ctx, draftStub(5))
	require.NoError(t, err)

	other := draftStub(1)
	other.Destination = stub.Destination{Type: "queue", Name: "billing"}
	_, err = g.Create(ctx, other)
	assert.NoError(t, err)
}

// Archived stubs are historical: they do not constrain new priorities.
func TestArchivedStubsExcludedFromGuard(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	lc := NewLifecycle(g)
	ctx := context.Background()

	high, err := g.Create(ctx, draftStub(10))
	require.NoError(t, err)

	_, err = g.Create(ctx, draftStub(3))
	_, ok := stub.IsPriorityConflict(err)
	require.True(t, ok)

	_, err = lc.UpdateStatus(ctx, high.ID, stub.StatusArchived)
	require.NoError(t, err)

	_, err = g.Create(ctx, draftStub(3))
	assert.NoError(t, err)
}

func TestUpdateKeepsImmutableFields(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	orig := draftStub(1)
	orig.OwnerID = "alice"
	created, err := g.Create(ctx, orig)
	require.NoError(t, err)

	changed := created.Clone()
	changed.OwnerID = "mallory"
	changed.Priority = 2
	changed.Response.Content = "updated"

	updated, err := g.Update(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.OwnerID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "updated", updated.Response.Content)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

// An update keeping its own priority must not conflict with itself.
func TestUpdateExcludesSelfFromCheck(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	created, err := g.Create(ctx, draftStub(5))
	require.NoError(t, err)

	same := created.Clone()
	same.Response.Content = "new content"
	_, err = g.Update(ctx, same)
	assert.NoError(t, err)
}

func TestUpdateConflictsWithOthers(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := g.Create(ctx, draftStub(5))
	require.NoError(t, err)
	second, err := g.Create(ctx, draftStub(7))
	require.NoError(t, err)

	demoted := second.Clone()
	demoted.Priority = 5
	_, err = g.Update(ctx, demoted)
	pc, ok := stub.IsPriorityConflict(err)
	require.True(t, ok)
	assert.Equal(t, 5, pc.MaxPriority)
}

func TestUpdateMovesDestination(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	created, err := g.Create(ctx, draftStub(5))
	require.NoError(t, err)

	moved := created.Clone()
	moved.Destination = stub.Destination{Type: "queue", Name: "billing"}
	moved.Priority = 1
	updated, err := g.Update(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, "billing", updated.Destination.Name)
}

func TestUpdateMissingStub(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())

	ghost := draftStub(1)
	ghost.ID = "does-not-exist"
	_, err := g.Update(context.Background(), ghost)
	assert.ErrorIs(t, err, stub.ErrNotFound)
}

func TestUpdateStatusTransitionChecked(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	created, err := g.Create(ctx, draftStub(1)) // active
	require.NoError(t, err)

	// active -> draft is not a legal transition.
	back := created.Clone()
	back.Status = stub.StatusDraft
	_, err = g.Update(ctx, back)
	require.Error(t, err)
	_, ok := stub.IsValidation(err)
	assert.True(t, ok)
}

// Two concurrent creations at the same destination with the same
// priority: exactly one may win. The per-destination lock makes the
// check-then-persist sequence atomic.
func TestConcurrentCreatesSameDestination(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Create(ctx, draftStub(7))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		_, ok := stub.IsPriorityConflict(err)
		assert.True(t, ok, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

// Writers at distinct destinations never contend on each other's
// invariant.
func TestConcurrentCreatesDistinctDestinations(t *testing.T) {
	g := NewGuard(storage.NewMemoryStore())
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := draftStub(1)
			s.Destination = stub.Destination{Type: "queue", Name: string(rune('a' + i))}
			_, errs[i] = g.Create(ctx, s)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
