package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/stub"
)

const sampleCollection = `version: "1"
stubs:
  - protocol: activemq
    name: urgent-orders
    destination:
      type: queue
      name: orders
    selector: "region = 'EU'"
    contentMatch:
      type: contains
      pattern: URGENT
      caseSensitive: true
    priority: 5
    status: active
    response:
      contentType: application/json
      content: '{"expedite":true}'
      latencyMs: 100
  - protocol: activemq
    name: default-orders
    destination:
      type: queue
      name: orders
    priority: 1
    status: active
    response:
      contentType: application/json
      content: '{"expedite":false}'
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStubFile(t *testing.T) {
	coll, err := LoadStubFile(writeTemp(t, sampleCollection))
	require.NoError(t, err)
	require.Len(t, coll.Stubs, 2)
	assert.Equal(t, "urgent-orders", coll.Stubs[0].Name)
	assert.Equal(t, stub.MatchContains, coll.Stubs[0].ContentMatch.Type)
	assert.Equal(t, 100, coll.Stubs[0].Response.LatencyMs)
}

func TestLoadStubFileRejectsInvalidStub(t *testing.T) {
	bad := `stubs:
  - protocol: carrier-pigeon
    destination:
      type: queue
      name: orders
    priority: 1
    status: active
    response:
      content: ok
`
	_, err := LoadStubFile(writeTemp(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol")
}

func TestLoadStubFileMissing(t *testing.T) {
	_, err := LoadStubFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadStubFileMalformedYAML(t *testing.T) {
	_, err := LoadStubFile(writeTemp(t, "stubs: [unclosed"))
	assert.Error(t, err)
}

// The collection lists the high-priority stub first; seeding must still
// succeed because stubs are applied in ascending priority order.
func TestSeedAppliesAscendingPriority(t *testing.T) {
	eng := engine.New(storage.NewMemoryStore(), logging.Nop())
	coll, err := LoadStubFile(writeTemp(t, sampleCollection))
	require.NoError(t, err)

	n, err := Seed(context.Background(), eng, coll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stubs, err := eng.ListStubs(context.Background(), engine.ListFilter{})
	require.NoError(t, err)
	require.Len(t, stubs, 2)
	assert.Equal(t, "urgent-orders", stubs[0].Name)
}

func TestSeedStopsOnConflict(t *testing.T) {
	eng := engine.New(storage.NewMemoryStore(), logging.Nop())
	coll, err := LoadStubFile(writeTemp(t, sampleCollection))
	require.NoError(t, err)

	_, err = Seed(context.Background(), eng, coll)
	require.NoError(t, err)

	// Seeding the same collection twice duplicates priorities.
	n, err := Seed(context.Background(), eng, coll)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	_, ok := stub.IsPriorityConflict(err)
	assert.True(t, ok)
}
