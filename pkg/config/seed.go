package config

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/getstubd/stubd/pkg/stub"
)

// StubCollection is the on-disk format for seeding stubs: a YAML
// document holding a list of stub definitions.
type StubCollection struct {
	Version string       `yaml:"version,omitempty"`
	Stubs   []*stub.Stub `yaml:"stubs"`
}

// StubCreator is the slice of the engine the seeder needs.
type StubCreator interface {
	CreateStub(ctx context.Context, st *stub.Stub) (*stub.Stub, error)
}

// LoadStubFile reads and validates one stub collection.
func LoadStubFile(path string) (*StubCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stub file: %w", err)
	}
	var coll StubCollection
	if err := yaml.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, st := range coll.Stubs {
		if st == nil {
			return nil, fmt.Errorf("%s: stub %d is empty", path, i)
		}
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("%s: stub %d (%s): %w", path, i, st.Name, err)
		}
	}
	return &coll, nil
}

// Seed writes a collection through the engine's guarded create path,
// so seeded stubs obey the same priority invariant as administrative
// writes. Stubs are applied in ascending priority order per
// destination; each write must exceed the destination's current
// maximum, so any other order would reject valid collections.
func Seed(ctx context.Context, creator StubCreator, coll *StubCollection) (int, error) {
	stubs := make([]*stub.Stub, len(coll.Stubs))
	copy(stubs, coll.Stubs)
	sort.SliceStable(stubs, func(i, j int) bool {
		return stubs[i].Priority < stubs[j].Priority
	})

	seeded := 0
	for _, st := range stubs {
		if _, err := creator.CreateStub(ctx, st); err != nil {
			return seeded, fmt.Errorf("seed stub %q at %s: %w", st.Name, st.Destination.Key(), err)
		}
		seeded++
	}
	return seeded, nil
}
