package selector

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled selectors kept
// resident. Stubs at a busy destination are re-evaluated on every
// inbound message, so compilation must not repeat per message.
const DefaultCacheSize = 1024

type cached struct {
	prog *Program
	err  error
}

// Cache memoizes compiled selectors by expression text. Compile
// failures are cached too, so a malformed selector does not pay the
// parse cost on every message either.
type Cache struct {
	programs *lru.Cache[string, cached]
}

// NewCache creates a cache holding up to size compiled selectors.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.New[string, cached](size)
	return &Cache{programs: c}
}

// Eval compiles (or fetches) the selector and evaluates it against
// the properties. An empty selector matches everything.
func (c *Cache) Eval(sel string, properties map[string]any) (bool, error) {
	if sel == "" {
		return true, nil
	}
	entry, ok := c.programs.Get(sel)
	if !ok {
		prog, err := Compile(sel)
		entry = cached{prog: prog, err: err}
		c.programs.Add(sel, entry)
	}
	if entry.err != nil {
		return false, entry.err
	}
	return entry.prog.Eval(properties)
}
