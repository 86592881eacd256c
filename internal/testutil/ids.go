package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator hands out "<prefix>-0001", "<prefix>-0002", ...
// so documents stored without an id get predictable identifiers in
// golden output.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator returns a generator using prefix, or "doc"
// when prefix is empty.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "doc"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID implements docstore.IDGenerator.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
