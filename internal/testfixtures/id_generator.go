package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out "<prefix>-<n>" identifiers and remembers every id it
// issued, so tests can refer to records created deep inside the engine.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued []string
}

// NewIDGenerator returns a generator for prefix, or "id" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next issues the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, len(g.issued)+1)
	g.issued = append(g.issued, id)
	return id
}

// NextFunc exposes Next for injection into services and the engine.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Last returns the most recently issued id, or "" before the first call.
func (g *IDGenerator) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.issued) == 0 {
		return ""
	}
	return g.issued[len(g.issued)-1]
}

// Issued returns a copy of every id handed out so far, in order.
func (g *IDGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}

// Reset forgets issued ids and restarts numbering at 1.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.issued = nil
	g.mu.Unlock()
}
