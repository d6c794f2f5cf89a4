package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out "<prefix>-<n>" identifiers in place of the UUIDs the
// ledger uses in production, so tests can name the rows they expect.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next issues the next identifier.
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.issued.Add(1))
}

// NextFunc adapts the generator to the func() string services accept. A nil
// generator yields empty identifiers.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() int {
	return int(g.issued.Load())
}
