package testutil

import "fmt"

// SequenceGenerator generates predictable ids: "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic store ids and golden snapshot comparison.
// The same scenario with a fresh SequenceGenerator produces byte-identical
// output.
//
// Thread-safety: safe for concurrent use; the counter is a DeterministicClock.
type SequenceGenerator struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequenceGenerator creates a generator. If prefix is empty, "test" is
// used.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceGenerator{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.clock.Next())
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.clock.Reset()
}
