package store

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces snapshot ids.
type IDGenerator interface {
	Generate() string
}

// Clock produces snapshot seq values.
type Clock interface {
	Next() int64
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// LogicalClock is a monotonic seq counter.
//
// Thread-safety: safe for concurrent use (atomic operations).
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClockAt creates a clock whose next value is start+1.
// Open uses it to continue from the highest stored seq.
func NewLogicalClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
