// Package store provides SQLite-backed storage for paused documents.
//
// Each persisted Pause is one snapshots row holding the rendered document,
// the decoded snapshot State as compact JSON, and a logical seq. The
// listener side list returned by the writer lives in the listeners table.
//
// # Ordering
//
// Rows are ordered by seq, a logical clock, never by wall time:
//
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Ids are UUIDv7 by default; tests inject a deterministic generator and
// clock for golden output.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
