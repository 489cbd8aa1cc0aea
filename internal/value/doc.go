// Package value provides the runtime value types that make up a container's
// object graph.
//
// Reference types (*Object, *Array) carry identity: two fields holding the
// same pointer are the same value, and a snapshot preserves that sharing.
// Primitives (string, int64, float64, bool, nil) are compared by value.
//
// Key design constraints:
//   - Object keeps insertion order so snapshots are deterministic
//   - Undefined is distinct from nil (JSON null)
//   - Opaque marks a value that must never be serialized
//   - This package imports nothing internal
package value
