// Package qrl implements lazily-resolved closure descriptors.
//
// A QRL names a function by chunk and symbol and carries the values it
// captured. Only the descriptor is ever serialized:
//
//	chunk#symbol[id id ...]
//
// where each id refers to a captured value in the snapshot. The function
// itself is looked up in a Registry when the QRL is invoked, so a revived
// QRL calls the same underlying function as the original.
package qrl
