// Package dom holds the DOM primitives the pause/resume engine needs on top of
// golang.org/x/net/html: attribute access, connectivity, scope walking,
// container markers, the snapshot carrier script, and custom events.
//
// A node is connected when its ancestor chain ends at an html.DocumentNode.
// Detached subtrees (built but never inserted) are not connected and never
// receive element ids.
package dom
