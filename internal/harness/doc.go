// Package harness runs pause/resume scenarios as executable contract
// tests.
//
// # Scenario Format
//
// Scenarios are YAML files validated against the CUE schema in package
// schema:
//
//	name: counter
//	description: "Counter with a click listener"
//	html: |
//	  <html><head></head><body><div id="app"><button id="btn">0</button></div></body></html>
//	container: app
//	values:
//	  state:
//	    object: {count: 1}
//	  store:
//	    proxy: state
//	    subscribers:
//	      - ref: "@btn"
//	        props: [count]
//	  onClick:
//	    closure: {chunk: app.js, symbol: onClick, captures: ["$store"]}
//	elements:
//	  btn:
//	    refs: ["$store"]
//	    listeners:
//	      click: ["$onClick"]
//	assertions:
//	  - type: revived
//	    element: btn
//	    path: refs.0.count
//	    value: 1
//
// Strings starting with "$" reference named values (plus the built-ins
// $undefined, $document, $opaque and $detached); strings starting with "@"
// reference elements by id attribute.
//
// # Execution
//
// Run builds the graph, pauses the container, stores the paused document
// in an in-memory store, restores it as a new document and resumes it.
// The revived graph must be isomorphic to the original one: same shapes,
// same sharing, same proxies and subscriptions, elements matched by q:id.
//
// The following assertion types are supported:
//
//   - objs_count: the number of objs entries
//   - revived: a value reached by a path from a revived element
//   - listener: a listener line in the paused document
//   - log: a captured diagnostics record
//
// # Deterministic Testing
//
// Every run uses a deterministic clock and id sequence, so Report output
// is stable and can be compared against golden files with RunWithGolden.
package harness
