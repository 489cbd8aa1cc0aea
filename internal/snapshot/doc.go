// Package snapshot pauses and resumes a container's object graph.
//
// Pause walks every element carrying component state, collects the values
// reachable from it, assigns each distinct value an integer id, and embeds
// the resulting State as escaped JSON in a <script type="qwik/json"> carrier:
//
//	{"ctx":{"#0":{"r":"0 1!"}},"objs":[{"count":1},"hi"],"subs":[null,null]}
//
// Resume reads the carrier back and rebuilds the graph in three passes:
//
//  1. Materialize every objs slot (sentinels, closures, array/record shapes)
//     and re-register subscription maps in the proxy registry.
//  2. Resolve string ids inside arrays, records, and closure captures.
//  3. Stage and apply per-element metadata from ctx.
//
// Pass 2 only resolves each slot's own fields, so forward references and
// cycles need no recursion.
//
// # Ids
//
// Object ids are base-36 indexes into objs; a trailing "!" asks for the
// value's reactive proxy. Element ids are "#" plus the base-36 q:id attribute
// and are always resolved against the live DOM.
//
// # Literals
//
// Inside arrays and records, numbers, booleans and null are written as JSON
// literals; every string is an id. Metadata in ctx always uses ids.
//
// # Errors
//
// Precondition failures on resume are logged and leave the DOM untouched.
// Broken id references are returned as *Error values; a failed Pause never
// embeds a snapshot.
package snapshot
