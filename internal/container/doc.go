// Package container holds the live state of one resumable container: the
// per-element component contexts, the proxy registry, the closure symbol
// registry, and the logger used for diagnostics.
//
// States are created lazily by For on first use and live until Release, so
// unrelated containers never share a proxy registry.
package container
