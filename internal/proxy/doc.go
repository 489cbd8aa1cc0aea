// Package proxy provides the reactive proxy side table.
//
// A proxy is not a subtype of the value it wraps. The raw target and its
// wrapper are related through a Registry that maps each target to at most
// one *Proxy, so repeated Wrap calls on the same target return the same
// proxy and identity survives a pause/resume cycle.
//
// Read/write interception and dependency tracking live outside this package;
// the pause/resume engine only needs the target and its SubscriptionMap.
package proxy
