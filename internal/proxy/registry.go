package proxy

import (
	"fmt"
	"sync"

	"github.com/roach88/resumable/internal/value"
)

// Proxy is the reactive wrapper of a raw *value.Object or *value.Array.
type Proxy struct {
	target any
	subs   *SubscriptionMap
}

// Target returns the raw wrapped value.
func (p *Proxy) Target() any {
	return p.target
}

// Subscriptions returns the live subscription map of the proxy.
func (p *Proxy) Subscriptions() *SubscriptionMap {
	return p.subs
}

// Target returns the raw value behind v when v is a proxy.
func Target(v any) (any, bool) {
	if p, ok := v.(*Proxy); ok && p != nil {
		return p.target, true
	}
	return nil, false
}

// Registry maps raw targets to their single proxy.
//
// Thread-safety: safe for concurrent use; a container's pause/resume still
// runs on a single goroutine.
type Registry struct {
	mu      sync.Mutex
	proxies map[any]*Proxy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{proxies: make(map[any]*Proxy)}
}

// Wrap returns the proxy for target, creating it on first use.
// Wrapping a proxy returns that proxy.
func (r *Registry) Wrap(target any) (*Proxy, error) {
	return r.WrapWith(target, nil)
}

// WrapWith is Wrap that also registers subs against the target. When the
// proxy already exists, subs is merged into its map.
func (r *Registry) WrapWith(target any, subs *SubscriptionMap) (*Proxy, error) {
	if p, ok := target.(*Proxy); ok {
		if subs != nil {
			p.subs.merge(subs)
		}
		return p, nil
	}
	switch value.KindOf(target) {
	case value.KindObject, value.KindArray:
	default:
		return nil, fmt.Errorf("proxy: cannot wrap %s value", value.KindOf(target))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proxies == nil {
		r.proxies = make(map[any]*Proxy)
	}
	if p, ok := r.proxies[target]; ok {
		if subs != nil {
			p.subs.merge(subs)
		}
		return p, nil
	}
	if subs == nil {
		subs = NewSubscriptionMap()
	}
	p := &Proxy{target: target, subs: subs}
	r.proxies[target] = p
	return p, nil
}

// MustWrap is like Wrap but panics on error.
// Use only in tests or when target is known to be an object or array.
func (r *Registry) MustWrap(target any) *Proxy {
	p, err := r.Wrap(target)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup returns the existing proxy for target without creating one.
func (r *Registry) Lookup(target any) (*Proxy, bool) {
	if !isProxyable(target) {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[target]
	return p, ok
}

// Len returns the number of registered proxies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

func isProxyable(v any) bool {
	k := value.KindOf(v)
	return k == value.KindObject || k == value.KindArray
}
