package qrl

import (
	"fmt"
	"sort"
	"sync"
)

// Func is a closure body. captured holds the QRL's captured values in
// capture order.
type Func func(captured []any, args ...any) (any, error)

// Registry stores closure bodies keyed by chunk and symbol.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]Func
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{symbols: make(map[string]Func)}
}

func registryKey(chunk, symbol string) string {
	return normalize(chunk) + "#" + normalize(symbol)
}

// Register stores fn under chunk#symbol guarding against duplicates.
func (r *Registry) Register(chunk, symbol string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("qrl: function %s#%s is nil", chunk, symbol)
	}
	if symbol == "" {
		return fmt.Errorf("qrl: symbol must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.symbols == nil {
		r.symbols = make(map[string]Func)
	}
	key := registryKey(chunk, symbol)
	if _, exists := r.symbols[key]; exists {
		return fmt.Errorf("qrl: symbol %q already registered", key)
	}
	r.symbols[key] = fn
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(chunk, symbol string, fn Func) {
	if err := r.Register(chunk, symbol, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered for chunk#symbol.
func (r *Registry) Lookup(chunk, symbol string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.symbols[registryKey(chunk, symbol)]
	return fn, ok
}

// Names returns registered keys sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.symbols))
	for name := range r.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
