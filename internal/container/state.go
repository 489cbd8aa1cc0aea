package container

import (
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
)

// State is the live state of one container.
type State struct {
	Element *html.Node
	Proxies *proxy.Registry
	Symbols *qrl.Registry
	Logger  *slog.Logger
	// Dev enables internal-consistency diagnostics and indented snapshots.
	Dev bool

	contexts map[*html.Node]*Context
}

// Option configures a State at creation.
type Option func(*State)

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.Logger = l
		}
	}
}

// WithDev toggles development diagnostics.
func WithDev(dev bool) Option {
	return func(s *State) {
		s.Dev = dev
	}
}

// WithSymbols sets the closure symbol registry.
func WithSymbols(reg *qrl.Registry) Option {
	return func(s *State) {
		if reg != nil {
			s.Symbols = reg
		}
	}
}

// New creates a standalone State for el. Most callers want For.
func New(el *html.Node, opts ...Option) *State {
	s := &State{
		Element:  el,
		Proxies:  proxy.NewRegistry(),
		Symbols:  qrl.NewRegistry(),
		Logger:   slog.Default(),
		contexts: make(map[*html.Node]*Context),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	statesMu sync.Mutex
	states   = make(map[*html.Node]*State)
)

// For returns the State of container el, creating it on first use.
// opts only apply when the State is created.
func For(el *html.Node, opts ...Option) *State {
	statesMu.Lock()
	defer statesMu.Unlock()
	if s, ok := states[el]; ok {
		return s
	}
	s := New(el, opts...)
	states[el] = s
	return s
}

// Release drops the State of container el.
func Release(el *html.Node) {
	statesMu.Lock()
	defer statesMu.Unlock()
	delete(states, el)
}

// Document returns the document that owns the container, or nil when the
// container is detached.
func (s *State) Document() *html.Node {
	return dom.OwnerDocument(s.Element)
}

// Context returns the component context of el, creating an empty one.
func (s *State) Context(el *html.Node) *Context {
	if ctx, ok := s.contexts[el]; ok {
		return ctx
	}
	ctx := &Context{Element: el}
	s.contexts[el] = ctx
	return ctx
}

// TryContext returns the component context of el if one exists.
func (s *State) TryContext(el *html.Node) (*Context, bool) {
	ctx, ok := s.contexts[el]
	return ctx, ok
}

// HasContext reports whether el carries component state.
func (s *State) HasContext(el *html.Node) bool {
	_, ok := s.contexts[el]
	return ok
}

// DropContext forgets the component context of el.
func (s *State) DropContext(el *html.Node) {
	delete(s.contexts, el)
}
