package container

import (
	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/qrl"
)

// NamedValue is one named context entry.
type NamedValue struct {
	Name  string
	Value any
}

// Listener binds an event name to a closure.
type Listener struct {
	Event string
	QRL   *qrl.QRL
}

// Context is the component state attached to one element.
type Context struct {
	Element *html.Node

	// Props is the host props value, usually a proxy.
	Props any
	// Render is the component's render closure.
	Render *qrl.QRL
	// Seq holds hook sequence slots, watchers included.
	Seq []any
	// Refs is the element's proxy reference list.
	Refs []any
	// Contexts are the named context values provided by this element.
	Contexts []NamedValue
	// Watches are the watchers registered by this element.
	Watches []*Watch
	// Listeners are the event closures attached to this element.
	Listeners []Listener
}

// SetContext provides v under name, replacing an earlier value.
func (c *Context) SetContext(name string, v any) {
	for i, nv := range c.Contexts {
		if nv.Name == name {
			c.Contexts[i].Value = v
			return
		}
	}
	c.Contexts = append(c.Contexts, NamedValue{Name: name, Value: v})
}

// ContextValue returns the value provided under name.
func (c *Context) ContextValue(name string) (any, bool) {
	for _, nv := range c.Contexts {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return nil, false
}

// On attaches q as a listener for event.
func (c *Context) On(event string, q *qrl.QRL) {
	c.Listeners = append(c.Listeners, Listener{Event: event, QRL: q})
}

// AddRef appends v to the reference list and returns its index.
func (c *Context) AddRef(v any) int {
	c.Refs = append(c.Refs, v)
	return len(c.Refs) - 1
}
