package snapshot

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

// Collection is everything reachable from a container's component state.
type Collection struct {
	// Values holds canonical identities (see Normalize) in first-seen order.
	Values []any
	// Elements are the elements whose component state was collected, in
	// document order of discovery.
	Elements []*html.Node
	// Watches are every watcher found on a collected element.
	Watches []*container.Watch
}

type collector struct {
	st     *container.State
	root   *html.Node
	doc    *html.Node
	logger *slog.Logger

	values     []any
	valueSet   map[any]struct{}
	seen       map[any]struct{}
	elements   []*html.Node
	elementSet map[*html.Node]struct{}
	watches    []*container.Watch

	err error
}

// Collect walks every element with component state under root (root
// included, nested containers excluded) and gathers the reachable values.
// An unsupported value stops the walk with an ErrCodeNotSerializable error.
func Collect(st *container.State, root *html.Node) (*Collection, error) {
	c := &collector{
		st:         st,
		root:       root,
		doc:        dom.OwnerDocument(root),
		logger:     st.Logger,
		valueSet:   make(map[any]struct{}),
		seen:       make(map[any]struct{}),
		elementSet: make(map[*html.Node]struct{}),
	}
	for _, el := range dom.Walk(root, st.HasContext) {
		c.collectElement(el)
		if c.err != nil {
			return nil, c.err
		}
	}
	return &Collection{Values: c.values, Elements: c.elements, Watches: c.watches}, nil
}

func (c *collector) add(key any) {
	if _, ok := c.valueSet[key]; ok {
		return
	}
	c.valueSet[key] = struct{}{}
	c.values = append(c.values, key)
}

// visit marks key as traversed and reports whether it was new.
func (c *collector) visit(key any) bool {
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	return true
}

func (c *collector) collectElement(el *html.Node) {
	if _, ok := c.elementSet[el]; ok {
		return
	}
	ctx, ok := c.st.TryContext(el)
	if !ok {
		return
	}
	c.elementSet[el] = struct{}{}
	c.elements = append(c.elements, el)

	if ctx.Props != nil {
		c.collectValue(ctx.Props, false)
	}
	if ctx.Render != nil {
		c.collectValue(ctx.Render, false)
	}
	for _, v := range ctx.Seq {
		c.collectValue(v, false)
	}
	for _, v := range ctx.Refs {
		c.collectValue(v, false)
	}
	for _, w := range ctx.Watches {
		c.collectValue(w, false)
	}
	for _, nv := range ctx.Contexts {
		c.collectValue(nv.Value, false)
	}
	for _, l := range ctx.Listeners {
		c.collectValue(l.QRL, false)
	}
}

// collectElementRef records a reference to an element. Elements that will
// not get an id resolve to the undefined sentinel.
func (c *collector) collectElementRef(el *html.Node) {
	if !c.ownsElement(el) {
		if c.st.Dev && dom.IsConnected(el) {
			if dom.OwnerDocument(el) != c.doc {
				c.logger.Warn("referenced element belongs to another document", "tag", el.Data)
			} else {
				c.logger.Warn("referenced element is outside the container scope", "tag", el.Data)
			}
		}
		c.add(undefinedKey)
		return
	}
	c.collectElement(el)
}

// ownsElement reports whether el can receive an element id in this pause.
func (c *collector) ownsElement(el *html.Node) bool {
	return c.doc != nil && dom.IsConnected(el) && dom.OwnerDocument(el) == c.doc && dom.InScope(c.root, el)
}

// collectValue gathers v and everything reachable from it. Nested
// non-string primitives are embedded as literals and need no id.
func (c *collector) collectValue(v any, nested bool) {
	if c.err != nil {
		return
	}
	if n, ok := v.(*html.Node); ok && n != nil && n != c.doc && n.Type != html.ElementNode {
		c.logger.Error("cannot serialize non-element node", "node_type", n.Type)
	}
	if p, ok := v.(*proxy.Proxy); ok {
		c.collectSubscribers(p)
	}

	key := Normalize(v, c.doc)
	switch k := key.(type) {
	case sentinelKey:
		c.add(k)
		return
	case *html.Node:
		c.collectElementRef(k)
		return
	case *qrl.QRL:
		if k == nil {
			c.fail(v, "nil closure")
			return
		}
		if !c.visit(k) {
			return
		}
		c.add(k)
		for _, captured := range k.Captured {
			c.collectValue(captured, false)
		}
		return
	case *container.Watch:
		if k == nil {
			c.fail(v, "nil watch")
			return
		}
		if !c.visit(k) {
			return
		}
		c.add(k)
		c.watches = append(c.watches, k)
		if k.QRL != nil {
			c.collectValue(k.QRL, true)
		}
		if k.Host != nil {
			c.collectValue(k.Host, true)
		}
		return
	}

	switch value.KindOf(key) {
	case value.KindString:
		c.add(key)
	case value.KindNull, value.KindBool, value.KindNumber:
		if !nested {
			c.add(key)
		}
	case value.KindObject:
		if !c.visit(key) {
			return
		}
		c.add(key)
		c.collectProxyOf(key)
		obj := key.(*value.Object)
		for _, k := range obj.Keys() {
			f, _ := obj.Get(k)
			c.collectValue(f, true)
		}
	case value.KindArray:
		if !c.visit(key) {
			return
		}
		c.add(key)
		c.collectProxyOf(key)
		for _, item := range key.(*value.Array).Items {
			c.collectValue(item, true)
		}
	default:
		c.fail(v, fmt.Sprintf("unsupported value of type %T", v))
	}
}

// collectProxyOf pulls in the subscribers of target's proxy, if one exists.
func (c *collector) collectProxyOf(target any) {
	if p, ok := c.st.Proxies.Lookup(target); ok {
		c.collectSubscribers(p)
	}
}

func (c *collector) collectSubscribers(p *proxy.Proxy) {
	if !c.visit(p) {
		return
	}
	for _, sub := range p.Subscriptions().Entries() {
		if el, ok := sub.Subscriber.(*html.Node); ok && el != nil && el.Type == html.ElementNode {
			if c.ownsElement(el) {
				c.collectElement(el)
			}
			continue
		}
		c.collectValue(sub.Subscriber, false)
	}
}

func (c *collector) fail(v any, msg string) {
	if c.err == nil {
		c.err = &Error{Code: ErrCodeNotSerializable, Message: msg, Value: v}
	}
}
