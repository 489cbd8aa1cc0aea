package harness

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

// Reserved value names.
const (
	builtinUndefined = "undefined"
	builtinDocument  = "document"
	builtinOpaque    = "opaque"
	builtinDetached  = "detached"
)

func isBuiltin(name string) bool {
	switch name {
	case builtinUndefined, builtinDocument, builtinOpaque, builtinDetached:
		return true
	}
	return false
}

// graph is the live object graph of a scenario inside one container.
type graph struct {
	sc   *Scenario
	doc  *html.Node
	root *html.Node
	st   *container.State

	values   map[string]any
	pending  map[string]bool
	detached *html.Node
}

// containerRoot returns the element with id attribute id, or the document
// root when id is empty.
func containerRoot(doc *html.Node, id string) (*html.Node, error) {
	if id == "" {
		if root := dom.DocumentElement(doc); root != nil {
			return root, nil
		}
		return nil, fmt.Errorf("document has no root element")
	}
	root := dom.FindByID(doc, id)
	if root == nil {
		return nil, fmt.Errorf("container element %q not found", id)
	}
	return root, nil
}

// buildGraph parses the scenario document, declares the container and
// attaches every value and element state the scenario names.
func buildGraph(sc *Scenario, opts ...container.Option) (*graph, error) {
	doc, err := html.Parse(strings.NewReader(sc.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root, err := containerRoot(doc, sc.Container)
	if err != nil {
		return nil, err
	}
	dom.MarkContainer(root)

	g := &graph{
		sc:      sc,
		doc:     doc,
		root:    root,
		st:      container.New(root, opts...),
		values:  make(map[string]any),
		pending: make(map[string]bool),
	}
	for _, name := range sortedKeys(sc.Values) {
		if _, err := g.value(name); err != nil {
			return nil, err
		}
	}
	for _, id := range sortedKeys(sc.Elements) {
		if err := g.attach(id, sc.Elements[id]); err != nil {
			return nil, fmt.Errorf("elements.%s: %w", id, err)
		}
	}
	return g, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// value returns the named value, building it on first use. Containers are
// registered before their members resolve, so cycles are allowed.
func (g *graph) value(name string) (any, error) {
	switch name {
	case builtinUndefined:
		return value.Undefined, nil
	case builtinDocument:
		return g.doc, nil
	case builtinOpaque:
		return value.NoSerialize(name), nil
	case builtinDetached:
		if g.detached == nil {
			g.detached = dom.NewElement("div")
		}
		return g.detached, nil
	}
	if v, ok := g.values[name]; ok {
		return v, nil
	}
	spec, ok := g.sc.Values[name]
	if !ok {
		return nil, fmt.Errorf("unknown value %q", name)
	}
	if g.pending[name] {
		return nil, fmt.Errorf("value %q: reference cycle", name)
	}
	g.pending[name] = true
	defer delete(g.pending, name)

	v, err := g.build(name, spec)
	if err != nil {
		return nil, fmt.Errorf("values.%s: %w", name, err)
	}
	return v, nil
}

func (g *graph) build(name string, spec ValueSpec) (any, error) {
	switch {
	case spec.Literal.Kind != 0:
		v, err := g.node(&spec.Literal)
		if err != nil {
			return nil, err
		}
		g.values[name] = v
		return v, nil

	case spec.Object.Kind != 0:
		obj := value.NewObject()
		g.values[name] = obj
		return obj, g.fillObject(obj, &spec.Object)

	case spec.Array.Kind != 0:
		arr := value.NewArray()
		g.values[name] = arr
		return arr, g.fillArray(arr, &spec.Array)

	case spec.Closure != nil:
		q := qrl.New(spec.Closure.Chunk, spec.Closure.Symbol).Bind(g.st.Symbols)
		g.values[name] = q
		for i := range spec.Closure.Captures {
			v, err := g.node(&spec.Closure.Captures[i])
			if err != nil {
				return nil, fmt.Errorf("captures[%d]: %w", i, err)
			}
			q.Captured = append(q.Captured, v)
		}
		return q, nil

	case spec.Proxy != "":
		target, err := g.value(spec.Proxy)
		if err != nil {
			return nil, err
		}
		if t, ok := proxy.Target(target); ok {
			target = t
		}
		p, err := g.st.Proxies.Wrap(target)
		if err != nil {
			return nil, err
		}
		g.values[name] = p
		for i, sub := range spec.Subscribers {
			subscriber, err := g.resolve(sub.Ref)
			if err != nil {
				return nil, fmt.Errorf("subscribers[%d]: %w", i, err)
			}
			if len(sub.Props) == 0 {
				p.Subscriptions().SubscribeAll(subscriber)
			} else {
				p.Subscriptions().Subscribe(subscriber, sub.Props...)
			}
		}
		return p, nil

	case spec.Watch != nil:
		w := container.NewWatch(nil, spec.Watch.Index, nil)
		g.values[name] = w
		if spec.Watch.Host != "" {
			host, err := g.resolve(spec.Watch.Host)
			if err != nil {
				return nil, fmt.Errorf("host: %w", err)
			}
			el, ok := host.(*html.Node)
			if !ok {
				return nil, fmt.Errorf("host %q is not an element", spec.Watch.Host)
			}
			w.Host = el
		}
		if spec.Watch.Closure != "" {
			q, err := g.closure(spec.Watch.Closure)
			if err != nil {
				return nil, err
			}
			w.QRL = q
		}
		if spec.Watch.Effect {
			w.Flags |= container.WatchIsEffect
		}
		if spec.Watch.Dirty {
			w.MarkDirty()
		}
		return w, nil
	}
	return nil, fmt.Errorf("no value kind set")
}

func (g *graph) fillObject(obj *value.Object, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := g.node(n.Content[i+1])
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		obj.Set(key, v)
	}
	return nil
}

func (g *graph) fillArray(arr *value.Array, n *yaml.Node) error {
	for i, item := range n.Content {
		v, err := g.node(item)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		arr.Append(v)
	}
	return nil
}

// node converts a YAML node to a runtime value. Inline mappings and
// sequences become anonymous objects and arrays.
func (g *graph) node(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return g.node(n.Alias)
	case yaml.MappingNode:
		obj := value.NewObject()
		return obj, g.fillObject(obj, n)
	case yaml.SequenceNode:
		arr := value.NewArray()
		return arr, g.fillArray(arr, n)
	case yaml.ScalarNode:
		return g.scalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func (g *graph) scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		err := n.Decode(&i)
		return i, err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!str":
		return g.resolve(n.Value)
	}
	return nil, fmt.Errorf("line %d: unsupported scalar tag %s", n.Line, n.ShortTag())
}

// resolve maps a reference string to its value. Other strings are
// returned unchanged.
func (g *graph) resolve(s string) (any, error) {
	switch {
	case strings.HasPrefix(s, "$$"), strings.HasPrefix(s, "@@"):
		return s[1:], nil
	case strings.HasPrefix(s, "$"):
		return g.value(s[1:])
	case strings.HasPrefix(s, "@"):
		el := dom.FindByID(g.doc, s[1:])
		if el == nil {
			return nil, fmt.Errorf("element %q not found", s)
		}
		return el, nil
	}
	return s, nil
}

func (g *graph) closure(ref string) (*qrl.QRL, error) {
	v, err := g.resolve(ref)
	if err != nil {
		return nil, err
	}
	q, ok := v.(*qrl.QRL)
	if !ok {
		return nil, fmt.Errorf("%q is not a closure", ref)
	}
	return q, nil
}

// attach sets the component state of the element with id attribute id.
func (g *graph) attach(id string, spec ElementSpec) error {
	el := dom.FindByID(g.doc, id)
	if el == nil {
		return fmt.Errorf("element not found")
	}
	ctx := g.st.Context(el)

	if spec.Props != "" {
		props, err := g.resolve(spec.Props)
		if err != nil {
			return fmt.Errorf("props: %w", err)
		}
		render, err := g.closure(spec.Render)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		ctx.Props, ctx.Render = props, render
	}
	for i := range spec.Refs {
		v, err := g.node(&spec.Refs[i])
		if err != nil {
			return fmt.Errorf("refs[%d]: %w", i, err)
		}
		ctx.AddRef(v)
	}
	for i := range spec.Seq {
		v, err := g.node(&spec.Seq[i])
		if err != nil {
			return fmt.Errorf("seq[%d]: %w", i, err)
		}
		ctx.Seq = append(ctx.Seq, v)
	}
	for i := 0; i+1 < len(spec.Contexts.Content); i += 2 {
		name := spec.Contexts.Content[i].Value
		v, err := g.node(spec.Contexts.Content[i+1])
		if err != nil {
			return fmt.Errorf("contexts.%s: %w", name, err)
		}
		ctx.SetContext(name, v)
	}
	for i, ref := range spec.Watches {
		v, err := g.resolve(ref)
		if err != nil {
			return fmt.Errorf("watches[%d]: %w", i, err)
		}
		w, ok := v.(*container.Watch)
		if !ok {
			return fmt.Errorf("watches[%d]: %q is not a watch", i, ref)
		}
		ctx.Watches = append(ctx.Watches, w)
	}
	for i := 0; i+1 < len(spec.Listeners.Content); i += 2 {
		event := spec.Listeners.Content[i].Value
		refs := spec.Listeners.Content[i+1]
		if refs.Kind != yaml.SequenceNode {
			return fmt.Errorf("listeners.%s: expected a list", event)
		}
		for _, r := range refs.Content {
			q, err := g.closure(r.Value)
			if err != nil {
				return fmt.Errorf("listeners.%s: %w", event, err)
			}
			ctx.On(event, q)
		}
	}
	return nil
}
