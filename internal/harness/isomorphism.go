package harness

import (
	"fmt"
	"slices"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

// matcher checks that a revived graph is isomorphic to the original one:
// same shapes, same sharing, same proxies, elements matched by q:id.
type matcher struct {
	origDoc *html.Node
	revDoc  *html.Node
	revByID  map[string]*html.Node
	origByID map[string]*html.Node

	pairs   map[any]any
	reverse map[any]any
	proxies [][2]*proxy.Proxy
	errs    []string
}

func newMatcher(origRoot, revRoot *html.Node) *matcher {
	return &matcher{
		origDoc:  dom.OwnerDocument(origRoot),
		revDoc:   dom.OwnerDocument(revRoot),
		revByID:  elementsByID(revRoot),
		origByID: elementsByID(origRoot),
		pairs:    make(map[any]any),
		reverse:  make(map[any]any),
	}
}

func elementsByID(root *html.Node) map[string]*html.Node {
	out := make(map[string]*html.Node)
	for _, el := range dom.Walk(root, dom.HasElementID) {
		id, _ := dom.Attr(el, dom.ElementIDAttr)
		out[id] = el
	}
	return out
}

func (m *matcher) fail(path, format string, args ...any) {
	m.errs = append(m.errs, path+": "+fmt.Sprintf(format, args...))
}

// compareGraphs compares the component state of every element of the
// original container that received an element id.
func compareGraphs(orig *container.State, origRoot *html.Node, rev *container.State, revRoot *html.Node) []string {
	m := newMatcher(origRoot, revRoot)
	for _, el := range dom.Walk(origRoot, dom.HasElementID) {
		id, _ := dom.Attr(el, dom.ElementIDAttr)
		revEl := m.revByID[id]
		if revEl == nil {
			m.fail("#"+id, "element missing after resume")
			continue
		}
		octx, ok := orig.TryContext(el)
		if !ok {
			continue
		}
		for i, w := range octx.Watches {
			if w.Active() {
				m.fail(fmt.Sprintf("#%s.watches[%d]", id, i), "watch still active after pause")
			}
		}
		rctx, _ := rev.TryContext(revEl)
		if rctx == nil {
			rctx = &container.Context{}
		}
		m.compareContext("#"+id, octx, rctx)
	}
	m.compareSubscriptions()
	return m.errs
}

func (m *matcher) compareContext(path string, o, r *container.Context) {
	m.list(path+".refs", o.Refs, r.Refs)
	m.list(path+".seq", o.Seq, r.Seq)
	if o.Render != nil {
		m.equiv(path+".props", o.Props, r.Props)
		if r.Render == nil {
			m.fail(path+".render", "missing after resume")
		} else {
			m.equiv(path+".render", o.Render, r.Render)
		}
	}
	if len(o.Contexts) != len(r.Contexts) {
		m.fail(path+".contexts", "got %d entries, want %d", len(r.Contexts), len(o.Contexts))
	} else {
		for i, nv := range o.Contexts {
			if r.Contexts[i].Name != nv.Name {
				m.fail(path+".contexts", "entry %d is %q, want %q", i, r.Contexts[i].Name, nv.Name)
				continue
			}
			m.equiv(path+".contexts."+nv.Name, nv.Value, r.Contexts[i].Value)
		}
	}

	want := groupListeners(o.Listeners)
	got := groupListeners(r.Listeners)
	if !slices.Equal(want.events, got.events) {
		m.fail(path+".listeners", "events %v, want %v", got.events, want.events)
		return
	}
	for _, ev := range want.events {
		m.list(path+".on:"+ev, want.byEvent[ev], got.byEvent[ev])
	}
}

type listenerGroups struct {
	events  []string
	byEvent map[string][]any
}

// groupListeners orders listeners the way the paused document stores
// them: per event, in first-seen event order.
func groupListeners(ls []container.Listener) listenerGroups {
	g := listenerGroups{byEvent: make(map[string][]any)}
	for _, l := range ls {
		if l.QRL == nil {
			continue
		}
		if _, ok := g.byEvent[l.Event]; !ok {
			g.events = append(g.events, l.Event)
		}
		g.byEvent[l.Event] = append(g.byEvent[l.Event], l.QRL)
	}
	return g
}

func (m *matcher) list(path string, o, r []any) {
	if len(o) != len(r) {
		m.fail(path, "got %d items, want %d", len(r), len(o))
		return
	}
	for i := range o {
		m.equiv(fmt.Sprintf("%s[%d]", path, i), o[i], r[i])
	}
}

// pair records that o revived as r. It reports false when o was already
// paired, after checking that the earlier pairing matches.
func (m *matcher) pair(path string, o, r any) bool {
	if prev, ok := m.pairs[o]; ok {
		if prev != r {
			m.fail(path, "shared value revived as two different values")
		}
		return false
	}
	if prev, ok := m.reverse[r]; ok && prev != o {
		m.fail(path, "two different values revived as one")
		return false
	}
	m.pairs[o] = r
	m.reverse[r] = o
	return true
}

func (m *matcher) equiv(path string, o, r any) {
	if op, ok := o.(*proxy.Proxy); ok {
		rp, ok := r.(*proxy.Proxy)
		if !ok {
			m.fail(path, "want a proxy, got %T", r)
			return
		}
		if m.pair(path, op, rp) {
			m.proxies = append(m.proxies, [2]*proxy.Proxy{op, rp})
			m.equiv(path, op.Target(), rp.Target())
		}
		return
	}
	if _, ok := r.(*proxy.Proxy); ok {
		m.fail(path, "got a proxy, want %T", o)
		return
	}

	if m.undefinedForm(o) {
		if !value.IsUndefined(r) {
			m.fail(path, "want undefined, got %T", r)
		}
		return
	}

	switch ov := o.(type) {
	case *html.Node:
		if ov == m.origDoc {
			if r != any(m.revDoc) {
				m.fail(path, "want the document, got %T", r)
			}
			return
		}
		id, _ := dom.Attr(ov, dom.ElementIDAttr)
		if want := m.revByID[id]; want == nil || r != any(want) {
			m.fail(path, "want element q:id=%s", id)
		}
	case *qrl.QRL:
		rq, ok := r.(*qrl.QRL)
		if !ok {
			m.fail(path, "want a closure, got %T", r)
			return
		}
		if !m.pair(path, ov, rq) {
			return
		}
		if ov.String() != rq.String() {
			m.fail(path, "closure %s, want %s", rq, ov)
		}
		if rq.Pending() {
			m.fail(path, "closure captures were not resolved")
		}
		m.list(path+".captured", ov.Captured, rq.Captured)
	case *container.Watch:
		rec, ok := r.(*value.Object)
		if !ok {
			m.fail(path, "want a watch record, got %T", r)
			return
		}
		if !m.pair(path, ov, rec) {
			return
		}
		if i, _ := rec.Get("i"); !numEqual(int64(ov.Index), i) {
			m.fail(path+".i", "got %v, want %d", i, ov.Index)
		}
		host, _ := rec.Get("host")
		if ov.Host != nil {
			m.equiv(path+".host", ov.Host, host)
		}
		q, _ := rec.Get("qrl")
		if ov.QRL != nil {
			m.equiv(path+".qrl", ov.QRL, q)
		}
	case *value.Object:
		ro, ok := r.(*value.Object)
		if !ok {
			m.fail(path, "want an object, got %T", r)
			return
		}
		if !m.pair(path, ov, ro) {
			return
		}
		if !slices.Equal(ov.Keys(), ro.Keys()) {
			m.fail(path, "keys %v, want %v", ro.Keys(), ov.Keys())
			return
		}
		for _, k := range ov.Keys() {
			a, _ := ov.Get(k)
			b, _ := ro.Get(k)
			m.equiv(path+"."+k, a, b)
		}
	case *value.Array:
		ra, ok := r.(*value.Array)
		if !ok {
			m.fail(path, "want an array, got %T", r)
			return
		}
		if m.pair(path, ov, ra) {
			m.list(path, ov.Items, ra.Items)
		}
	default:
		if value.KindOf(o) == value.KindNumber {
			if !numEqual(o, r) {
				m.fail(path, "got %v, want %v", r, o)
			}
			return
		}
		if o != r {
			m.fail(path, "got %#v, want %#v", r, o)
		}
	}
}

// undefinedForm reports whether o pauses as the undefined sentinel.
func (m *matcher) undefinedForm(o any) bool {
	switch value.KindOf(o) {
	case value.KindUndefined, value.KindOpaque:
		return true
	}
	n, ok := o.(*html.Node)
	if !ok {
		return false
	}
	if n == nil {
		return true
	}
	if n == m.origDoc {
		return false
	}
	if n.Type != html.ElementNode {
		return true
	}
	return !dom.IsConnected(n) || dom.OwnerDocument(n) != m.origDoc
}

// compareSubscriptions checks the revived subscriptions of every paired
// proxy against the original ones.
func (m *matcher) compareSubscriptions() {
	for _, pp := range m.proxies {
		orig, rev := pp[0].Subscriptions(), pp[1].Subscriptions()
		for _, sub := range rev.Entries() {
			o, ok := m.originalOf(sub.Subscriber)
			if !ok {
				// Subscribers only reachable through the subs table were
				// never paired.
				continue
			}
			want, ok := orig.Get(o)
			if !ok {
				m.fail("subs", "revived subscriber %T was not subscribed", sub.Subscriber)
				continue
			}
			if want.All != sub.All || !slices.Equal(want.Props, sub.Props) {
				m.fail("subs", "subscription props %v (all=%t), want %v (all=%t)", sub.Props, sub.All, want.Props, want.All)
			}
		}
		for _, sub := range orig.Entries() {
			el, ok := sub.Subscriber.(*html.Node)
			if !ok || !dom.HasAttr(el, dom.ElementIDAttr) {
				continue
			}
			id, _ := dom.Attr(el, dom.ElementIDAttr)
			if _, ok := rev.Get(m.revByID[id]); !ok {
				m.fail("subs", "element subscriber q:id=%s lost", id)
			}
		}
	}
}

func (m *matcher) originalOf(r any) (any, bool) {
	if el, ok := r.(*html.Node); ok {
		id, _ := dom.Attr(el, dom.ElementIDAttr)
		o, ok := m.origByID[id]
		return o, ok
	}
	if t, ok := proxy.Target(r); ok {
		r = t
	}
	o, ok := m.reverse[r]
	return o, ok
}

func numEqual(a, b any) bool {
	x, ok := toFloat(a)
	if !ok {
		return false
	}
	y, ok := toFloat(b)
	return ok && x == y
}

func toFloat(v any) (float64, bool) {
	n, ok := value.Number(v)
	if !ok {
		return 0, false
	}
	switch n := n.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
