package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

// Listener is an event closure found on a collected element. Listeners
// are not part of State; Pause writes them as on:<event> attributes.
type Listener struct {
	Element *html.Node
	// ElementID is the element's q:id value.
	ElementID string
	Event     string
	QRL       *qrl.QRL
	// Text is the closure in descriptor form.
	Text string
}

// Attr returns the DOM attribute that carries the listener.
func (l Listener) Attr() string {
	return ListenerAttrPrefix + l.Event
}

// ListenerAttrPrefix prefixes listener attributes.
const ListenerAttrPrefix = "on:"

// Result is the outcome of Write.
type Result struct {
	State *State
	// Objs holds the live value of every objs slot.
	Objs      []any
	Listeners []Listener
}

type writer struct {
	st     *container.State
	root   *html.Node
	doc    *html.Node
	logger *slog.Logger

	collected     map[any]struct{}
	objIDs        map[any]int
	elementIDs    map[*html.Node]string
	nextElementID int
	watches       []*container.Watch
}

// Write builds the State of the container at root without touching the
// carrier script. On success it reassigns element ids (the q:id
// attribute) and destroys every collected watcher. On error the DOM and
// the watchers are left as they were.
func Write(st *container.State, root *html.Node) (*Result, error) {
	w, res, err := build(st, root)
	if err != nil {
		return nil, err
	}
	w.commit()
	return res, nil
}

// build computes the State. Element ids are only recorded in w.elementIDs;
// nothing in the DOM changes until commit.
func build(st *container.State, root *html.Node) (*writer, *Result, error) {
	col, err := Collect(st, root)
	if err != nil {
		return nil, nil, err
	}
	w := &writer{
		st:         st,
		root:       root,
		doc:        dom.OwnerDocument(root),
		logger:     st.Logger,
		collected:  make(map[any]struct{}, len(col.Values)),
		objIDs:     make(map[any]int, len(col.Values)),
		elementIDs: make(map[*html.Node]string),
		watches:    col.Watches,
	}
	for _, v := range col.Values {
		w.collected[v] = struct{}{}
	}

	// Values with subscribers come first.
	subscribed := make(map[any]bool, len(col.Values))
	for _, v := range col.Values {
		subscribed[v] = w.hasSubscribers(v)
	}
	ordered := slices.Clone(col.Values)
	slices.SortStableFunc(ordered, func(a, b any) int {
		switch {
		case subscribed[a] == subscribed[b]:
			return 0
		case subscribed[a]:
			return -1
		default:
			return 1
		}
	})
	for i, v := range ordered {
		w.objIDs[v] = i
	}

	state := &State{
		Ctx:  make(map[string]Meta),
		Objs: make([]Entry, len(ordered)),
		Subs: make([]*Subs, len(ordered)),
	}
	for i, v := range ordered {
		if subscribed[v] {
			state.Subs[i] = w.subsFor(v)
		}
	}
	for i, v := range ordered {
		e, err := w.entryFor(v)
		if err != nil {
			return nil, nil, err
		}
		state.Objs[i] = e
	}
	for _, el := range col.Elements {
		if err := w.writeMeta(state, el); err != nil {
			return nil, nil, err
		}
	}
	listeners, err := w.listeners(col.Elements)
	if err != nil {
		return nil, nil, err
	}

	objs := make([]any, len(ordered))
	for i, v := range ordered {
		objs[i] = w.live(v)
	}
	return w, &Result{State: state, Objs: objs, Listeners: listeners}, nil
}

// commit replaces the element ids in scope with the recorded ones and
// destroys the collected watchers.
func (w *writer) commit() {
	for _, el := range dom.Walk(w.root, dom.HasElementID) {
		dom.RemoveAttr(el, dom.ElementIDAttr)
	}
	for el, id := range w.elementIDs {
		dom.SetAttr(el, dom.ElementIDAttr, strings.TrimPrefix(id, ElementIDPrefix))
	}

	for _, watch := range w.watches {
		if w.st.Dev {
			if watch.Dirty() {
				w.logger.Warn("pausing with a dirty watch", "index", watch.Index)
			}
			if watch.Host == nil || !dom.IsConnected(watch.Host) {
				w.logger.Warn("watch host is not connected", "index", watch.Index)
			}
		}
		watch.Destroy()
	}
}

// Pause writes the container's State into its carrier script, records
// listener attributes and marks the container paused. The snapshot is
// encoded before anything is committed, so on error the DOM, the previous
// carrier and the watchers are left as they were.
func Pause(st *container.State, root *html.Node) (*Result, error) {
	w, res, err := build(st, root)
	if err != nil {
		return nil, err
	}
	text, err := res.State.Encode(st.Dev)
	if err != nil {
		return nil, err
	}

	w.commit()
	parent := dom.SnapshotParent(root)
	if old := dom.FindSnapshotScript(parent); old != nil {
		dom.Remove(old)
	}
	parent.AppendChild(dom.NewSnapshotScript(text))
	writeListenerAttrs(res.Listeners)
	dom.MarkPaused(root)

	st.Logger.Debug("container paused",
		"objs", len(res.State.Objs),
		"elements", len(res.State.Ctx),
		"listeners", len(res.Listeners))
	return res, nil
}

// writeListenerAttrs joins the closures of each element and event with
// newlines.
func writeListenerAttrs(listeners []Listener) {
	type slot struct {
		el   *html.Node
		attr string
	}
	var order []slot
	texts := make(map[slot][]string)
	for _, l := range listeners {
		s := slot{el: l.Element, attr: l.Attr()}
		if _, ok := texts[s]; !ok {
			order = append(order, s)
		}
		texts[s] = append(texts[s], l.Text)
	}
	for _, s := range order {
		dom.SetAttr(s.el, s.attr, strings.Join(texts[s], "\n"))
	}
}

// ownsElement reports whether el can receive an element id: it is
// connected to the container's document and Walk from root reaches it.
// Elements inside a nested container belong to that container's id space.
func (w *writer) ownsElement(el *html.Node) bool {
	return w.doc != nil && dom.IsConnected(el) && dom.OwnerDocument(el) == w.doc && dom.InScope(w.root, el)
}

// elementID returns el's id, assigning the next one on first use.
func (w *writer) elementID(el *html.Node) (string, bool) {
	if id, ok := w.elementIDs[el]; ok {
		return id, true
	}
	if !w.ownsElement(el) {
		return "", false
	}
	id := ElementIDPrefix + IntToStr(w.nextElementID)
	w.nextElementID++
	w.elementIDs[el] = id
	return id, true
}

// getObjID returns the id of v. Proxies get the proxy suffix; elements
// that cannot be identified map to the undefined sentinel.
func (w *writer) getObjID(v any) (string, bool) {
	suffix := ""
	if t, ok := proxy.Target(v); ok {
		v, suffix = t, ProxySuffix
	}
	if el, ok := v.(*html.Node); ok && el != nil && el.Type == html.ElementNode {
		if id, ok := w.elementID(el); ok {
			return id, true
		}
		v = value.Undefined
	}
	idx, ok := w.objIDs[Normalize(v, w.doc)]
	if !ok {
		return "", false
	}
	return IntToStr(idx) + suffix, true
}

// ref is getObjID for a value that must be in the id space. Top-level
// references to unidentifiable elements are logged.
func (w *writer) ref(v any, top bool) (string, error) {
	if el, ok := v.(*html.Node); ok && top && el != nil && el.Type == html.ElementNode && !w.ownsElement(el) {
		if dom.IsConnected(el) && dom.OwnerDocument(el) == w.doc {
			w.logger.Error("cannot serialize reference to element outside the container", "tag", el.Data)
		} else {
			w.logger.Error("cannot serialize reference to disconnected element", "tag", el.Data)
		}
	}
	id, ok := w.getObjID(v)
	if !ok {
		return "", &Error{
			Code:    ErrCodeMissingObjectID,
			Message: fmt.Sprintf("no id for %T value", v),
			Value:   v,
		}
	}
	return id, nil
}

func (w *writer) refList(vs []any) (string, error) {
	ids := make([]string, len(vs))
	for i, v := range vs {
		id, err := w.ref(v, true)
		if err != nil {
			return "", err
		}
		ids[i] = id
	}
	return strings.Join(ids, " "), nil
}

// field is the nested form of v: a literal for non-string primitives,
// otherwise an id.
func (w *writer) field(v any) (any, error) {
	switch value.KindOf(v) {
	case value.KindNull, value.KindBool:
		return v, nil
	case value.KindNumber:
		n, _ := value.Number(v)
		return n, nil
	}
	return w.ref(v, false)
}

func (w *writer) hasSubscribers(v any) bool {
	p, ok := w.st.Proxies.Lookup(v)
	if !ok {
		return false
	}
	for _, sub := range p.Subscriptions().Entries() {
		if w.subscriberKnown(sub.Subscriber) {
			return true
		}
	}
	return false
}

func (w *writer) subscriberKnown(sub any) bool {
	if el, ok := sub.(*html.Node); ok && el != nil && el.Type == html.ElementNode {
		return w.ownsElement(el)
	}
	_, ok := w.collected[Normalize(sub, w.doc)]
	return ok
}

func (w *writer) subsFor(v any) *Subs {
	p, _ := w.st.Proxies.Lookup(v)
	subs := &Subs{}
	for _, sub := range p.Subscriptions().Entries() {
		if !w.subscriberKnown(sub.Subscriber) {
			continue
		}
		id, ok := w.getObjID(sub.Subscriber)
		if !ok {
			continue
		}
		subs.Entries = append(subs.Entries, SubEntry{ID: id, All: sub.All, Props: slices.Clone(sub.Props)})
	}
	return subs
}

func (w *writer) entryFor(key any) (Entry, error) {
	switch k := key.(type) {
	case sentinelKey:
		return k.entry(), nil
	case *qrl.QRL:
		text, err := w.closureText(k)
		if err != nil {
			return nil, err
		}
		return Closure{Text: text}, nil
	case *container.Watch:
		return w.watchEntry(k)
	case *value.Object:
		rec := Record{Keys: k.Keys(), Fields: make(map[string]any, k.Len())}
		for _, name := range rec.Keys {
			f, _ := k.Get(name)
			id, err := w.field(f)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			rec.Fields[name] = id
		}
		return rec, nil
	case *value.Array:
		arr := Array{Items: make([]any, len(k.Items))}
		for i, item := range k.Items {
			id, err := w.field(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			arr.Items[i] = id
		}
		return arr, nil
	}
	switch value.KindOf(key) {
	case value.KindString:
		if s, _ := key.(string); w.st.Dev && HasSentinelPrefix(s) {
			w.logger.Warn("string collides with a sentinel prefix and will not revive as itself", "value", s)
		}
		return Literal{Value: key}, nil
	case value.KindNull, value.KindBool, value.KindNumber:
		return Literal{Value: key}, nil
	}
	return nil, &Error{Code: ErrCodeNotSerializable, Message: fmt.Sprintf("unsupported value of type %T", key), Value: key}
}

func (w *writer) closureText(q *qrl.QRL) (string, error) {
	text, err := qrl.Stringify(q, func(v any) (string, error) {
		return w.ref(v, false)
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return "", err
		}
		return "", &Error{Code: ErrCodeInvalidClosure, Message: "cannot serialize closure", Value: q, Err: err}
	}
	return text, nil
}

// watchEntry serializes a watcher as a plain record. The revived record
// is inert data, not a live watcher.
func (w *writer) watchEntry(watch *container.Watch) (Entry, error) {
	rec := Record{
		Keys: []string{"f", "i", "host", "qrl"},
		Fields: map[string]any{
			"f":    int64(watch.Flags),
			"i":    int64(watch.Index),
			"host": nil,
			"qrl":  nil,
		},
	}
	if watch.Host != nil {
		id, err := w.ref(watch.Host, false)
		if err != nil {
			return nil, err
		}
		rec.Fields["host"] = id
	}
	if watch.QRL != nil {
		id, err := w.ref(watch.QRL, false)
		if err != nil {
			return nil, err
		}
		rec.Fields["qrl"] = id
	}
	return rec, nil
}

func (w *writer) writeMeta(state *State, el *html.Node) error {
	ctx, ok := w.st.TryContext(el)
	if !ok {
		return nil
	}
	var (
		m   Meta
		err error
	)
	if len(ctx.Refs) > 0 {
		if m.R, err = w.refList(ctx.Refs); err != nil {
			return err
		}
	}
	if ctx.Props != nil || ctx.Render != nil {
		if ctx.Props == nil || ctx.Render == nil {
			return &Error{Code: ErrCodeInvalidMeta, Message: "host props and render closure must be set together", Value: el}
		}
		props, err := w.ref(ctx.Props, true)
		if err != nil {
			return err
		}
		render, err := w.ref(ctx.Render, true)
		if err != nil {
			return err
		}
		m.H = props + " " + render
	}
	if len(ctx.Seq) > 0 {
		if m.S, err = w.refList(ctx.Seq); err != nil {
			return err
		}
	}
	if len(ctx.Contexts) > 0 {
		pairs := make([]string, len(ctx.Contexts))
		for i, nv := range ctx.Contexts {
			if nv.Name == "" || strings.ContainsAny(nv.Name, " =") {
				return &Error{Code: ErrCodeInvalidMeta, Message: fmt.Sprintf("invalid context name %q", nv.Name), Value: el}
			}
			id, err := w.ref(nv.Value, true)
			if err != nil {
				return err
			}
			pairs[i] = nv.Name + "=" + id
		}
		m.C = strings.Join(pairs, " ")
	}
	if m.IsZero() {
		return nil
	}
	id, ok := w.elementID(el)
	if !ok {
		if w.st.Dev {
			w.logger.Warn("dropping state of disconnected element", "tag", el.Data)
		}
		return nil
	}
	state.Ctx[id] = m
	return nil
}

func (w *writer) listeners(elements []*html.Node) ([]Listener, error) {
	var out []Listener
	for _, el := range elements {
		ctx, _ := w.st.TryContext(el)
		if ctx == nil || len(ctx.Listeners) == 0 {
			continue
		}
		id, ok := w.elementID(el)
		if !ok {
			if w.st.Dev {
				w.logger.Warn("dropping listeners of disconnected element", "tag", el.Data)
			}
			continue
		}
		for _, l := range ctx.Listeners {
			if l.QRL == nil {
				continue
			}
			text, err := w.closureText(l.QRL)
			if err != nil {
				return nil, err
			}
			out = append(out, Listener{
				Element:   el,
				ElementID: strings.TrimPrefix(id, ElementIDPrefix),
				Event:     l.Event,
				QRL:       l.QRL,
				Text:      text,
			})
		}
	}
	return out, nil
}

// live maps a canonical identity back to a runtime value.
func (w *writer) live(key any) any {
	switch key {
	case undefinedKey:
		return value.Undefined
	case documentKey:
		return w.doc
	}
	return key
}
