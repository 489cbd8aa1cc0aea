package snapshot

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

type reader struct {
	st       *container.State
	doc      *html.Node
	state    *State
	elements map[string]*html.Node
	objs     []any
	// closures maps descriptor text to the closure slot holding it, or to
	// nil when several slots share the text.
	closures map[string]*qrl.QRL
}

// staged is the decoded metadata of one element, applied only after every
// element decoded cleanly.
type staged struct {
	el       *html.Node
	refs     []any
	seq      []any
	contexts []container.NamedValue
	host     bool
	props    any
	render   *qrl.QRL
}

type stagedListener struct {
	el    *html.Node
	event string
	q     *qrl.QRL
}

// Resume revives the container at root from its carrier script.
//
// A root that is not a container, a missing carrier, or an unparsable
// carrier is logged at warn level and leaves the DOM unchanged; Resume
// then returns nil. Broken references inside a parsed snapshot are
// returned as *Error values.
//
// On success the carrier is removed, the container is marked resumed and
// one qresume event is dispatched from root.
func Resume(st *container.State, root *html.Node) error {
	logger := st.Logger
	if !dom.IsContainer(root) {
		logger.Warn("skipping resume: element is not a container", "tag", root.Data)
		return nil
	}
	script := dom.FindSnapshotScript(dom.SnapshotParent(root))
	if script == nil {
		logger.Warn("skipping resume: snapshot script not found", "tag", root.Data)
		return nil
	}
	state, err := DecodeState(dom.TextContent(script))
	if err != nil {
		logger.Warn("skipping resume: malformed snapshot", "error", err)
		return nil
	}

	r := &reader{
		st:       st,
		doc:      dom.OwnerDocument(root),
		state:    state,
		elements: make(map[string]*html.Node),
		objs:     make([]any, len(state.Objs)),
		closures: make(map[string]*qrl.QRL),
	}
	for _, el := range dom.Walk(root, dom.HasElementID) {
		id, _ := dom.Attr(el, dom.ElementIDAttr)
		r.elements[ElementIDPrefix+id] = el
	}

	if err := r.materialize(); err != nil {
		return err
	}
	if err := r.reviveSubscriptions(); err != nil {
		return err
	}
	if err := r.resolveFields(); err != nil {
		return err
	}
	metas, err := r.stageMeta()
	if err != nil {
		return err
	}
	listeners, err := r.stageListeners(root)
	if err != nil {
		return err
	}

	dom.Remove(script)
	for _, m := range metas {
		ctx := st.Context(m.el)
		ctx.Refs = append(ctx.Refs, m.refs...)
		if m.seq != nil {
			ctx.Seq = m.seq
		}
		for _, nv := range m.contexts {
			ctx.SetContext(nv.Name, nv.Value)
		}
		if m.host {
			ctx.Props = m.props
			ctx.Render = m.render
		}
	}
	for _, l := range listeners {
		st.Context(l.el).On(l.event, l.q)
	}
	dom.MarkResumed(root)

	logger.Debug("container resumed",
		"objs", len(r.objs),
		"elements", len(metas),
		"listeners", len(listeners))
	dom.Dispatch(dom.Event{Name: dom.ResumeEvent, Target: root})
	return nil
}

// materialize fills every objs slot with its runtime value. Arrays and
// records still hold raw ids afterwards.
func (r *reader) materialize() error {
	for i, e := range r.state.Objs {
		switch e := e.(type) {
		case Literal:
			r.objs[i] = e.Value
		case Sentinel:
			if e.Of == SentinelDocument {
				r.objs[i] = r.doc
			} else {
				r.objs[i] = value.Undefined
			}
		case Closure:
			q, err := qrl.Parse(e.Text, r.st.Symbols)
			if err != nil {
				return &Error{Code: ErrCodeInvalidClosure, Message: "cannot parse closure", ID: IntToStr(i), Err: err}
			}
			r.objs[i] = q
			if _, dup := r.closures[e.Text]; dup {
				r.closures[e.Text] = nil
			} else {
				r.closures[e.Text] = q
			}
		case Array:
			r.objs[i] = &value.Array{Items: slices.Clone(e.Items)}
		case Record:
			obj := value.NewObject()
			for _, k := range e.Keys {
				obj.Set(k, e.Fields[k])
			}
			r.objs[i] = obj
		default:
			return &Error{Code: ErrCodeNotSerializable, Message: fmt.Sprintf("unsupported entry %T", e), ID: IntToStr(i)}
		}
	}
	return nil
}

// reviveSubscriptions registers each subs entry in the proxy registry.
// Subscribers that no longer exist are dropped.
func (r *reader) reviveSubscriptions() error {
	for i, s := range r.state.Subs {
		if s == nil {
			continue
		}
		if i >= len(r.objs) {
			return &Error{Code: ErrCodeInvalidSubscription, Message: "subscription entry has no object", ID: IntToStr(i)}
		}
		subs := proxy.NewSubscriptionMap()
		for _, se := range s.Entries {
			sub, err := r.getObject(se.ID)
			if err != nil {
				r.st.Logger.Warn("dropping subscription: subscriber not found", "id", se.ID, "object", IntToStr(i))
				continue
			}
			if se.All {
				subs.SubscribeAll(sub)
			} else {
				subs.Subscribe(sub, se.Props...)
			}
		}
		if _, err := r.st.Proxies.WrapWith(r.objs[i], subs); err != nil {
			return &Error{Code: ErrCodeInvalidSubscription, Message: "cannot wrap subscribed value", ID: IntToStr(i), Err: err}
		}
	}
	return nil
}

// resolveFields replaces the ids held by each array, record and closure
// with the referenced values. Only the slot's own fields are touched, so
// cycles need no special handling.
func (r *reader) resolveFields() error {
	for i, v := range r.objs {
		switch o := v.(type) {
		case *value.Array:
			for j, item := range o.Items {
				id, ok := item.(string)
				if !ok {
					continue
				}
				resolved, err := r.getField(i, id)
				if err != nil {
					return fmt.Errorf("objs[%d][%d]: %w", i, j, err)
				}
				o.Items[j] = resolved
			}
		case *value.Object:
			for _, k := range o.Keys() {
				f, _ := o.Get(k)
				id, ok := f.(string)
				if !ok {
					continue
				}
				resolved, err := r.getField(i, id)
				if err != nil {
					return fmt.Errorf("objs[%d][%q]: %w", i, k, err)
				}
				o.Set(k, resolved)
			}
		case *qrl.QRL:
			if err := o.ResolveCaptures(r.getObject); err != nil {
				return fmt.Errorf("objs[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// getField is getObject for an array item or record field of slot i. An
// element that is no longer in the DOM, such as a removed watch host,
// drops the field to undefined instead of failing the resume.
func (r *reader) getField(i int, id string) (any, error) {
	v, err := r.getObject(id)
	if err != nil && strings.HasPrefix(id, ElementIDPrefix) && IsCode(err, ErrCodeMissingElement) {
		r.st.Logger.Warn("dropping reference: element not found", "id", id, "object", IntToStr(i))
		return value.Undefined, nil
	}
	return v, err
}

// getObject resolves an element id or object id. A proxy suffix returns the
// registered proxy of the value, creating it when needed.
func (r *reader) getObject(id string) (any, error) {
	if strings.HasPrefix(id, ElementIDPrefix) {
		el, ok := r.elements[id]
		if !ok {
			return nil, &Error{Code: ErrCodeMissingElement, Message: "element not found", ID: id}
		}
		return el, nil
	}
	raw, proxied := strings.CutSuffix(id, ProxySuffix)
	idx, err := StrToInt(raw)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidID, Message: "object id does not parse", ID: id, Err: err}
	}
	if idx >= len(r.objs) {
		return nil, &Error{Code: ErrCodeMissingObjectID, Message: fmt.Sprintf("object id out of range (%d objs)", len(r.objs)), ID: id}
	}
	v := r.objs[idx]
	if !proxied {
		return v, nil
	}
	p, err := r.st.Proxies.Wrap(v)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidID, Message: "proxy suffix on a value that cannot be wrapped", ID: id, Err: err}
	}
	return p, nil
}

func (r *reader) getObjects(list string) ([]any, error) {
	ids := strings.Fields(list)
	out := make([]any, len(ids))
	for i, id := range ids {
		v, err := r.getObject(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// stageMeta decodes every ctx record in element id order.
func (r *reader) stageMeta() ([]staged, error) {
	ids := make([]string, 0, len(r.state.Ctx))
	for id := range r.state.Ctx {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]staged, 0, len(ids))
	for _, id := range ids {
		m := r.state.Ctx[id]
		v, err := r.getObject(id)
		if err != nil {
			return nil, err
		}
		el, ok := v.(*html.Node)
		if !ok || el.Type != html.ElementNode {
			return nil, &Error{Code: ErrCodeInvalidMeta, Message: "ctx key does not name an element", ID: id}
		}
		s := staged{el: el}
		if m.R != "" {
			if s.refs, err = r.getObjects(m.R); err != nil {
				return nil, err
			}
		}
		seq := m.S
		if seq == "" {
			seq = m.W
		}
		if seq != "" {
			if s.seq, err = r.getObjects(seq); err != nil {
				return nil, err
			}
		}
		if m.C != "" {
			for _, pair := range strings.Fields(m.C) {
				name, ref, ok := strings.Cut(pair, "=")
				if !ok || name == "" {
					return nil, &Error{Code: ErrCodeInvalidMeta, Message: fmt.Sprintf("malformed context entry %q", pair), ID: id}
				}
				cv, err := r.getObject(ref)
				if err != nil {
					return nil, err
				}
				s.contexts = append(s.contexts, container.NamedValue{Name: name, Value: cv})
			}
		}
		if m.H != "" {
			parts := strings.Fields(m.H)
			if len(parts) != 2 {
				return nil, &Error{Code: ErrCodeInvalidMeta, Message: fmt.Sprintf("host entry needs 2 ids, got %d", len(parts)), ID: id}
			}
			if s.props, err = r.getObject(parts[0]); err != nil {
				return nil, err
			}
			render, err := r.getObject(parts[1])
			if err != nil {
				return nil, err
			}
			q, ok := render.(*qrl.QRL)
			if !ok {
				return nil, &Error{Code: ErrCodeInvalidMeta, Message: fmt.Sprintf("render id names a %T", render), ID: parts[1]}
			}
			s.host, s.render = true, q
		}
		out = append(out, s)
	}
	return out, nil
}

// stageListeners re-reads the on:<event> attributes in scope. A listener
// whose descriptor matches exactly one closure slot revives as that
// closure; otherwise it is parsed on its own.
func (r *reader) stageListeners(root *html.Node) ([]stagedListener, error) {
	var out []stagedListener
	for _, el := range dom.Walk(root, hasListenerAttr) {
		for _, a := range el.Attr {
			event, ok := strings.CutPrefix(a.Key, ListenerAttrPrefix)
			if !ok || a.Namespace != "" {
				continue
			}
			for _, line := range strings.Split(a.Val, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				q := r.closures[line]
				if q == nil {
					var err error
					if q, err = qrl.Parse(line, r.st.Symbols); err != nil {
						return nil, &Error{Code: ErrCodeInvalidClosure, Message: "cannot parse listener " + a.Key, Err: err}
					}
					if err := q.ResolveCaptures(r.getObject); err != nil {
						return nil, err
					}
				}
				out = append(out, stagedListener{el: el, event: event, q: q})
			}
		}
	}
	return out, nil
}

func hasListenerAttr(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.HasPrefix(a.Key, ListenerAttrPrefix) {
			return true
		}
	}
	return false
}
