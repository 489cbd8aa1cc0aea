package snapshot

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

const page = `<!DOCTYPE html><html><head></head><body>` +
	`<div id="app" q:container=""><p id="a">a</p><span id="b">b</span></div>` +
	`</body></html>`

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func renderDoc(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, n))
	return buf.String()
}

// reload serializes doc and parses it back, like a fresh page load.
func reload(t *testing.T, doc *html.Node) *html.Node {
	t.Helper()
	return parseDoc(t, renderDoc(t, doc))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func newState(root *html.Node, opts ...container.Option) *container.State {
	base := []container.Option{container.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return container.New(root, append(base, opts...)...)
}

func snapshotText(t *testing.T, root *html.Node) string {
	t.Helper()
	script := dom.FindSnapshotScript(dom.SnapshotParent(root))
	require.NotNil(t, script, "snapshot script")
	return dom.TextContent(script)
}

func TestPauseResume_ProxyAndString(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	obj := value.NewObject(value.F("count", 1))
	st.Context(dom.FindByID(doc, "a")).Refs = []any{st.Proxies.MustWrap(obj), "hi"}

	res, err := Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t, `{"ctx":{"#0":{"r":"0! 1"}},"objs":[{"count":1},"hi"],"subs":[null,null]}`, snapshotText(t, root))
	assert.Equal(t, []any{obj, "hi"}, res.Objs)
	status, _ := dom.ContainerStatus(root)
	assert.Equal(t, dom.ContainerPaused, status)

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	resumed := 0
	stop := dom.Listen(root2, dom.ResumeEvent, func(dom.Event) { resumed++ })
	defer stop()

	require.NoError(t, Resume(st2, root2))
	assert.Equal(t, 1, resumed)
	assert.Nil(t, dom.FindSnapshotScript(root2), "carrier is removed")
	status, _ = dom.ContainerStatus(root2)
	assert.Equal(t, dom.ContainerResumed, status)

	ctx, ok := st2.TryContext(dom.FindByID(doc2, "a"))
	require.True(t, ok)
	require.Len(t, ctx.Refs, 2)
	p, ok := ctx.Refs[0].(*proxy.Proxy)
	require.True(t, ok, "ref 0 revives as a proxy")
	count, _ := p.Target().(*value.Object).Get("count")
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "hi", ctx.Refs[1])

	p2, ok := st2.Proxies.Lookup(p.Target())
	require.True(t, ok)
	assert.Same(t, p, p2, "proxy is registered")
}

func TestPauseResume_Subscriptions(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	host, sub := dom.FindByID(doc, "a"), dom.FindByID(doc, "b")

	props := value.NewObject(value.F("label", "x"))
	subs := proxy.NewSubscriptionMap()
	subs.SubscribeAll(sub)
	p, err := st.Proxies.WrapWith(props, subs)
	require.NoError(t, err)
	ctx := st.Context(host)
	ctx.Props = p
	ctx.Render = qrl.New("app.js", "Host_render")

	_, err = Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t,
		`{"ctx":{"#1":{"h":"0! 2"}},"objs":[{"label":"1"},"x","`+ClosurePrefix+`app.js#Host_render"],"subs":[{"#0":null},null,null]}`,
		snapshotText(t, root))

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))

	ctx2, ok := st2.TryContext(dom.FindByID(doc2, "a"))
	require.True(t, ok)
	p2, ok := ctx2.Props.(*proxy.Proxy)
	require.True(t, ok)
	label, _ := p2.Target().(*value.Object).Get("label")
	assert.Equal(t, "x", label)
	require.NotNil(t, ctx2.Render)
	assert.Equal(t, "app.js#Host_render", ctx2.Render.String())

	s, ok := p2.Subscriptions().Get(dom.FindByID(doc2, "b"))
	require.True(t, ok, "subscriber element is revived")
	assert.True(t, s.All)
}

func TestPauseResume_Cycle(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	a := value.NewObject()
	b := value.NewObject(value.F("a", a))
	a.Set("b", b)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{a}

	_, err := Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t, `{"ctx":{"#0":{"r":"0"}},"objs":[{"b":"1"},{"a":"0"}],"subs":[null,null]}`, snapshotText(t, root))

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))

	ctx, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	a2 := ctx.Refs[0].(*value.Object)
	b2, _ := a2.Get("b")
	back, _ := b2.(*value.Object).Get("a")
	assert.Same(t, a2, back)
}

func TestWrite_SubscribedValuesFirst(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	obj := value.NewObject(value.F("n", 1))
	subs := proxy.NewSubscriptionMap()
	subs.Subscribe(dom.FindByID(doc, "b"), "n")
	p, err := st.Proxies.WrapWith(obj, subs)
	require.NoError(t, err)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{"first", p}

	res, err := Write(st, root)
	require.NoError(t, err)
	require.Len(t, res.State.Objs, 2)
	assert.Equal(t, EntryRecord, res.State.Objs[0].Kind())
	assert.Equal(t, Literal{Value: "first"}, res.State.Objs[1])
	require.NotNil(t, res.State.Subs[0])
	assert.Equal(t, []SubEntry{{ID: "#0", Props: []string{"n"}}}, res.State.Subs[0].Entries)
	assert.Nil(t, res.State.Subs[1])
	assert.Equal(t, Meta{R: "1 0!"}, res.State.Ctx["#1"])
}

func TestWrite_Stable(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	shared := value.NewArray(1, "two", nil)
	ctx := st.Context(dom.FindByID(doc, "a"))
	ctx.Refs = []any{shared, value.NewObject(value.F("list", shared))}
	ctx.SetContext("theme", "dark")
	st.Context(dom.FindByID(doc, "b")).Seq = []any{shared}

	first, err := Write(st, root)
	require.NoError(t, err)
	second, err := Write(st, root)
	require.NoError(t, err)

	t1, err := first.State.Encode(false)
	require.NoError(t, err)
	t2, err := second.State.Encode(false)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
	assert.Equal(t, first.Objs, second.Objs)
}

func TestPauseResume_Sentinels(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{
		value.Undefined, doc, value.NoSerialize(func() {}), nil, true, 3.5,
	}

	_, err := Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t,
		`{"ctx":{"#0":{"r":"0 1 0 2 3 4"}},"objs":["`+UndefinedPrefix+`","`+DocumentPrefix+`",null,true,3.5],"subs":[null,null,null,null,null]}`,
		snapshotText(t, root))

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))

	ctx, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	require.Len(t, ctx.Refs, 6)
	assert.True(t, value.IsUndefined(ctx.Refs[0]))
	assert.True(t, ctx.Refs[1] == any(doc2), "document sentinel revives as the container document")
	assert.True(t, value.IsUndefined(ctx.Refs[2]), "no-serialize values revive as undefined")
	assert.Nil(t, ctx.Refs[3])
	assert.Equal(t, true, ctx.Refs[4])
	assert.Equal(t, 3.5, ctx.Refs[5])
}

func TestWrite_DisconnectedElement(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger))
	detached := dom.NewElement("i")
	st.Context(dom.FindByID(doc, "a")).Refs = []any{detached, value.NewArray(detached)}

	res, err := Write(st, root)
	require.NoError(t, err)
	assert.Equal(t, []Entry{Sentinel{Of: SentinelUndefined}, Array{Items: []any{"0"}}}, res.State.Objs)
	assert.Equal(t, Meta{R: "0 1"}, res.State.Ctx["#0"])
	assert.Equal(t, 1, strings.Count(logs.String(), "disconnected element"), "only the top-level reference is logged")
	assert.False(t, dom.HasAttr(detached, dom.ElementIDAttr))
}

func TestWrite_NonElementNode(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger))
	text := dom.FindByID(doc, "a").FirstChild
	st.Context(dom.FindByID(doc, "a")).Refs = []any{text}

	res, err := Write(st, root)
	require.NoError(t, err)
	assert.Equal(t, []Entry{Sentinel{Of: SentinelUndefined}}, res.State.Objs)
	assert.Contains(t, logs.String(), "cannot serialize non-element node")
}

func TestWrite_SentinelCollisionWarnsInDev(t *testing.T) {
	for _, dev := range []bool{false, true} {
		doc := parseDoc(t, page)
		root := dom.FindByID(doc, "app")
		logger, logs := bufferLogger()
		st := newState(root, container.WithLogger(logger), container.WithDev(dev))
		st.Context(dom.FindByID(doc, "a")).Refs = []any{value.NewArray(UndefinedPrefix + "x")}

		_, err := Write(st, root)
		require.NoError(t, err)
		assert.Equal(t, dev, strings.Contains(logs.String(), "collides with a sentinel prefix"), "dev=%v", dev)
	}
}

func TestPause_DetachesWatches(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger), container.WithDev(true))
	a := dom.FindByID(doc, "a")

	w := container.NewWatch(a, 0, qrl.New("w.js", "watch"))
	cleaned := 0
	w.Cleanup = func() { cleaned++ }
	w.MarkDirty()
	ctx := st.Context(a)
	ctx.Seq = []any{w}
	ctx.Watches = []*container.Watch{w}

	res, err := Write(st, root)
	require.NoError(t, err)
	assert.False(t, w.Active())
	assert.Equal(t, 1, cleaned)
	assert.Contains(t, logs.String(), "pausing with a dirty watch")

	rec, ok := res.State.Objs[0].(Record)
	require.True(t, ok, "watch serializes as a record")
	assert.Equal(t, []string{"f", "i", "host", "qrl"}, rec.Keys)
	assert.Equal(t, int64(container.WatchIsWatch|container.WatchIsDirty), rec.Fields["f"])
	assert.Equal(t, "#0", rec.Fields["host"])
	assert.Equal(t, "1", rec.Fields["qrl"])
	assert.Equal(t, Meta{S: "0"}, res.State.Ctx["#0"])

	_, err = Write(st, root)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned, "cleanup runs once")
}

func TestPauseResume_Watch(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	a := dom.FindByID(doc, "a")
	w := container.NewWatch(a, 0, qrl.New("w.js", "watch"))
	ctx := st.Context(a)
	ctx.Seq = []any{w}
	ctx.Watches = []*container.Watch{w}

	_, err := Pause(st, root)
	require.NoError(t, err)

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))

	ctx2, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	require.Len(t, ctx2.Seq, 1)
	rec, ok := ctx2.Seq[0].(*value.Object)
	require.True(t, ok, "watch revives as plain data")
	host, _ := rec.Get("host")
	assert.True(t, host == any(dom.FindByID(doc2, "a")))
	q, _ := rec.Get("qrl")
	assert.IsType(t, &qrl.QRL{}, q)
	assert.Empty(t, ctx2.Watches)
}

func TestPauseResume_Listeners(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	a := dom.FindByID(doc, "a")
	state := value.NewObject(value.F("n", 1))
	st.Context(a).On("click", qrl.New("app.js", "onClick", state))
	st.Context(a).On("click", qrl.New("app.js", "track"))

	res, err := Pause(st, root)
	require.NoError(t, err)
	require.Len(t, res.Listeners, 2)
	assert.Equal(t, "0", res.Listeners[0].ElementID)
	assert.Equal(t, "on:click", res.Listeners[0].Attr())
	attr, _ := dom.Attr(a, "on:click")
	assert.Equal(t, "app.js#onClick[1]\napp.js#track", attr)

	reg := qrl.NewRegistry()
	reg.MustRegister("app.js", "onClick", func(captured []any, _ ...any) (any, error) {
		return captured[0], nil
	})
	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2, container.WithSymbols(reg))
	require.NoError(t, Resume(st2, root2))

	ctx, ok := st2.TryContext(dom.FindByID(doc2, "a"))
	require.True(t, ok)
	require.Len(t, ctx.Listeners, 2)
	assert.Equal(t, "click", ctx.Listeners[0].Event)
	got, err := ctx.Listeners[0].QRL.Invoke()
	require.NoError(t, err)
	n, _ := got.(*value.Object).Get("n")
	assert.Equal(t, int64(1), n)

	_, err = ctx.Listeners[1].QRL.Invoke()
	assert.ErrorIs(t, err, qrl.ErrUnresolved)
}

func TestPauseResume_Contexts(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).SetContext("theme", "dark")

	res, err := Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t, Meta{C: "theme=0"}, res.State.Ctx["#0"])

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctx, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	v, ok := ctx.ContextValue("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestPauseResume_ScriptBreakout(t *testing.T) {
	const hostile = `</script><script>alert(1)</script><!-- \x3C \x5C`
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{hostile}

	_, err := Pause(st, root)
	require.NoError(t, err)

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctx, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	assert.Equal(t, []any{hostile}, ctx.Refs)
}

func TestPauseResume_DocumentRootContainer(t *testing.T) {
	doc := parseDoc(t, `<!DOCTYPE html><html q:container=""><head></head><body><p id="a">a</p></body></html>`)
	root := dom.DocumentElement(doc)
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{"x"}

	_, err := Pause(st, root)
	require.NoError(t, err)
	assert.NotNil(t, dom.FindSnapshotScript(dom.Body(doc)), "carrier lives in the body")

	doc2 := reload(t, doc)
	root2 := dom.DocumentElement(doc2)
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctx, ok := st2.TryContext(dom.FindByID(doc2, "a"))
	require.True(t, ok)
	assert.Equal(t, []any{"x"}, ctx.Refs)
}

func TestPause_UnsupportedValue(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).Refs = []any{struct{}{}}
	before := renderDoc(t, doc)

	_, err := Pause(st, root)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotSerializable))
	assert.True(t, IsAssertion(err))
	assert.Equal(t, before, renderDoc(t, doc), "failed pause leaves the DOM untouched")
}

func TestPause_HostNeedsRender(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	st.Context(dom.FindByID(doc, "a")).Props = value.NewObject()

	_, err := Pause(st, root)
	assert.True(t, IsCode(err, ErrCodeInvalidMeta))
}

func TestPause_EncodeFailureKeepsWatches(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	a := dom.FindByID(doc, "a")
	w := container.NewWatch(a, 0, qrl.New("w.js", "watch"))
	cleaned := 0
	w.Cleanup = func() { cleaned++ }
	ctx := st.Context(a)
	ctx.Seq = []any{w}
	ctx.Watches = []*container.Watch{w}
	ctx.Refs = []any{value.NewObject(value.F("x", math.NaN()))}
	before := renderDoc(t, doc)

	_, err := Pause(st, root)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotSerializable), "got %v", err)
	assert.True(t, w.Active(), "watch survives a failed pause")
	assert.Zero(t, cleaned)
	assert.Equal(t, before, renderDoc(t, doc))
	assert.Nil(t, dom.FindSnapshotScript(dom.SnapshotParent(root)))
}

func TestPause_FailedRepauseKeepsPreviousSnapshot(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	a, b := dom.FindByID(doc, "a"), dom.FindByID(doc, "b")
	st.Context(a).Refs = []any{"x"}
	st.Context(b).Refs = []any{"y"}

	_, err := Pause(st, root)
	require.NoError(t, err)
	paused := renderDoc(t, doc)
	idA, _ := dom.Attr(a, dom.ElementIDAttr)
	idB, _ := dom.Attr(b, dom.ElementIDAttr)
	assert.Equal(t, []string{"0", "1"}, []string{idA, idB})

	ctx := st.Context(a)
	ctx.Refs = []any{b}
	ctx.Props = value.NewObject()
	_, err = Pause(st, root)
	require.True(t, IsCode(err, ErrCodeInvalidMeta), "got %v", err)
	assert.Equal(t, paused, renderDoc(t, doc), "element ids and carrier are untouched")

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctxB, ok := st2.TryContext(dom.FindByID(doc2, "b"))
	require.True(t, ok)
	assert.Equal(t, []any{"y"}, ctxB.Refs)
}

func TestPause_NestedContainerElement(t *testing.T) {
	doc := parseDoc(t, `<!DOCTYPE html><html><head></head><body><div id="app" q:container="">`+
		`<p id="a">a</p><section id="inner" q:container=""><span id="c">c</span></section>`+
		`</div></body></html>`)
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger), container.WithDev(true))
	c := dom.FindByID(doc, "c")
	st.Context(dom.FindByID(doc, "a")).Refs = []any{c}
	st.Context(c).Refs = []any{"inner state"}

	res, err := Pause(st, root)
	require.NoError(t, err)
	assert.Equal(t, []Entry{Sentinel{Of: SentinelUndefined}}, res.State.Objs, "nested state is not collected")
	assert.Equal(t, map[string]Meta{"#0": {R: "0"}}, res.State.Ctx)
	assert.False(t, dom.HasAttr(c, dom.ElementIDAttr))
	assert.Contains(t, logs.String(), "outside the container")

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctx, _ := st2.TryContext(dom.FindByID(doc2, "a"))
	require.Len(t, ctx.Refs, 1)
	assert.True(t, value.IsUndefined(ctx.Refs[0]))
}

func TestPauseResume_ListenerSharesClosure(t *testing.T) {
	doc := parseDoc(t, page)
	root := dom.FindByID(doc, "app")
	st := newState(root)
	render := qrl.New("app.js", "Host_render")
	ctx := st.Context(dom.FindByID(doc, "a"))
	ctx.Props = value.NewObject()
	ctx.Render = render
	ctx.On("click", render)

	_, err := Pause(st, root)
	require.NoError(t, err)

	doc2 := reload(t, doc)
	root2 := dom.FindByID(doc2, "app")
	st2 := newState(root2)
	require.NoError(t, Resume(st2, root2))
	ctx2, ok := st2.TryContext(dom.FindByID(doc2, "a"))
	require.True(t, ok)
	require.Len(t, ctx2.Listeners, 1)
	assert.Same(t, ctx2.Render, ctx2.Listeners[0].QRL)
}

func pausedPage(snapshot string) string {
	return `<!DOCTYPE html><html><head></head><body>` +
		`<div id="app" q:container="paused"><p id="a" q:id="0">a</p>` +
		`<script type="qwik/json">` + snapshot + `</script></div></body></html>`
}

func TestResume_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "not a container",
			src:  `<html><body><div id="app"><script type="qwik/json">{"ctx":{},"objs":[],"subs":[]}</script></div></body></html>`,
			want: "not a container",
		},
		{
			name: "missing script",
			src:  `<html><body><div id="app" q:container="paused"></div></body></html>`,
			want: "snapshot script not found",
		},
		{
			name: "malformed snapshot",
			src:  pausedPage(`{"ctx":`),
			want: "malformed snapshot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, tt.src)
			root := dom.FindByID(doc, "app")
			logger, logs := bufferLogger()
			st := newState(root, container.WithLogger(logger))
			before := renderDoc(t, doc)
			fired := 0
			stop := dom.Listen(root, dom.ResumeEvent, func(dom.Event) { fired++ })
			defer stop()

			require.NoError(t, Resume(st, root))
			assert.Equal(t, before, renderDoc(t, doc))
			assert.Contains(t, logs.String(), tt.want)
			assert.Zero(t, fired)
		})
	}
}

func TestResume_DanglingSubscriber(t *testing.T) {
	doc := parseDoc(t, pausedPage(`{"ctx":{"#0":{"r":"0!"}},"objs":[{"n":1}],"subs":[{"#0":null,"#7":["n"]}]}`))
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger))

	require.NoError(t, Resume(st, root))
	assert.Contains(t, logs.String(), "subscriber not found")

	ctx, _ := st.TryContext(dom.FindByID(doc, "a"))
	p := ctx.Refs[0].(*proxy.Proxy)
	assert.Equal(t, 1, p.Subscriptions().Len())
	_, ok := p.Subscriptions().Get(dom.FindByID(doc, "a"))
	assert.True(t, ok)
}

func TestResume_MissingElementField(t *testing.T) {
	doc := parseDoc(t, pausedPage(`{"ctx":{"#0":{"s":"0","r":"2"}},` +
		`"objs":[{"f":2,"i":0,"host":"#5","qrl":"1"},"` + ClosurePrefix + `w.js#watch",["#5",3]],"subs":[]}`))
	root := dom.FindByID(doc, "app")
	logger, logs := bufferLogger()
	st := newState(root, container.WithLogger(logger))

	require.NoError(t, Resume(st, root))
	assert.Contains(t, logs.String(), "element not found")
	status, _ := dom.ContainerStatus(root)
	assert.Equal(t, dom.ContainerResumed, status)

	ctx, ok := st.TryContext(dom.FindByID(doc, "a"))
	require.True(t, ok)
	require.Len(t, ctx.Seq, 1)
	rec := ctx.Seq[0].(*value.Object)
	host, _ := rec.Get("host")
	assert.True(t, value.IsUndefined(host), "missing host is dropped")
	q, _ := rec.Get("qrl")
	assert.IsType(t, &qrl.QRL{}, q)

	require.Len(t, ctx.Refs, 1)
	items := ctx.Refs[0].(*value.Array).Items
	assert.True(t, value.IsUndefined(items[0]))
	assert.Equal(t, int64(3), items[1])
}

func TestResume_ShortSubs(t *testing.T) {
	doc := parseDoc(t, pausedPage(`{"ctx":{"#0":{"r":"0 1"}},"objs":["x",[2]],"subs":[]}`))
	root := dom.FindByID(doc, "app")
	st := newState(root)

	require.NoError(t, Resume(st, root))
	ctx, _ := st.TryContext(dom.FindByID(doc, "a"))
	require.Len(t, ctx.Refs, 2)
	assert.Equal(t, "x", ctx.Refs[0])
	assert.Equal(t, []any{int64(2)}, ctx.Refs[1].(*value.Array).Items)
}

func TestResume_LegacySeqField(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want []any
	}{
		{"w only", `{"w":"1"}`, []any{"y"}},
		{"s wins", `{"s":"0","w":"1"}`, []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, pausedPage(`{"ctx":{"#0":`+tt.meta+`},"objs":["x","y"],"subs":[]}`))
			root := dom.FindByID(doc, "app")
			st := newState(root)
			require.NoError(t, Resume(st, root))
			ctx, _ := st.TryContext(dom.FindByID(doc, "a"))
			assert.Equal(t, tt.want, ctx.Seq)
		})
	}
}

func TestResume_Assertions(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
		code     ErrorCode
	}{
		{"object id out of range", `{"ctx":{"#0":{"r":"4"}},"objs":["x"],"subs":[]}`, ErrCodeMissingObjectID},
		{"bad object id", `{"ctx":{"#0":{"r":"?"}},"objs":["x"],"subs":[]}`, ErrCodeInvalidID},
		{"missing element", `{"ctx":{"#9":{"r":"0"}},"objs":["x"],"subs":[]}`, ErrCodeMissingElement},
		{"host needs two ids", `{"ctx":{"#0":{"h":"0"}},"objs":["x"],"subs":[]}`, ErrCodeInvalidMeta},
		{"render is not a closure", `{"ctx":{"#0":{"h":"0 0"}},"objs":["x"],"subs":[]}`, ErrCodeInvalidMeta},
		{"context pair without name", `{"ctx":{"#0":{"c":"=0"}},"objs":["x"],"subs":[]}`, ErrCodeInvalidMeta},
		{"dangling field", `{"ctx":{},"objs":[{"a":"3"}],"subs":[]}`, ErrCodeMissingObjectID},
		{"proxy of a string", `{"ctx":{"#0":{"r":"0!"}},"objs":["x"],"subs":[]}`, ErrCodeInvalidID},
		{"bad closure", `{"ctx":{},"objs":["` + ClosurePrefix + `nohash"],"subs":[]}`, ErrCodeInvalidClosure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, pausedPage(tt.snapshot))
			root := dom.FindByID(doc, "app")
			st := newState(root)

			err := Resume(st, root)
			require.Error(t, err)
			assert.True(t, IsCode(err, tt.code), "got %v", err)
			assert.True(t, IsAssertion(err))
			assert.NotNil(t, dom.FindSnapshotScript(root), "carrier stays on failure")
			status, _ := dom.ContainerStatus(root)
			assert.Equal(t, dom.ContainerPaused, status)
			_, ok := st.TryContext(dom.FindByID(doc, "a"))
			assert.False(t, ok, "no metadata applied")
		})
	}
}

func TestNormalize(t *testing.T) {
	doc := parseDoc(t, page)
	reg := proxy.NewRegistry()
	obj := value.NewObject()
	el := dom.FindByID(doc, "a")

	assert.Equal(t, documentKey, Normalize(doc, doc))
	assert.Equal(t, undefinedKey, Normalize(value.Undefined, doc))
	assert.Equal(t, undefinedKey, Normalize(value.NoSerialize(1), doc))
	assert.Equal(t, undefinedKey, Normalize(el.FirstChild, doc))
	assert.Equal(t, undefinedKey, Normalize(parseDoc(t, page), doc), "a foreign document is not the container's")
	assert.Same(t, obj, Normalize(reg.MustWrap(obj), doc))
	assert.Same(t, el, Normalize(el, doc))
	assert.Equal(t, int64(7), Normalize(7, doc))
	assert.Equal(t, "s", Normalize("s", doc))
}
