package harness

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/value"
)

// AssertionContext provides the documents assertions inspect.
type AssertionContext struct {
	// Paused is the original document after Pause.
	Paused *html.Node
	// Revived is the resumed container state.
	Revived *container.State
	// Doc is the restored document.
	Doc *html.Node
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertions adds one error to result per failed assertion. A nil
// actx means Pause failed; only log assertions are evaluated then.
func evaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) {
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertLog:
			err = assertLog(result.Logs, a)
		case AssertObjsCount:
			if actx != nil {
				err = assertObjsCount(result, a)
			}
		case AssertRevived:
			if actx != nil {
				err = assertRevived(actx, a)
			}
		case AssertListener:
			if actx != nil {
				err = assertListener(actx, a)
			}
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			result.AddError(err.Error())
		}
	}
}

func assertObjsCount(result *Result, a Assertion) error {
	if result.Objs != a.Count {
		return &AssertionError{
			Type:     AssertObjsCount,
			Expected: fmt.Sprintf("%d objs entries", a.Count),
			Actual:   fmt.Sprintf("%d objs entries", result.Objs),
		}
	}
	return nil
}

func assertLog(logs []LogRecord, a Assertion) error {
	for _, rec := range logs {
		if a.Level != "" && rec.Level != a.Level {
			continue
		}
		if strings.Contains(rec.Msg, a.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLog,
		Expected: fmt.Sprintf("%s record containing %q", levelOrAny(a.Level), a.Message),
		Actual:   fmt.Sprintf("not found in %d records", len(logs)),
	}
}

func levelOrAny(level string) string {
	if level == "" {
		return "any"
	}
	return level
}

func assertListener(actx *AssertionContext, a Assertion) error {
	el := dom.FindByID(actx.Paused, a.Element)
	if el == nil {
		return fmt.Errorf("listener assertion: element %q not found", a.Element)
	}
	attr, _ := dom.Attr(el, "on:"+a.Event)
	for _, line := range strings.Split(attr, "\n") {
		if line == a.Closure {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertListener,
		Expected: fmt.Sprintf("on:%s of #%s to contain %q", a.Event, a.Element, a.Closure),
		Actual:   fmt.Sprintf("%q", attr),
	}
}

func assertRevived(actx *AssertionContext, a Assertion) error {
	el := dom.FindByID(actx.Doc, a.Element)
	if el == nil {
		return fmt.Errorf("revived assertion: element %q not found", a.Element)
	}
	ctx, ok := actx.Revived.TryContext(el)
	if !ok {
		return &AssertionError{
			Type:     AssertRevived,
			Expected: fmt.Sprintf("#%s to have component state", a.Element),
			Actual:   "no component state",
		}
	}
	got, err := lookupPath(ctx, a.Path)
	if err != nil {
		return &AssertionError{Type: AssertRevived, Expected: a.Path, Actual: err.Error()}
	}
	if !matchExpected(&a.Value, got) {
		return &AssertionError{
			Type:     AssertRevived,
			Expected: fmt.Sprintf("%s = %s", a.Path, a.Value.Value),
			Actual:   describe(got),
		}
	}
	return nil
}

// lookupPath walks a dotted path from an element's component state.
// Proxies are looked through; numeric segments index lists and closure
// captures.
func lookupPath(ctx *container.Context, path string) (any, error) {
	segs := strings.Split(path, ".")
	var cur any
	rest := segs[1:]
	switch segs[0] {
	case "props":
		cur = ctx.Props
	case "render":
		cur = ctx.Render
	case "refs":
		cur = ctx.Refs
	case "seq":
		cur = ctx.Seq
	case "contexts":
		if len(rest) == 0 {
			return nil, fmt.Errorf("contexts needs a name")
		}
		v, ok := ctx.ContextValue(rest[0])
		if !ok {
			return nil, fmt.Errorf("context %q not provided", rest[0])
		}
		cur, rest = v, rest[1:]
	default:
		return nil, fmt.Errorf("unknown root %q", segs[0])
	}
	for _, seg := range rest {
		next, err := step(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func step(cur any, seg string) (any, error) {
	if t, ok := proxy.Target(cur); ok {
		cur = t
	}
	index := func(n int) (int, error) {
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= n {
			return 0, fmt.Errorf("index %q out of range (%d items)", seg, n)
		}
		return i, nil
	}
	switch c := cur.(type) {
	case []any:
		i, err := index(len(c))
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case *value.Array:
		i, err := index(len(c.Items))
		if err != nil {
			return nil, err
		}
		return c.Items[i], nil
	case *qrl.QRL:
		i, err := index(len(c.Captured))
		if err != nil {
			return nil, err
		}
		return c.Captured[i], nil
	case *value.Object:
		v, ok := c.Get(seg)
		if !ok {
			return nil, fmt.Errorf("no field %q", seg)
		}
		return v, nil
	}
	return nil, fmt.Errorf("cannot select %q from %s", seg, describe(cur))
}

// matchExpected compares a revived value with an expected YAML scalar.
// "$undefined", "$document" and "@id" name sentinels and elements; a
// closure matches its chunk#symbol form.
func matchExpected(want *yaml.Node, got any) bool {
	if t, ok := proxy.Target(got); ok {
		got = t
	}
	switch want.ShortTag() {
	case "!!null":
		return got == nil
	case "!!bool":
		var b bool
		if err := want.Decode(&b); err != nil {
			return false
		}
		g, ok := got.(bool)
		return ok && g == b
	case "!!int", "!!float":
		var f float64
		if err := want.Decode(&f); err != nil {
			return false
		}
		return numEqual(f, got)
	case "!!str":
		s := want.Value
		switch {
		case s == "$undefined":
			return value.IsUndefined(got)
		case s == "$document":
			n, ok := got.(*html.Node)
			return ok && n.Type == html.DocumentNode
		case strings.HasPrefix(s, "@") && !strings.HasPrefix(s, "@@"):
			n, ok := got.(*html.Node)
			if !ok {
				return false
			}
			id, _ := dom.Attr(n, "id")
			return id == s[1:]
		case strings.HasPrefix(s, "$$"), strings.HasPrefix(s, "@@"):
			s = s[1:]
		}
		if q, ok := got.(*qrl.QRL); ok {
			return q.String() == s
		}
		g, ok := got.(string)
		return ok && g == s
	}
	return false
}

func describe(v any) string {
	switch v := v.(type) {
	case *html.Node:
		if v.Type == html.DocumentNode {
			return "document"
		}
		return "element " + dom.Describe(v)
	case *qrl.QRL:
		return "closure " + v.String()
	case *value.Object:
		return fmt.Sprintf("object with keys %v", v.Keys())
	case *value.Array:
		return fmt.Sprintf("array of %d", v.Len())
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T %v", v, v)
}
