package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/snapshot"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	ID        string
	Container string
}

// ObjLine is one objs slot of an inspected snapshot.
type ObjLine struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Subs  string `json:"subs,omitempty"`
}

// CtxLine is the metadata of one element.
type CtxLine struct {
	Element string        `json:"element"`
	Meta    snapshot.Meta `json:"meta"`
}

// InspectResult is a decoded snapshot.
type InspectResult struct {
	Container string    `json:"container"`
	Ctx       []CtxLine `json:"ctx"`
	Objs      []ObjLine `json:"objs"`
}

func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Container %s: %d elements, %d objs\n", r.Container, len(r.Ctx), len(r.Objs))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nELEMENT\tMETA")
	for _, c := range r.Ctx {
		fmt.Fprintf(tw, "%s\t%s\n", c.Element, metaText(c.Meta))
	}
	fmt.Fprintln(tw, "\nID\tKIND\tVALUE\tSUBS")
	for _, o := range r.Objs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Kind, o.Value, o.Subs)
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [doc.html]",
		Short: "Decode the snapshot of a paused document",
		Long: `Decode the qwik/json snapshot of a paused container and print its
element metadata, objs and subscriptions without reviving anything.

Examples:
  resumable inspect paused.html
  resumable inspect --id 0192f0c4-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "inspect the stored snapshot with this id")
	cmd.Flags().StringVar(&opts.Container, "container", "", "id attribute of the container element (default: first paused container)")

	return cmd
}

func runInspect(opts *InspectOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := loadPausedDocument(opts.RootOptions, opts.ID, args, cmd)
	if err != nil {
		return err
	}
	root, err := findContainer(doc, opts.Container)
	if err != nil {
		return err
	}
	script := dom.FindSnapshotScript(dom.SnapshotParent(root))
	if script == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("container %s has no snapshot script", dom.Describe(root)))
	}
	state, err := snapshot.DecodeState(dom.TextContent(script))
	if err != nil {
		return reportSnapshotError(formatter, "inspect", err)
	}
	return formatter.Success(inspectState(dom.Describe(root), state))
}

func inspectState(container string, state *snapshot.State) InspectResult {
	res := InspectResult{Container: container, Ctx: []CtxLine{}, Objs: []ObjLine{}}

	ids := make([]string, 0, len(state.Ctx))
	for id := range state.Ctx {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		na, _ := snapshot.StrToInt(strings.TrimPrefix(a, snapshot.ElementIDPrefix))
		nb, _ := snapshot.StrToInt(strings.TrimPrefix(b, snapshot.ElementIDPrefix))
		return na - nb
	})
	for _, id := range ids {
		res.Ctx = append(res.Ctx, CtxLine{Element: id, Meta: state.Ctx[id]})
	}

	for i, e := range state.Objs {
		line := ObjLine{ID: snapshot.IntToStr(i), Kind: e.Kind().String(), Value: entryText(e)}
		if i < len(state.Subs) && state.Subs[i] != nil {
			line.Subs = subsText(state.Subs[i])
		}
		res.Objs = append(res.Objs, line)
	}
	return res
}

func entryText(e snapshot.Entry) string {
	switch x := e.(type) {
	case snapshot.Literal:
		return jsonText(x.Value)
	case snapshot.Sentinel:
		if x.Of == snapshot.SentinelDocument {
			return "document"
		}
		return "undefined"
	case snapshot.Closure:
		return x.Text
	case snapshot.Array:
		items := make([]string, len(x.Items))
		for i, it := range x.Items {
			items[i] = literalText(it)
		}
		return "[" + strings.Join(items, " ") + "]"
	case snapshot.Record:
		fields := make([]string, len(x.Keys))
		for i, k := range x.Keys {
			fields[i] = k + "=" + literalText(x.Fields[k])
		}
		return "{" + strings.Join(fields, " ") + "}"
	}
	return fmt.Sprintf("%v", e)
}

// literalText prints ids bare and other values as JSON.
func literalText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return jsonText(v)
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func subsText(s *snapshot.Subs) string {
	parts := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		if e.All {
			parts[i] = e.ID + ":*"
			continue
		}
		parts[i] = e.ID + ":" + strings.Join(e.Props, ",")
	}
	return strings.Join(parts, " ")
}

func metaText(m snapshot.Meta) string {
	var parts []string
	for _, f := range []struct{ key, val string }{
		{"r", m.R}, {"s", m.S}, {"h", m.H}, {"c", m.C}, {"w", m.W},
	} {
		if f.val != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", f.key, f.val))
		}
	}
	return strings.Join(parts, " ")
}
