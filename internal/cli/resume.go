package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/snapshot"
	"github.com/roach88/resumable/internal/store"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	ID        string // restore this stored snapshot instead of a file
	Container string // id attribute of the container element
	Out       string // write the resumed document here
}

// ResumedElement summarizes the revived context of one element.
type ResumedElement struct {
	ID        string   `json:"id"`
	Element   string   `json:"element"`
	Refs      int      `json:"refs"`
	Seq       int      `json:"seq"`
	Host      bool     `json:"host,omitempty"`
	Contexts  []string `json:"contexts,omitempty"`
	Listeners []string `json:"listeners,omitempty"`
}

// ResumeResult is the outcome of one resume.
type ResumeResult struct {
	Container string           `json:"container"`
	Elements  []ResumedElement `json:"elements"`
	Output    string           `json:"output,omitempty"`
}

func (r ResumeResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumed %s: %d elements", r.Container, len(r.Elements))
	for _, el := range r.Elements {
		fmt.Fprintf(&b, "\n  #%s %s refs=%d seq=%d", el.ID, el.Element, el.Refs, el.Seq)
		if el.Host {
			b.WriteString(" host")
		}
		if len(el.Contexts) > 0 {
			fmt.Fprintf(&b, " contexts=%s", strings.Join(el.Contexts, ","))
		}
		for _, l := range el.Listeners {
			b.WriteString("\n    " + l)
		}
	}
	if r.Output != "" {
		b.WriteString("\nWrote " + r.Output)
	}
	return b.String()
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume [doc.html]",
		Short: "Revive a paused container from its document",
		Long: `Resume a paused container: decode its qwik/json snapshot, revive the
object graph and report the element contexts it restored.

The document is read from a file, or restored from the store with --id.

Exit codes:
  0 - Resumed
  1 - Resume failed or the container was skipped
  2 - Command error (unreadable document, store errors)

Examples:
  resumable resume paused.html
  resumable resume --id 0192f0c4-... --out resumed.html`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "restore the stored snapshot with this id")
	cmd.Flags().StringVar(&opts.Container, "container", "", "id attribute of the container element (default: first paused container)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the resumed document to this file")

	return cmd
}

func runResume(opts *ResumeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := loadPausedDocument(opts.RootOptions, opts.ID, args, cmd)
	if err != nil {
		return err
	}
	root, err := findContainer(doc, opts.Container)
	if err != nil {
		return err
	}

	st := container.New(root, container.WithLogger(opts.logger()), container.WithDev(opts.Dev))
	resumed := 0
	stop := dom.Listen(root, dom.ResumeEvent, func(dom.Event) { resumed++ })
	defer stop()

	if err := snapshot.Resume(st, root); err != nil {
		return reportSnapshotError(formatter, "resume", err)
	}
	if resumed == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("container %s was not resumed", dom.Describe(root)))
	}

	result := ResumeResult{
		Container: dom.Describe(root),
		Elements:  resumedElements(st, root),
	}
	if opts.Out != "" {
		if err := writeDocument(opts.Out, doc); err != nil {
			return err
		}
		result.Output = opts.Out
	}
	return formatter.Success(result)
}

// loadPausedDocument reads the document named by args, or restores the
// stored snapshot id. Exactly one source is required.
func loadPausedDocument(opts *RootOptions, id string, args []string, cmd *cobra.Command) (*html.Node, error) {
	switch {
	case id != "" && len(args) > 0:
		return nil, NewExitError(ExitCommandError, "pass either a document or --id, not both")
	case id == "" && len(args) == 0:
		return nil, NewExitError(ExitCommandError, "a document or --id is required")
	case len(args) > 0:
		return readDocument(args[0])
	}

	st, err := opts.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	doc, _, err := st.Restore(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, WrapExitError(ExitCommandError, "unknown snapshot", err)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore snapshot", err)
	}
	return doc, nil
}

func resumedElements(st *container.State, root *html.Node) []ResumedElement {
	out := []ResumedElement{}
	for _, el := range dom.Walk(root, dom.HasElementID) {
		ctx, ok := st.TryContext(el)
		if !ok {
			continue
		}
		id, _ := dom.Attr(el, dom.ElementIDAttr)
		re := ResumedElement{
			ID:      id,
			Element: dom.Describe(el),
			Refs:    len(ctx.Refs),
			Seq:     len(ctx.Seq),
			Host:    ctx.Render != nil,
		}
		for _, nv := range ctx.Contexts {
			re.Contexts = append(re.Contexts, nv.Name)
		}
		for _, l := range ctx.Listeners {
			re.Listeners = append(re.Listeners, fmt.Sprintf("%s%s %s", snapshot.ListenerAttrPrefix, l.Event, l.QRL))
		}
		out = append(out, re)
	}
	return out
}
