package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/resumable/internal/store"
)

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "List, show and delete stored paused documents",
	}
	cmd.AddCommand(newStoreListCommand(rootOpts))
	cmd.AddCommand(newStoreShowCommand(rootOpts))
	cmd.AddCommand(newStoreDeleteCommand(rootOpts))
	return cmd
}

// SnapshotList is the output of store list.
type SnapshotList struct {
	Snapshots []SnapshotSummary `json:"snapshots"`
}

// SnapshotSummary is one listed snapshot.
type SnapshotSummary struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Name      string `json:"name"`
	Container string `json:"container"`
	Objs      int    `json:"objs"`
	Listeners int    `json:"listeners"`
}

func (l SnapshotList) String() string {
	if len(l.Snapshots) == 0 {
		return "No snapshots stored."
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tNAME\tCONTAINER\tOBJS\tLISTENERS")
	for _, s := range l.Snapshots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", s.Seq, s.ID, s.Name, s.Container, s.Objs, s.Listeners)
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func newStoreListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots in seq order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sums, err := st.ListSnapshots(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list snapshots", err)
			}
			out := SnapshotList{Snapshots: make([]SnapshotSummary, len(sums))}
			for i, s := range sums {
				out.Snapshots[i] = SnapshotSummary(s)
			}
			return newFormatter(opts, cmd).Success(out)
		},
	}
}

// SnapshotDetail is the output of store show.
type SnapshotDetail struct {
	ID        string   `json:"id"`
	Seq       int64    `json:"seq"`
	Name      string   `json:"name"`
	Container string   `json:"container"`
	Dev       bool     `json:"dev"`
	State     string   `json:"state"`
	Listeners []string `json:"listeners"`
	HTML      string   `json:"html,omitempty"`
}

func (d SnapshotDetail) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Snapshot %s (seq %d)\n", d.ID, d.Seq)
	fmt.Fprintf(&b, "Name: %s\nContainer: %s\n", d.Name, d.Container)
	if d.Dev {
		b.WriteString("Dev: true\n")
	}
	fmt.Fprintf(&b, "State: %s\n", d.State)
	b.WriteString("Listeners:")
	if len(d.Listeners) == 0 {
		b.WriteString(" (none)")
	}
	for _, l := range d.Listeners {
		b.WriteString("\n  " + l)
	}
	if d.HTML != "" {
		b.WriteString("\n\n" + d.HTML)
	}
	return b.String()
}

func newStoreShowCommand(opts *RootOptions) *cobra.Command {
	var withHTML bool
	cmd := &cobra.Command{
		Use:           "show <id>",
		Short:         "Show a stored snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.ReadSnapshot(cmd.Context(), args[0])
			if err != nil {
				return storeLookupError(err)
			}
			stateJSON, err := snap.State.MarshalJSON()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode state", err)
			}
			detail := SnapshotDetail{
				ID:        snap.ID,
				Seq:       snap.Seq,
				Name:      snap.Name,
				Container: snap.Container,
				Dev:       snap.Dev,
				State:     string(stateJSON),
				Listeners: []string{},
			}
			for _, l := range snap.Listeners {
				detail.Listeners = append(detail.Listeners, fmt.Sprintf("q:id=%s on:%s %s", l.ElementID, l.Event, l.QRL))
			}
			if withHTML {
				detail.HTML = snap.HTML
			}
			return newFormatter(opts, cmd).Success(detail)
		},
	}
	cmd.Flags().BoolVar(&withHTML, "html", false, "include the paused document")
	return cmd
}

func newStoreDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a stored snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
				return storeLookupError(err)
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf("Deleted %s", args[0]))
		},
	}
}

func storeLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "unknown snapshot", err)
	}
	return WrapExitError(ExitCommandError, "store error", err)
}
