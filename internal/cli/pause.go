package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/harness"
	"github.com/roach88/resumable/internal/snapshot"
	"github.com/roach88/resumable/internal/store"
)

// PauseOptions holds flags for the pause command.
type PauseOptions struct {
	*RootOptions
	Out     string // write the paused document here
	Name    string // store label, defaults to the scenario name
	NoStore bool
}

// PauseResult is the outcome of one pause.
type PauseResult struct {
	Scenario   string `json:"scenario"`
	Container  string `json:"container"`
	Objs       int    `json:"objs"`
	Elements   int    `json:"elements"`
	Listeners  int    `json:"listeners"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Output     string `json:"output,omitempty"`
}

func (r PauseResult) String() string {
	s := fmt.Sprintf("Paused %s (%s): %d objs, %d elements, %d listeners",
		r.Scenario, r.Container, r.Objs, r.Elements, r.Listeners)
	if r.SnapshotID != "" {
		s += "\nStored as " + r.SnapshotID
	}
	if r.Output != "" {
		s += "\nWrote " + r.Output
	}
	return s
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PauseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pause <scenario.yaml>",
		Short: "Build a scenario's graph, pause it and store the document",
		Long: `Build the object graph a scenario file describes, pause its container
and persist the paused document in the store.

Exit codes:
  0 - Paused
  1 - Pause failed (the snapshot error code is reported)
  2 - Command error (unreadable scenario, store errors)

Examples:
  resumable pause ./scenarios/counter.yaml
  resumable pause ./scenarios/counter.yaml --out paused.html --no-store
  resumable pause ./scenarios/counter.yaml --db ./snapshots.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPause(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the paused document to this file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "label to store the snapshot under (default: scenario name)")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "do not persist the paused document")

	return cmd
}

func runPause(opts *PauseOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s from %s", sc.Name, filepath.Base(path))

	paused, err := harness.Pause(sc,
		container.WithLogger(opts.logger()),
		container.WithDev(opts.Dev || sc.Dev))
	if err != nil {
		return reportSnapshotError(formatter, "pause", err)
	}
	res := paused.Result
	for i, v := range res.Objs {
		formatter.VerboseLog("  %s: %s", snapshot.IntToStr(i), describeLive(v))
	}

	result := PauseResult{
		Scenario:  sc.Name,
		Container: dom.Describe(paused.Root),
		Objs:      len(res.State.Objs),
		Elements:  len(res.State.Ctx),
		Listeners: len(res.Listeners),
	}

	if opts.Out != "" {
		if err := writeDocument(opts.Out, paused.Doc); err != nil {
			return err
		}
		result.Output = opts.Out
	}

	if !opts.NoStore {
		id, err := storePaused(opts, sc, paused, cmd)
		if err != nil {
			return err
		}
		result.SnapshotID = id
	}

	return formatter.Success(result)
}

func storePaused(opts *PauseOptions, sc *harness.Scenario, paused *harness.Paused, cmd *cobra.Command) (string, error) {
	page, err := renderDocument(paused.Doc)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to render document", err)
	}
	st, err := opts.openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	name := opts.Name
	if name == "" {
		name = sc.Name
	}
	snap, err := st.WriteSnapshot(cmd.Context(), store.Snapshot{
		Name:      name,
		Container: dom.Describe(paused.Root),
		State:     paused.Result.State,
		HTML:      page,
		Dev:       paused.State.Dev,
		Listeners: store.ListenersFrom(paused.Result.Listeners),
	})
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to store paused document", err)
	}
	return snap.ID, nil
}
