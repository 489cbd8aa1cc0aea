package harness

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/container"
	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/snapshot"
	"github.com/roach88/resumable/internal/store"
	"github.com/roach88/resumable/internal/testutil"
)

// Harness is the test execution engine. It pauses a scenario's container,
// persists the paused document, restores it as a fresh document and
// resumes it there.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
	logs   *bytes.Buffer
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database with a
// deterministic clock and id sequence, so repeated runs produce identical
// output.
//
// Execution flow:
//  1. Build the object graph inside the container
//  2. Pause it and check the outcome against expect
//  3. Store the paused document and restore it as a new document
//  4. Resume the restored container
//  5. Compare the revived graph with the original and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.NewSequenceGenerator(scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logs := &bytes.Buffer{}
	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		logs:   logs,
	}
	return h.run(context.Background(), scenario)
}

// Paused is a scenario container after Pause.
type Paused struct {
	Doc    *html.Node
	Root   *html.Node
	State  *container.State
	Result *snapshot.Result
}

// Pause builds the scenario's graph and pauses its container, without
// the store round trip or any checks.
func Pause(sc *Scenario, opts ...container.Option) (*Paused, error) {
	g, err := buildGraph(sc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	res, err := snapshot.Pause(g.st, g.root)
	if err != nil {
		return nil, err
	}
	return &Paused{Doc: g.doc, Root: g.root, State: g.st, Result: res}, nil
}

func (h *Harness) run(ctx context.Context, sc *Scenario) (*Result, error) {
	opts := []container.Option{container.WithLogger(h.logger), container.WithDev(sc.Dev)}
	g, err := buildGraph(sc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	result := NewResult(sc.Name)
	res, err := snapshot.Pause(g.st, g.root)
	if err != nil {
		h.pauseFailed(sc, err, result)
		result.Logs = h.records()
		evaluateAssertions(result, sc.Assertions, nil)
		return result, nil
	}
	if sc.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected pause to fail with %s, but it succeeded", sc.Expect.Error))
	}

	if err := h.record(res, g, result); err != nil {
		return nil, err
	}

	var page strings.Builder
	if err := html.Render(&page, g.doc); err != nil {
		return nil, fmt.Errorf("failed to render paused document: %w", err)
	}
	stored, err := h.store.WriteSnapshot(ctx, store.Snapshot{
		Name:      sc.Name,
		Container: dom.Describe(g.root),
		State:     res.State,
		HTML:      page.String(),
		Dev:       sc.Dev,
		Listeners: store.ListenersFrom(res.Listeners),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store paused document: %w", err)
	}
	result.SnapshotID = stored.ID

	doc, _, err := h.store.Restore(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore paused document: %w", err)
	}
	root, err := containerRoot(doc, sc.Container)
	if err != nil {
		return nil, fmt.Errorf("restored document: %w", err)
	}

	revived := container.New(root, opts...)
	resumed := 0
	stop := dom.Listen(root, dom.ResumeEvent, func(dom.Event) { resumed++ })
	defer stop()

	if err := snapshot.Resume(revived, root); err != nil {
		result.AddError("resume failed: " + err.Error())
	} else {
		if resumed != 1 {
			result.AddError(fmt.Sprintf("%s dispatched %d times, want 1", dom.ResumeEvent, resumed))
		}
		for _, msg := range compareGraphs(g.st, g.root, revived, root) {
			result.AddError("revived graph: " + msg)
		}
	}

	result.Logs = h.records()
	evaluateAssertions(result, sc.Assertions, &AssertionContext{
		Paused:  g.doc,
		Revived: revived,
		Doc:     doc,
	})
	return result, nil
}

func (h *Harness) pauseFailed(sc *Scenario, err error, result *Result) {
	var se *snapshot.Error
	if errors.As(err, &se) {
		result.PauseError = string(se.Code)
	} else {
		result.PauseError = err.Error()
	}
	switch {
	case sc.Expect.Error == "":
		result.AddError("pause failed: " + err.Error())
	case !snapshot.IsCode(err, snapshot.ErrorCode(sc.Expect.Error)):
		result.AddError(fmt.Sprintf("pause failed with %v, want %s", err, sc.Expect.Error))
	}
}

// record copies the pause outcome into result.
func (h *Harness) record(res *snapshot.Result, g *graph, result *Result) error {
	data, err := res.State.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("failed to indent state: %w", err)
	}
	result.State = indented.String()
	result.Objs = len(res.State.Objs)
	for _, l := range res.Listeners {
		result.Listeners = append(result.Listeners, fmt.Sprintf("q:id=%s %s %s", l.ElementID, l.Attr(), l.Text))
	}

	var b strings.Builder
	if err := html.Render(&b, g.root); err != nil {
		return fmt.Errorf("failed to render container: %w", err)
	}
	result.HTML = b.String()
	return nil
}

// records parses the captured JSON log lines.
func (h *Harness) records() []LogRecord {
	var out []LogRecord
	sc := bufio.NewScanner(bytes.NewReader(h.logs.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var rec LogRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out
}
