package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/resumable/internal/snapshot"
	"github.com/roach88/resumable/internal/testutil"
)

// createTestStore creates a new store in a temp dir with deterministic ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequenceGenerator("snap")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot creates a snapshot with a small valid state.
func createTestSnapshot(name string) Snapshot {
	return Snapshot{
		Name:      name,
		Container: "div#app",
		State: &snapshot.State{
			Ctx:  map[string]snapshot.Meta{"#0": {R: "0"}},
			Objs: []snapshot.Entry{snapshot.Literal{Value: "hi"}},
			Subs: []*snapshot.Subs{nil},
		},
		HTML: `<html><head></head><body><div id="app" q:container="paused"><p q:id="0"></p>` +
			`<script type="qwik/json">{"ctx":{"#0":{"r":"0"}},"objs":["hi"],"subs":[null]}</script></div></body></html>`,
	}
}
