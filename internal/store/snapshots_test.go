package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/snapshot"
)

func TestWriteSnapshot_AssignsIDAndSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteSnapshot(ctx, createTestSnapshot("counter"))
	require.NoError(t, err)
	second, err := s.WriteSnapshot(ctx, createTestSnapshot("counter"))
	require.NoError(t, err)

	assert.Equal(t, "snap-1", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "snap-2", second.ID)
	assert.Equal(t, int64(2), second.Seq)
}

func TestWriteSnapshot_KeepsExplicitID(t *testing.T) {
	s := createTestStore(t)
	snap := createTestSnapshot("counter")
	snap.ID = "fixed"

	got, err := s.WriteSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.ID)

	_, err = s.WriteSnapshot(context.Background(), snap)
	assert.Error(t, err, "duplicate id is rejected")
}

func TestWriteSnapshot_DefaultUUIDv7(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.WriteSnapshot(context.Background(), createTestSnapshot("counter"))
	require.NoError(t, err)
	parsed, err := uuid.Parse(got.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestWriteSnapshot_NilState(t *testing.T) {
	s := createTestStore(t)
	snap := createTestSnapshot("counter")
	snap.State = nil

	_, err := s.WriteSnapshot(context.Background(), snap)
	assert.Error(t, err)
}

func TestReadSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot("counter")
	snap.Dev = true
	snap.Listeners = []Listener{
		{ElementID: "0", Event: "click", QRL: "app.js#onClick[0]"},
		{ElementID: "0", Event: "input", QRL: "app.js#onInput"},
	}

	written, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)

	got, err := s.ReadSnapshot(ctx, written.ID)
	require.NoError(t, err)
	assert.Equal(t, written, got)
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadListeners_Empty(t *testing.T) {
	s := createTestStore(t)
	written, err := s.WriteSnapshot(context.Background(), createTestSnapshot("counter"))
	require.NoError(t, err)

	listeners, err := s.ReadListeners(context.Background(), written.ID)
	require.NoError(t, err)
	assert.NotNil(t, listeners)
	assert.Empty(t, listeners)
}

func TestLatestSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.WriteSnapshot(ctx, createTestSnapshot("a"))
	require.NoError(t, err)
	latest, err := s.WriteSnapshot(ctx, createTestSnapshot("a"))
	require.NoError(t, err)
	_, err = s.WriteSnapshot(ctx, createTestSnapshot("b"))
	require.NoError(t, err)

	got, err := s.LatestSnapshot(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, got.ID)

	_, err = s.LatestSnapshot(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSnapshots_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	withListener := createTestSnapshot("b")
	withListener.Listeners = []Listener{{ElementID: "0", Event: "click", QRL: "a.js#b"}}
	_, err = s.WriteSnapshot(ctx, createTestSnapshot("a"))
	require.NoError(t, err)
	_, err = s.WriteSnapshot(ctx, withListener)
	require.NoError(t, err)

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{ID: "snap-1", Seq: 1, Name: "a", Container: "div#app", Objs: 1, Listeners: 0},
		{ID: "snap-2", Seq: 2, Name: "b", Container: "div#app", Objs: 1, Listeners: 1},
	}, list)
}

func TestDeleteSnapshot_CascadesListeners(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot("a")
	snap.Listeners = []Listener{{ElementID: "0", Event: "click", QRL: "a.js#b"}}
	written, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSnapshot(ctx, written.ID))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM listeners").Scan(&n))
	assert.Zero(t, n)
	assert.ErrorIs(t, s.DeleteSnapshot(ctx, written.ID), ErrNotFound)
}

func TestListenersFrom(t *testing.T) {
	got := ListenersFrom([]snapshot.Listener{{ElementID: "3", Event: "click", Text: "a.js#b[0]"}})
	assert.Equal(t, []Listener{{ElementID: "3", Event: "click", QRL: "a.js#b[0]"}}, got)
}

func TestRestore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	written, err := s.WriteSnapshot(ctx, createTestSnapshot("a"))
	require.NoError(t, err)

	doc, snap, err := s.Restore(ctx, written.ID)
	require.NoError(t, err)
	assert.Equal(t, written.ID, snap.ID)
	app := dom.FindByID(doc, "app")
	require.NotNil(t, app)
	status, _ := dom.ContainerStatus(app)
	assert.Equal(t, dom.ContainerPaused, status)
}

func TestRestore_DetectsEditedDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot("a")
	snap.HTML = strings.Replace(snap.HTML, `"objs":["hi"]`, `"objs":["bye"]`, 1)
	written, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)

	_, _, err = s.Restore(ctx, written.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differs")
}

func TestRestore_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.Restore(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
