package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/snapshot"
)

// Restore parses the stored document of snapshot id so it can be resumed.
//
// The carrier script embedded in the document is checked against the
// stored State; a mismatch means the document was edited after it was
// persisted.
func (s *Store) Restore(ctx context.Context, id string) (*html.Node, Snapshot, error) {
	snap, err := s.ReadSnapshot(ctx, id)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("restore %s: %w", id, err)
	}
	doc, err := html.Parse(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("restore %s: parse document: %w", id, err)
	}

	embedded, err := embeddedState(doc)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("restore %s: %w", id, err)
	}
	want, err := marshalState(snap.State)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("restore %s: %w", id, err)
	}
	got, err := marshalState(embedded)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("restore %s: %w", id, err)
	}
	if got != want {
		return nil, Snapshot{}, fmt.Errorf("restore %s: embedded snapshot differs from stored state", id)
	}
	return doc, snap, nil
}

// embeddedState finds the first paused container in doc and decodes its
// carrier script.
func embeddedState(doc *html.Node) (*snapshot.State, error) {
	found := dom.FindPaused(doc)
	if found == nil {
		return nil, fmt.Errorf("no paused container in document")
	}
	script := dom.FindSnapshotScript(dom.SnapshotParent(found))
	if script == nil {
		return nil, fmt.Errorf("paused container has no snapshot script")
	}
	return snapshot.DecodeState(dom.TextContent(script))
}
