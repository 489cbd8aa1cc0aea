package store

import (
	"context"
	"fmt"

	"github.com/roach88/resumable/internal/snapshot"
)

// Snapshot is one persisted paused document.
type Snapshot struct {
	ID  string
	Seq int64
	// Name labels the source, e.g. a scenario name or file path.
	Name string
	// Container describes the container element, e.g. "div#app".
	Container string
	State     *snapshot.State
	// HTML is the rendered paused document.
	HTML      string
	Dev       bool
	Listeners []Listener
}

// Listener is one row of the listener side list.
type Listener struct {
	ElementID string
	Event     string
	QRL       string
}

// ListenersFrom converts the writer's listener list to storage rows.
func ListenersFrom(ls []snapshot.Listener) []Listener {
	out := make([]Listener, len(ls))
	for i, l := range ls {
		out[i] = Listener{ElementID: l.ElementID, Event: l.Event, QRL: l.Text}
	}
	return out
}

// WriteSnapshot inserts snap and its listeners in one transaction.
// An empty ID is generated; Seq is always assigned by the store clock.
// The stored record is returned.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	stateJSON, err := marshalState(snap.State)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}
	if snap.ID == "" {
		snap.ID = s.ids.Generate()
	}
	snap.Seq = s.clock.Next()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, seq, name, container, state, html, objs, dev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		snap.Seq,
		snap.Name,
		snap.Container,
		stateJSON,
		snap.HTML,
		len(snap.State.Objs),
		boolToInt(snap.Dev),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	for i, l := range snap.Listeners {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO listeners (snapshot_id, position, element_id, event, qrl)
			VALUES (?, ?, ?, ?, ?)
		`, snap.ID, i, l.ElementID, l.Event, l.QRL)
		if err != nil {
			return Snapshot{}, fmt.Errorf("write listener %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return snap, nil
}

// DeleteSnapshot removes a snapshot and its listeners.
// Returns ErrNotFound if no snapshot has the id.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete snapshot %s: %w", id, ErrNotFound)
	}
	return nil
}
