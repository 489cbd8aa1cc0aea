package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Summary is a snapshot without its document and state.
type Summary struct {
	ID        string
	Seq       int64
	Name      string
	Container string
	Objs      int
	Listeners int
}

// ReadSnapshot retrieves a snapshot and its listeners by id.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, name, container, state, html, dev
		FROM snapshots
		WHERE id = ?
	`, id)
	return s.finishRead(ctx, row)
}

// LatestSnapshot retrieves the most recent snapshot stored under name.
// Returns ErrNotFound if there is none.
func (s *Store) LatestSnapshot(ctx context.Context, name string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, name, container, state, html, dev
		FROM snapshots
		WHERE name = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, name)
	return s.finishRead(ctx, row)
}

func (s *Store) finishRead(ctx context.Context, row *sql.Row) (Snapshot, error) {
	snap, err := scanSnapshotRow(row)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Listeners, err = s.ReadListeners(ctx, snap.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ReadListeners returns the listener side list of a snapshot in write order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadListeners(ctx context.Context, snapshotID string) ([]Listener, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT element_id, event, qrl
		FROM listeners
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query listeners: %w", err)
	}
	defer rows.Close()

	listeners := []Listener{}
	for rows.Next() {
		var l Listener
		if err := rows.Scan(&l.ElementID, &l.Event, &l.QRL); err != nil {
			return nil, fmt.Errorf("scan listener: %w", err)
		}
		listeners = append(listeners, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listeners: %w", err)
	}
	return listeners, nil
}

// ListSnapshots returns every snapshot summary with deterministic ordering:
// seq ASC, id ASC.
func (s *Store) ListSnapshots(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.seq, s.name, s.container, s.objs,
			(SELECT COUNT(*) FROM listeners l WHERE l.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.seq ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Seq, &sum.Name, &sum.Container, &sum.Objs, &sum.Listeners); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return summaries, nil
}

func scanSnapshotRow(row *sql.Row) (Snapshot, error) {
	var (
		snap      Snapshot
		stateJSON string
		dev       int
	)
	err := row.Scan(&snap.ID, &snap.Seq, &snap.Name, &snap.Container, &stateJSON, &snap.HTML, &dev)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.Dev = dev != 0
	snap.State, err = unmarshalState(stateJSON)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
