package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/pipeline"
)

// Transition is one recorded pipeline event.
type Transition struct {
	RunID   string               `json:"run_id"`
	Seq     int64                `json:"seq"`
	At      time.Time            `json:"at"`
	Type    pipeline.EventType   `json:"type"`
	Handle  pipeline.Handle      `json:"handle"`
	Kind    pipeline.PayloadKind `json:"kind"`
	From    string               `json:"from,omitempty"`
	To      string               `json:"to,omitempty"`
	Related []pipeline.Handle    `json:"related,omitempty"`
	Applied int                  `json:"applied,omitempty"`
	Skipped int                  `json:"skipped,omitempty"`
}

// Snapshot is a stored frame snapshot. JSON is the video.FrameSnapshot
// encoding as written.
type Snapshot struct {
	RunID     string
	Seq       int64
	Handle    pipeline.Handle
	FrameUUID string
	SourceID  string
	JSON      json.RawMessage
}

const transitionColumns = `run_id, seq, at, type, handle, kind, from_stage, to_stage, related, applied, skipped`

// ReadRun returns the run with the given id, or NOT_FOUND.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline, stages, started_at FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errs.New(errs.CodeNotFound, "run %q not recorded", id)
	}
	return run, err
}

// ReadRuns returns every recorded run, oldest first.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline, stages, started_at FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTransitions returns the whole log of runID in seq order.
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadTransitions(ctx context.Context, runID string) ([]Transition, error) {
	return s.queryTransitions(ctx, `
		SELECT `+transitionColumns+` FROM transitions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadHandleHistory returns the transitions of runID that involve h, either
// as the addressed handle or among the related ones, in seq order.
func (s *Store) ReadHandleHistory(ctx context.Context, runID string, h pipeline.Handle) ([]Transition, error) {
	return s.queryTransitions(ctx, `
		SELECT `+transitionColumns+` FROM transitions t
		WHERE t.run_id = ?
		  AND (t.handle = ? OR EXISTS (
		        SELECT 1 FROM json_each(t.related) WHERE json_each.value = ?))
		ORDER BY t.seq ASC
	`, runID, int64(h), int64(h))
}

// CountByType returns how many transitions of each type runID recorded.
func (s *Store) CountByType(ctx context.Context, runID string) (map[pipeline.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM transitions
		WHERE run_id = ?
		GROUP BY type
		ORDER BY type COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count transitions: %w", err)
	}
	defer rows.Close()

	out := make(map[pipeline.EventType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[pipeline.EventType(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}

// ReadSnapshots returns every stored snapshot of the frame with the given
// UUID, across runs, in (run, seq) order.
func (s *Store) ReadSnapshots(ctx context.Context, frameUUID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, handle, frame_uuid, source_id, snapshot
		FROM frame_snapshots
		WHERE frame_uuid = ?
		ORDER BY run_id COLLATE BINARY ASC, seq ASC
	`, frameUUID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		var h int64
		var data string
		if err := rows.Scan(&snap.RunID, &snap.Seq, &h, &snap.FrameUUID, &snap.SourceID, &data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Handle = pipeline.Handle(h)
		snap.JSON = json.RawMessage(data)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func (s *Store) queryTransitions(ctx context.Context, query string, args ...any) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransition(row rowScanner) (Transition, error) {
	var tr Transition
	var at, h int64
	var typ, kind, related string
	if err := row.Scan(&tr.RunID, &tr.Seq, &at, &typ, &h, &kind, &tr.From, &tr.To, &related, &tr.Applied, &tr.Skipped); err != nil {
		return Transition{}, fmt.Errorf("scan transition: %w", err)
	}
	tr.At = time.Unix(0, at)
	tr.Type = pipeline.EventType(typ)
	tr.Handle = pipeline.Handle(h)

	k, err := pipeline.ParsePayloadKind(kind)
	if err != nil {
		return Transition{}, fmt.Errorf("scan transition %d: %w", tr.Seq, err)
	}
	tr.Kind = k

	if tr.Related, err = unmarshalHandles(related); err != nil {
		return Transition{}, fmt.Errorf("scan transition %d: %w", tr.Seq, err)
	}
	return tr, nil
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var stages string
	var started int64
	if err := row.Scan(&run.ID, &run.Pipeline, &stages, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, started)

	var err error
	if run.Stages, err = unmarshalStages(stages); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	return run, nil
}
