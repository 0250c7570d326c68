package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/framepipe/internal/pipeline"
)

// Run describes one pipeline process recorded in the log.
type Run struct {
	ID        string
	Pipeline  string
	Stages    []pipeline.StageConfig
	StartedAt time.Time
}

// WriteRun registers a run. Writing the same run id twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	stages, err := marshalStages(run.Stages)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, pipeline, stages, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Pipeline, stages, run.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTransition appends one pipeline event to the log of runID, together
// with the frame snapshots it carries. The run must exist.
//
// Uses ON CONFLICT DO NOTHING on (run_id, seq): replaying the same event is
// silently ignored.
func (s *Store) WriteTransition(ctx context.Context, runID string, e pipeline.Event) error {
	related, err := marshalHandles(e.Related)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write transition: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transitions
		(run_id, seq, at, type, handle, kind, from_stage, to_stage, related, applied, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		e.Seq,
		e.Time.UnixNano(),
		string(e.Type),
		int64(e.Handle),
		e.Kind.String(),
		e.From,
		e.To,
		related,
		e.Applied,
		e.Skipped,
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, snap := range e.Frames {
		data, err := marshalJSON(snap)
		if err != nil {
			return fmt.Errorf("write transition: marshal snapshot: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO frame_snapshots (run_id, seq, handle, frame_uuid, source_id, snapshot)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, runID, e.Seq, int64(e.Handle), snap.UUID, snap.SourceID, data)
		if err != nil {
			return fmt.Errorf("write transition: snapshot %s: %w", snap.UUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write transition: commit: %w", err)
	}
	return nil
}
