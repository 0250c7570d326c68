package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/framepipe/internal/pipeline"
)

// Occupancy is the handle-to-stage placement rebuilt from a run's log.
type Occupancy map[pipeline.Handle]string

// Stage returns the handles placed in the named stage, ascending.
func (o Occupancy) Stage(name string) []pipeline.Handle {
	out := []pipeline.Handle{}
	for h, s := range o {
		if s == name {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReplayOccupancy folds the log of runID into the placement of every live
// handle at the last recorded transition. A gap-free log yields exactly the
// placement the pipeline had at that point.
func (s *Store) ReplayOccupancy(ctx context.Context, runID string) (Occupancy, error) {
	trs, err := s.ReadTransitions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay occupancy: %w", err)
	}
	return Fold(trs), nil
}

// Fold applies transitions, in the given order, to an empty placement.
func Fold(trs []Transition) Occupancy {
	occ := make(Occupancy)
	for _, tr := range trs {
		switch tr.Type {
		case pipeline.EventAdmitted, pipeline.EventMoved:
			occ[tr.Handle] = tr.To
		case pipeline.EventSplit:
			for _, h := range tr.Related {
				occ[h] = tr.To
			}
		case pipeline.EventPacked:
			for _, h := range tr.Related {
				delete(occ, h)
			}
			occ[tr.Handle] = tr.To
		case pipeline.EventUnpacked:
			delete(occ, tr.Handle)
			for _, h := range tr.Related {
				occ[h] = tr.To
			}
		case pipeline.EventDeleted:
			delete(occ, tr.Handle)
		}
	}
	return occ
}

// LastSeq returns the highest seq recorded for runID, or 0.
// A resumed run continues its clock from here.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM transitions WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
