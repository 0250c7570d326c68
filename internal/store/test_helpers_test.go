package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/framepipe/internal/pipeline"
)

var testStages = []pipeline.StageConfig{
	{Name: "decode", Kind: pipeline.FramePayload},
	{Name: "infer", Kind: pipeline.BatchPayload},
	{Name: "sink", Kind: pipeline.FramePayload},
}

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun registers a run named id with testStages.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:        id,
		Pipeline:  "test",
		Stages:    testStages,
		StartedAt: time.Unix(1700000000, 0),
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestEvent builds an event with a deterministic timestamp.
func createTestEvent(seq int64, typ pipeline.EventType, h pipeline.Handle, from, to string, related ...pipeline.Handle) pipeline.Event {
	kind := pipeline.FramePayload
	if to == "infer" {
		kind = pipeline.BatchPayload
	}
	return pipeline.Event{
		Seq:     seq,
		Time:    time.Unix(1700000000, seq),
		Type:    typ,
		Handle:  h,
		Kind:    kind,
		From:    from,
		To:      to,
		Related: related,
	}
}
