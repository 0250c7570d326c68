package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/video"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestRun(t, s, "run-1")

	// Second write is a no-op.
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Pipeline: "other", StartedAt: time.Unix(0, 0)}))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.Pipeline, got.Pipeline)
	assert.Equal(t, want.Stages, got.Stages)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))

	_, err = s.ReadRun(ctx, "nope")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestReadRuns_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, Run{ID: "b", Pipeline: "p", Stages: testStages, StartedAt: time.Unix(20, 0)}))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "a", Pipeline: "p", Stages: testStages, StartedAt: time.Unix(10, 0)}))

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestWriteTransition_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	want := createTestEvent(3, pipeline.EventPacked, 7, "decode", "infer", 1, 2)
	require.NoError(t, s.WriteTransition(ctx, "run-1", want))

	got, err := s.ReadTransitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	expected := Transition{
		RunID:   "run-1",
		Seq:     3,
		At:      want.Time,
		Type:    pipeline.EventPacked,
		Handle:  7,
		Kind:    pipeline.BatchPayload,
		From:    "decode",
		To:      "infer",
		Related: []pipeline.Handle{1, 2},
	}
	if diff := cmp.Diff(expected, got[0]); diff != "" {
		t.Errorf("transition mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTransition_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	e := createTestEvent(1, pipeline.EventAdmitted, 1, "", "decode")
	require.NoError(t, s.WriteTransition(ctx, "run-1", e))

	dup := e
	dup.To = "sink"
	require.NoError(t, s.WriteTransition(ctx, "run-1", dup))

	got, err := s.ReadTransitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "decode", got[0].To, "first write wins")
}

func TestWriteTransition_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteTransition(context.Background(), "ghost", createTestEvent(1, pipeline.EventAdmitted, 1, "", "decode"))
	assert.Error(t, err)
}

func TestWriteTransition_Snapshots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	f := video.NewFrame("cam-9", video.WithSize(640, 480), video.WithPTS(90))
	e := createTestEvent(5, pipeline.EventDeleted, 4, "sink", "")
	e.Frames = []video.FrameSnapshot{f.Snapshot()}
	require.NoError(t, s.WriteTransition(ctx, "run-1", e))

	snaps, err := s.ReadSnapshots(ctx, f.UUID().String())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(5), snaps[0].Seq)
	assert.Equal(t, pipeline.Handle(4), snaps[0].Handle)
	assert.Equal(t, "cam-9", snaps[0].SourceID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(snaps[0].JSON, &decoded))
	assert.Equal(t, float64(640), decoded["width"])
	assert.Equal(t, float64(90), decoded["pts"])

	none, err := s.ReadSnapshots(ctx, "no-such-frame")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestReadTransitions_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadTransitions(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadTransitions_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.WriteTransition(ctx, "run-1", createTestEvent(seq, pipeline.EventAdmitted, pipeline.Handle(seq), "", "decode")))
	}
	got, err := s.ReadTransitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, tr := range got {
		assert.Equal(t, int64(i+1), tr.Seq)
	}
}

func TestReadHandleHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	events := []pipeline.Event{
		createTestEvent(1, pipeline.EventAdmitted, 1, "", "decode"),
		createTestEvent(2, pipeline.EventAdmitted, 2, "", "decode"),
		createTestEvent(3, pipeline.EventPacked, 3, "decode", "infer", 1, 2),
		createTestEvent(4, pipeline.EventUnpacked, 3, "infer", "sink", 4, 5),
		createTestEvent(5, pipeline.EventMoved, 4, "sink", "decode"),
	}
	for _, e := range events {
		require.NoError(t, s.WriteTransition(ctx, "run-1", e))
	}

	tests := []struct {
		handle pipeline.Handle
		seqs   []int64
	}{
		{1, []int64{1, 3}},
		{3, []int64{3, 4}},
		{4, []int64{4, 5}},
		{5, []int64{4}},
		{99, nil},
	}
	for _, tt := range tests {
		got, err := s.ReadHandleHistory(ctx, "run-1", tt.handle)
		require.NoError(t, err)
		var seqs []int64
		for _, tr := range got {
			seqs = append(seqs, tr.Seq)
		}
		assert.Equal(t, tt.seqs, seqs, "handle %d", tt.handle)
	}

	counts, err := s.CountByType(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[pipeline.EventType]int{
		pipeline.EventAdmitted: 2,
		pipeline.EventPacked:   1,
		pipeline.EventUnpacked: 1,
		pipeline.EventMoved:    1,
	}, counts)

	last, err := s.LastSeq(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)

	last, err = s.LastSeq(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestFold(t *testing.T) {
	trs := []Transition{
		{Type: pipeline.EventAdmitted, Handle: 1, To: "decode"},
		{Type: pipeline.EventAdmitted, Handle: 2, To: "decode"},
		{Type: pipeline.EventAdmitted, Handle: 3, To: "decode"},
		{Type: pipeline.EventPacked, Handle: 4, To: "infer", Related: []pipeline.Handle{1, 2, 3}},
		{Type: pipeline.EventSplit, Handle: 4, To: "infer2", Related: []pipeline.Handle{5}},
		{Type: pipeline.EventUnpacked, Handle: 5, To: "sink", Related: []pipeline.Handle{6}},
		{Type: pipeline.EventApplied, Handle: 6, From: "sink", To: "sink"},
		{Type: pipeline.EventAdmitted, Handle: 7, To: "decode"},
		{Type: pipeline.EventDeleted, Handle: 7, From: "decode"},
	}

	occ := Fold(trs)
	assert.Equal(t, Occupancy{4: "infer", 6: "sink"}, occ)
	assert.Equal(t, []pipeline.Handle{6}, occ.Stage("sink"))
	assert.Empty(t, occ.Stage("decode"))
}
