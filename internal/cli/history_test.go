package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/store"
)

const historyRunID = "0192f0c4-0000-7000-8000-000000000001"

// seedHistory records a run in which frames 1 and 2 are packed into batch 3
// and batch 3 moves on.
func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framepipe.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.WriteRun(ctx, store.Run{
		ID:       historyRunID,
		Pipeline: "detector-tracker",
		Stages: []pipeline.StageConfig{
			{Name: "ingress", Kind: pipeline.FramePayload},
			{Name: "detector", Kind: pipeline.BatchPayload},
			{Name: "egress", Kind: pipeline.BatchPayload},
		},
		StartedAt: at,
	}))

	events := []pipeline.Event{
		{Type: pipeline.EventAdmitted, Handle: 1, Kind: pipeline.FramePayload, To: "ingress"},
		{Type: pipeline.EventAdmitted, Handle: 2, Kind: pipeline.FramePayload, To: "ingress"},
		{Type: pipeline.EventPacked, Handle: 3, Kind: pipeline.BatchPayload, From: "ingress", To: "detector", Related: []pipeline.Handle{1, 2}},
		{Type: pipeline.EventMoved, Handle: 3, Kind: pipeline.BatchPayload, From: "detector", To: "egress"},
	}
	for i, e := range events {
		e.Seq = int64(i + 1)
		e.Time = at.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, st.WriteTransition(ctx, historyRunID, e))
	}
	return path
}

func runHistoryCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryListRuns(t *testing.T) {
	db := seedHistory(t)

	out, err := runHistoryCmd(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, historyRunID)
	assert.Contains(t, out, "2024-01-01T00:00:00Z")
	assert.Contains(t, out, "[ingress detector egress]")
}

func TestHistoryListRunsJSON(t *testing.T) {
	db := seedHistory(t)

	out, err := runHistoryCmd(t, "json", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "detector-tracker", resp.Data[0].Pipeline)
	assert.Equal(t, pipeline.BatchPayload, resp.Data[0].Stages[1].Kind)
}

func TestHistoryRun(t *testing.T) {
	db := seedHistory(t)

	out, err := runHistoryCmd(t, "text", "--db", db, "--run", historyRunID)
	require.NoError(t, err)

	want := `run 0192f0c4-0000-7000-8000-000000000001 (pipeline "detector-tracker", started 2024-01-01T00:00:00Z)
transitions:
  1 admitted frame 1 - -> ingress
  2 admitted frame 2 - -> ingress
  3 packed batch 3 ingress -> detector related=[1 2]
  4 moved batch 3 detector -> egress
counts:
  admitted: 2
  moved: 1
  packed: 1
occupancy:
  ingress: -
  detector: -
  egress: 3
`
	assert.Equal(t, want, out)
}

func TestHistoryHandleJSON(t *testing.T) {
	db := seedHistory(t)

	out, err := runHistoryCmd(t, "json", "--db", db, "--run", historyRunID, "--handle", "1")
	require.NoError(t, err)

	var resp struct {
		Data RunHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(1), resp.Data.Handle)
	require.Len(t, resp.Data.Transitions, 2)
	assert.Equal(t, pipeline.EventAdmitted, resp.Data.Transitions[0].Type)
	assert.Equal(t, pipeline.EventPacked, resp.Data.Transitions[1].Type)
	assert.Equal(t, []int64{3}, resp.Data.Occupancy["egress"])
	assert.Equal(t, 2, resp.Data.Counts[pipeline.EventAdmitted])
}

func TestHistoryUnknownRun(t *testing.T) {
	db := seedHistory(t)

	out, err := runHistoryCmd(t, "json", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestHistoryMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.db")
	out, err := runHistoryCmd(t, "text", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
	assert.NoFileExists(t, missing)
}

func TestHistoryHandleNeedsRun(t *testing.T) {
	db := seedHistory(t)
	_, err := runHistoryCmd(t, "text", "--db", db, "--handle", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--handle requires --run")
}
