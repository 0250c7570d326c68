package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framepipe/internal/store"
)

func TestRunMissingConfig(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "/nonexistent/pipeline.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunRequiresConfigFlag(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

// startRun runs the pipeline in the background and returns once it is
// ready, with the server address and a stop func that waits for shutdown.
func startRun(t *testing.T, opts *RunOptions) (string, *bytes.Buffer, func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	ready := make(chan string, 1)
	opts.Ready = func(addr string) { ready <- addr }

	done := make(chan error, 1)
	go func() { done <- runPipeline(opts, cmd) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("run exited early: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("pipeline did not become ready")
	}

	return addr, out, func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			return context.DeadlineExceeded
		}
	}
}

func TestRunServesIntrospection(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "framepipe.db")

	addr, out, stop := startRun(t, &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      writeConfig(t, validConfig),
		Database:    dbPath,
		Listen:      "127.0.0.1:0",
	})
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/stages/")
	require.NoError(t, err)
	var body struct {
		Pipeline string `json:"pipeline"`
		Stages   []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
			Len  int    `json:"len"`
		} `json:"stages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "detector-tracker", body.Pipeline)
	require.Len(t, body.Stages, 3)
	assert.Equal(t, "detector", body.Stages[1].Name)
	assert.Equal(t, "batch", body.Stages[1].Kind)

	require.NoError(t, stop())
	assert.Contains(t, out.String(), `Pipeline "detector-tracker" running with 3 stage(s).`)
	assert.Contains(t, out.String(), "Introspection on http://"+addr)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ReadRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "detector-tracker", runs[0].Pipeline)
	assert.Len(t, runs[0].Stages, 3)
}

func TestRunWithoutDatabaseOrServer(t *testing.T) {
	addr, out, stop := startRun(t, &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      writeConfig(t, validConfig),
	})
	assert.Empty(t, addr)
	require.NoError(t, stop())
	assert.NotContains(t, out.String(), "Introspection")
}
