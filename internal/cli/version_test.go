package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framepipe/internal/pipeline"
)

func TestVersionText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewVersionCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "framepipe "+pipeline.Version)
}

func TestVersionJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewVersionCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data VersionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, pipeline.Version, resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}
