package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pack_unpack_stale.yaml")
	require.NoError(t, err)

	assert.Equal(t, "pack_unpack_stale", scenario.Name)
	assert.Len(t, scenario.Stages, 3)
	assert.Equal(t, "batch", scenario.Stages[1].Kind)
	require.Len(t, scenario.Steps, 9)
	assert.Equal(t, []string{"f1", "f2", "f3"}, scenario.Steps[4].Handles)
	assert.Equal(t, []string{"g1", "g2", "g3"}, scenario.Steps[5].AsEach)
	require.NotNil(t, scenario.Steps[6].Expect)
	assert.Equal(t, "UNKNOWN_HANDLE", scenario.Steps[6].Expect.Error)
	require.NotNil(t, scenario.Steps[0].Frame)
	assert.Equal(t, float32(0.9), *scenario.Steps[0].Frame.Objects[0].Confidence)
}

func TestLoadScenario_ResolvesConfigPath(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/split_batch.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "pipeline.yaml"), scenario.Config)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "misspelt key"
stages: [{name: in, kind: frame}]
steps:
  - op: admit
    stage: in
    frame: {source: cam}
assertion:
  - type: stage_len
    stage: in
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	base := `
name: s
description: d
stages: [{name: in, kind: frame}]
`
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nstages: [{name: in}]\nsteps: [{op: apply, handle: x}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "name is required",
		},
		{
			name: "no pipeline",
			yaml: "name: s\ndescription: d\nsteps: [{op: apply, handle: x}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "either config or stages is required",
		},
		{
			name: "config and stages",
			yaml: base + "config: p.yaml\nsteps: [{op: apply, handle: x}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "mutually exclusive",
		},
		{
			name: "no steps",
			yaml: base + "assertions: [{type: stage_len, stage: in}]\n",
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: base + "steps: [{op: apply, handle: x}]\n",
			want: "assertions list is required",
		},
		{
			name: "unknown op",
			yaml: base + "steps: [{op: teleport, handle: x}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: `unknown op "teleport"`,
		},
		{
			name: "admit without frame",
			yaml: base + "steps: [{op: admit, stage: in}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "frame is required for admit",
		},
		{
			name: "short box",
			yaml: base + "steps: [{op: admit, stage: in, frame: {source: c, objects: [{id: 1, box: [1, 2]}]}}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "box needs 4 numbers",
		},
		{
			name: "subset without handle",
			yaml: base + "steps: [{op: move, handles: [a], subset: [b], stage: in}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "subset needs handle",
		},
		{
			name: "pack without handles",
			yaml: base + "steps: [{op: pack, stage: in}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "handles is required for pack",
		},
		{
			name: "unknown record",
			yaml: base + "steps: [{op: update, handle: x, update: {record: paint, object: 1}}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: `unknown record "paint"`,
		},
		{
			name: "apply without handle",
			yaml: base + "steps: [{op: apply}]\nassertions: [{type: stage_len, stage: in}]\n",
			want: "handle is required for apply",
		},
		{
			name: "unknown assertion",
			yaml: base + "steps: [{op: apply, handle: x}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "object_confidence without object",
			yaml: base + "steps: [{op: apply, handle: x}]\nassertions: [{type: object_confidence, handle: x}]\n",
			want: "handle and object are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_MissingConfigFile(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: s
description: d
config: nowhere.yaml
steps: [{op: apply, handle: x}]
assertions: [{type: stage_len, stage: in}]
`), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}
