package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framepipe/internal/config"
)

func float32p(v float32) *float32 { return &v }
func boolp(v bool) *bool          { return &v }

func twoStages() []config.Stage {
	return []config.Stage{{Name: "in", Kind: "frame"}, {Name: "out", Kind: "frame"}}
}

func admitStep(as string) Step {
	return Step{
		Op:    OpAdmit,
		Stage: "in",
		As:    as,
		Frame: &FrameSpec{
			Source: "cam",
			Objects: []ObjectSpec{
				{ID: 1, Namespace: "detector", Label: "car", Box: []float64{10, 10, 4, 4}, Confidence: float32p(0.9)},
			},
		},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Stages:      twoStages(),
		Steps:       []Step{admitStep("f1")},
		Assertions:  []Assertion{{Type: AssertInStage, Handle: "f1", Stage: "in"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, TraceEvent{Seq: 1, Type: "admitted", Kind: "frame", Handle: 1, To: "in"}, result.Trace[0])
	assert.Equal(t, map[string]int64{"f1": 1}, result.Bindings)
	assert.Equal(t, []StageState{
		{Name: "in", Handles: []int64{1}},
		{Name: "out", Handles: []int64{}},
	}, result.Final)
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "Move to a stage that does not exist",
		Stages:      twoStages(),
		Steps: []Step{
			admitStep("f1"),
			{Op: OpMove, Handle: "f1", Stage: "nowhere"},
		},
		Assertions: []Assertion{{Type: AssertInStage, Handle: "f1", Stage: "in"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1] move: unexpected error")
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expected error code differs",
		Stages:      twoStages(),
		Steps: []Step{
			admitStep("f1"),
			{Op: OpMove, Handle: "f1", Stage: "nowhere", Expect: &ExpectClause{Error: "UNKNOWN_HANDLE"}},
			{Op: OpMove, Handle: "f1", Stage: "out", Expect: &ExpectClause{Error: "UNKNOWN_HANDLE"}},
		},
		Assertions: []Assertion{{Type: AssertInStage, Handle: "f1", Stage: "out"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected UNKNOWN_HANDLE, got")
	assert.Contains(t, result.Errors[1], "expected UNKNOWN_HANDLE, got success")
}

func TestRun_ExpectChanged(t *testing.T) {
	scenario := &Scenario{
		Name:        "changed",
		Description: "Apply reports whether anything was pending",
		Stages:      twoStages(),
		Steps: []Step{
			admitStep("f1"),
			{Op: OpApply, Handle: "f1", Expect: &ExpectClause{Changed: boolp(true)}},
		},
		Assertions: []Assertion{{Type: AssertStageLen, Stage: "in", Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected changed=true, got false")
}

func TestRun_UpdateApplyClear(t *testing.T) {
	scenario := &Scenario{
		Name:        "updates",
		Description: "Queued updates apply once and clear leaves the frame alone",
		Stages:      twoStages(),
		Steps: []Step{
			admitStep("f1"),
			{Op: OpUpdate, Handle: "f1", Update: &UpdateSpec{Record: "set_detection_box", Object: 1, Box: []float64{1, 2, 3, 4}}},
			{Op: OpUpdate, Handle: "f1", Update: &UpdateSpec{Record: "clear_confidence", Object: 1}},
			{Op: OpApply, Handle: "f1", Expect: &ExpectClause{Changed: boolp(true)}},
			{Op: OpApply, Handle: "f1", Expect: &ExpectClause{Changed: boolp(false)}},
			{Op: OpUpdate, Handle: "f1", Update: &UpdateSpec{Record: "set_confidence", Object: 1, Confidence: 0.2}},
			{Op: OpClear, Handle: "f1", Expect: &ExpectClause{Changed: boolp(true)}},
		},
		Assertions: []Assertion{
			{Type: AssertObjectConfidence, Handle: "f1", Object: 1},
			{Type: AssertPendingUpdates, Handle: "f1", Count: 0},
			{Type: AssertEventOrder, Events: []string{"admitted", "applied", "cleared"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MoveMany(t *testing.T) {
	scenario := &Scenario{
		Name:        "move_many",
		Description: "Several frames move together",
		Stages:      twoStages(),
		Steps: []Step{
			admitStep("f1"),
			admitStep("f2"),
			{Op: OpMove, Handles: []string{"f1", "f2"}, Stage: "out"},
			{Op: OpMove, Handles: []string{"f1", "f1"}, Stage: "in", Expect: &ExpectClause{Error: "UNKNOWN_HANDLE"}},
		},
		Assertions: []Assertion{
			{Type: AssertStageLen, Stage: "out", Count: 2},
			{Type: AssertEventCount, Event: "moved", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnboundHandleIsAnError(t *testing.T) {
	scenario := &Scenario{
		Name:        "unbound",
		Description: "A step names a handle nobody bound",
		Stages:      twoStages(),
		Steps:       []Step{{Op: OpApply, Handle: "ghost"}},
		Assertions:  []Assertion{{Type: AssertStageLen, Stage: "in"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `handle "ghost" is not bound`)
}

func TestRun_InvalidStages(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_stages",
		Description: "Duplicate stage names",
		Stages:      []config.Stage{{Name: "a"}, {Name: "a"}},
		Steps:       []Step{admitStep("f1")},
		Assertions:  []Assertion{{Type: AssertStageLen, Stage: "a"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load pipeline config")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/split_batch.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, Render(scenario.Name, first), Render(scenario.Name, second))
}

func TestRunFiles(t *testing.T) {
	files, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	result := RunFiles(append(files, "testdata/scenarios/missing.yaml"), quietLogger())
	assert.Equal(t, len(files)+1, result.Total)
	assert.Equal(t, len(files), result.Passed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "testdata/scenarios/missing.yaml", result.Failures[0].Path)
}

func TestScenarioFiles_MissingDir(t *testing.T) {
	_, err := ScenarioFiles("testdata/nope")
	assert.Error(t, err)
}
