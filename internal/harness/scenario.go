package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/framepipe/internal/config"
)

// Scenario defines a conformance scenario: a pipeline, a sequence of
// operations on it, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is a pipeline config file, relative to the scenario file.
	// Exactly one of Config and Stages is set.
	Config string `yaml:"config,omitempty"`

	// Stages declares the pipeline inline.
	Stages []config.Stage `yaml:"stages,omitempty"`

	// Steps are executed in order against a fresh pipeline.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final pipeline state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one pipeline operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Stage is the destination of admit, move, pack and unpack.
	Stage string `yaml:"stage,omitempty"`

	// Handle names the entity the step addresses.
	Handle string `yaml:"handle,omitempty"`

	// Handles lists the frames of a pack, or the entities of a multi-move.
	Handles []string `yaml:"handles,omitempty"`

	// Subset restricts a batch move to these members.
	Subset []string `yaml:"subset,omitempty"`

	// Member addresses one frame of a batch in an update step.
	Member string `yaml:"member,omitempty"`

	// As binds the handle produced by admit, pack or a subset move.
	As string `yaml:"as,omitempty"`

	// AsEach binds the handles produced by unpack, in packing order.
	AsEach []string `yaml:"as_each,omitempty"`

	Frame  *FrameSpec    `yaml:"frame,omitempty"`
	Update *UpdateSpec   `yaml:"update,omitempty"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// FrameSpec describes a frame to admit.
type FrameSpec struct {
	Source  string       `yaml:"source"`
	Objects []ObjectSpec `yaml:"objects,omitempty"`
}

// ObjectSpec describes one object of an admitted frame.
type ObjectSpec struct {
	ID         int64     `yaml:"id"`
	Namespace  string    `yaml:"namespace"`
	Label      string    `yaml:"label"`
	Box        []float64 `yaml:"box"`
	Confidence *float32  `yaml:"confidence,omitempty"`
}

// UpdateSpec is one update record.
type UpdateSpec struct {
	// Record is one of set_confidence, clear_confidence, set_detection_box,
	// delete_object.
	Record     string    `yaml:"record"`
	Object     int64     `yaml:"object"`
	Confidence float32   `yaml:"confidence,omitempty"`
	Box        []float64 `yaml:"box,omitempty"`
}

// ExpectClause specifies how a step must end.
type ExpectClause struct {
	// Error is the error code the step must fail with.
	Error string `yaml:"error,omitempty"`

	// Changed is the expected result of apply or clear.
	Changed *bool `yaml:"changed,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Event and Events name event types (event_count, event_contains,
	// event_order).
	Event  string   `yaml:"event,omitempty"`
	Events []string `yaml:"events,omitempty"`

	Handle string `yaml:"handle,omitempty"`
	Member string `yaml:"member,omitempty"`
	Stage  string `yaml:"stage,omitempty"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to,omitempty"`

	Object     int64    `yaml:"object,omitempty"`
	Confidence *float32 `yaml:"confidence,omitempty"`
	Count      int      `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpAdmit  = "admit"
	OpMove   = "move"
	OpPack   = "pack"
	OpUnpack = "unpack"
	OpUpdate = "update"
	OpApply  = "apply"
	OpClear  = "clear"
	OpDelete = "delete"
)

// Assertion types.
const (
	AssertEventCount       = "event_count"
	AssertEventOrder       = "event_order"
	AssertEventContains    = "event_contains"
	AssertStageLen         = "stage_len"
	AssertInStage          = "in_stage"
	AssertUnknownHandle    = "unknown_handle"
	AssertObjectConfidence = "object_confidence"
	AssertPendingUpdates   = "pending_updates"
)

// LoadScenario reads and parses a scenario YAML file. A relative config
// path is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos) or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. basePath resolves a relative config
// path; it may be empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch {
	case s.Config == "" && len(s.Stages) == 0:
		return fmt.Errorf("either config or stages is required")
	case s.Config != "" && len(s.Stages) > 0:
		return fmt.Errorf("config and stages are mutually exclusive")
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	needStage := func() error {
		if st.Stage == "" {
			return fmt.Errorf("steps[%d]: stage is required for %s", index, st.Op)
		}
		return nil
	}
	needHandle := func() error {
		if st.Handle == "" {
			return fmt.Errorf("steps[%d]: handle is required for %s", index, st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpAdmit:
		if st.Frame == nil {
			return fmt.Errorf("steps[%d]: frame is required for admit", index)
		}
		for j, o := range st.Frame.Objects {
			if len(o.Box) != 4 {
				return fmt.Errorf("steps[%d].frame.objects[%d]: box needs 4 numbers", index, j)
			}
		}
		return needStage()
	case OpMove:
		if st.Handle == "" && len(st.Handles) == 0 {
			return fmt.Errorf("steps[%d]: handle or handles is required for move", index)
		}
		if st.Handle != "" && len(st.Handles) > 0 {
			return fmt.Errorf("steps[%d]: handle and handles are mutually exclusive", index)
		}
		if len(st.Subset) > 0 && st.Handle == "" {
			return fmt.Errorf("steps[%d]: subset needs handle", index)
		}
		return needStage()
	case OpPack:
		if len(st.Handles) == 0 {
			return fmt.Errorf("steps[%d]: handles is required for pack", index)
		}
		return needStage()
	case OpUnpack:
		if err := needHandle(); err != nil {
			return err
		}
		return needStage()
	case OpUpdate:
		if st.Update == nil {
			return fmt.Errorf("steps[%d]: update is required for update", index)
		}
		switch st.Update.Record {
		case "set_confidence", "clear_confidence", "delete_object":
		case "set_detection_box":
			if len(st.Update.Box) != 4 {
				return fmt.Errorf("steps[%d].update: box needs 4 numbers", index)
			}
		default:
			return fmt.Errorf("steps[%d].update: unknown record %q", index, st.Update.Record)
		}
		return needHandle()
	case OpApply, OpClear, OpDelete:
		return needHandle()
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventContains:
		if a.Event == "" || a.Handle == "" {
			return fmt.Errorf("assertions[%d]: event and handle are required for event_contains", index)
		}
	case AssertStageLen:
		if a.Stage == "" {
			return fmt.Errorf("assertions[%d]: stage is required for stage_len", index)
		}
	case AssertInStage:
		if a.Handle == "" || a.Stage == "" {
			return fmt.Errorf("assertions[%d]: handle and stage are required for in_stage", index)
		}
	case AssertUnknownHandle, AssertPendingUpdates:
		if a.Handle == "" {
			return fmt.Errorf("assertions[%d]: handle is required for %s", index, a.Type)
		}
	case AssertObjectConfidence:
		if a.Handle == "" || a.Object == 0 {
			return fmt.Errorf("assertions[%d]: handle and object are required for object_confidence", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
