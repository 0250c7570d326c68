package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/roach88/framepipe/internal/config"
	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/geometry"
	"github.com/roach88/framepipe/internal/journal"
	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/testutil"
	"github.com/roach88/framepipe/internal/video"
)

// Harness executes one scenario against its own pipeline.
type Harness struct {
	pipeline *pipeline.Pipeline
	stages   []string
	clock    *testutil.DeterministicClock
	uuids    *testutil.SequentialUUIDSource
	logger   *slog.Logger
	bindings map[string]pipeline.Handle

	mu     sync.Mutex
	events []pipeline.Event
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Step and assertion failures are reported in the Result. The returned error
// is for scenarios that cannot run at all: an invalid pipeline config or a
// step naming a handle that was never bound.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	h := &Harness{
		clock:    testutil.NewDeterministicClock(),
		uuids:    testutil.NewSequentialUUIDSource(),
		logger:   logger,
		bindings: make(map[string]pipeline.Handle),
	}
	for _, s := range cfg.Stages {
		h.stages = append(h.stages, s.Name)
	}
	h.pipeline, err = cfg.NewPipeline(logger,
		pipeline.WithNow(h.clock.Now),
		pipeline.WithEventSink(pipeline.EventSinkFunc(h.record)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, err
	}

	h.finish(result)
	for _, errMsg := range EvaluateAssertions(h, result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario) (*config.Config, error) {
	if s.Config != "" {
		return config.Load(s.Config)
	}
	cfg := config.New(s.Name, s.Stages)
	if err := cfg.Validate(s.Name); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *Harness) record(e pipeline.Event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *Harness) trace() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TraceEvent, len(h.events))
	for i, e := range h.events {
		out[i] = traceEventOf(e)
	}
	return out
}

// finish fills in the trace, bindings and final stage contents.
func (h *Harness) finish(result *Result) {
	result.Trace = h.trace()
	for name, hd := range h.bindings {
		result.Bindings[name] = int64(hd)
	}
	for _, name := range h.stages {
		handles, _ := h.pipeline.Handles(name)
		st := StageState{Name: name, Handles: []int64{}}
		for _, hd := range handles {
			st.Handles = append(st.Handles, int64(hd))
		}
		slices.Sort(st.Handles)
		result.Final = append(result.Final, st)
	}
}

// resolve maps a scenario handle name to a handle. Unbound names that parse
// as integers are taken literally.
func (h *Harness) resolve(name string) (pipeline.Handle, error) {
	if hd, ok := h.bindings[name]; ok {
		return hd, nil
	}
	n, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("handle %q is not bound", name)
	}
	return pipeline.Handle(n), nil
}

func (h *Harness) resolveAll(names []string) ([]pipeline.Handle, error) {
	out := make([]pipeline.Handle, len(names))
	for i, n := range names {
		hd, err := h.resolve(n)
		if err != nil {
			return nil, err
		}
		out[i] = hd
	}
	return out, nil
}

func (h *Harness) bind(name string, hd pipeline.Handle) {
	if name != "" {
		h.bindings[name] = hd
	}
}

// executeSteps runs every step and checks it against its expect clause.
// A step that misses its expectation fails the result; later steps still
// run.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		changed, opErr, err := h.execute(step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		var want string
		if step.Expect != nil {
			want = step.Expect.Error
		}
		got := string(errs.CodeOf(opErr))
		switch {
		case opErr != nil && want == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, opErr))
		case opErr == nil && want != "":
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", i, step.Op, want))
		case opErr != nil && got != want:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", i, step.Op, want, opErr))
		}
		if opErr == nil && step.Expect != nil && step.Expect.Changed != nil && changed != *step.Expect.Changed {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected changed=%t, got %t", i, step.Op, *step.Expect.Changed, changed))
		}

		h.logger.Debug("step completed",
			"step", i,
			"op", step.Op,
			"error", got,
		)
	}
	return nil
}

// execute runs one step. opErr is the pipeline's answer; err means the step
// itself is unusable.
func (h *Harness) execute(step Step) (changed bool, opErr error, err error) {
	p := h.pipeline
	switch step.Op {
	case OpAdmit:
		f, err := h.buildFrame(step.Frame)
		if err != nil {
			return false, nil, err
		}
		hd, opErr := p.AdmitFrame(step.Stage, f)
		if opErr == nil {
			h.bind(step.As, hd)
		}
		return false, opErr, nil

	case OpMove:
		if len(step.Handles) > 0 {
			hs, err := h.resolveAll(step.Handles)
			if err != nil {
				return false, nil, err
			}
			return false, p.MoveManyAsIs(hs, step.Stage), nil
		}
		hd, err := h.resolve(step.Handle)
		if err != nil {
			return false, nil, err
		}
		subset, err := h.resolveAll(step.Subset)
		if err != nil {
			return false, nil, err
		}
		moved, opErr := p.MoveAsIs(hd, step.Stage, subset...)
		if opErr == nil {
			h.bind(step.As, moved)
		}
		return false, opErr, nil

	case OpPack:
		hs, err := h.resolveAll(step.Handles)
		if err != nil {
			return false, nil, err
		}
		bh, opErr := p.MoveAndPackFrames(hs, step.Stage)
		if opErr == nil {
			h.bind(step.As, bh)
		}
		return false, opErr, nil

	case OpUnpack:
		hd, err := h.resolve(step.Handle)
		if err != nil {
			return false, nil, err
		}
		out, opErr := p.MoveAndUnpackBatch(hd, step.Stage)
		for i := 0; i < len(out) && i < len(step.AsEach); i++ {
			h.bind(step.AsEach[i], out[i])
		}
		return false, opErr, nil

	case OpUpdate:
		hd, err := h.resolve(step.Handle)
		if err != nil {
			return false, nil, err
		}
		rec, err := buildRecord(step.Update)
		if err != nil {
			return false, nil, err
		}
		if step.Member == "" {
			return false, p.AddFrameUpdate(hd, rec), nil
		}
		member, err := h.resolve(step.Member)
		if err != nil {
			return false, nil, err
		}
		return false, p.AddBatchedFrameUpdate(hd, member, rec), nil

	case OpApply, OpClear, OpDelete:
		hd, err := h.resolve(step.Handle)
		if err != nil {
			return false, nil, err
		}
		switch step.Op {
		case OpApply:
			changed, opErr = p.ApplyUpdates(hd)
		case OpClear:
			changed, opErr = p.ClearUpdates(hd)
		default:
			_, opErr = p.Delete(hd)
		}
		return changed, opErr, nil
	}
	return false, nil, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) buildFrame(spec *FrameSpec) (*video.Frame, error) {
	f := video.NewFrame(spec.Source, video.WithUUIDSource(h.uuids))
	for _, o := range spec.Objects {
		box, err := boxOf(o.Box)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", o.ID, err)
		}
		var opts []video.ObjectOption
		if o.Confidence != nil {
			opts = append(opts, video.WithConfidence(*o.Confidence))
		}
		obj, err := video.NewObject(o.ID, o.Namespace, o.Label, box, opts...)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", o.ID, err)
		}
		if _, err := f.AddObject(obj, video.ErrorOnCollision); err != nil {
			return nil, fmt.Errorf("object %d: %w", o.ID, err)
		}
	}
	return f, nil
}

func buildRecord(u *UpdateSpec) (journal.Record, error) {
	switch u.Record {
	case "set_confidence":
		return journal.SetConfidence{ObjectID: u.Object, Confidence: u.Confidence}, nil
	case "clear_confidence":
		return journal.ClearConfidence{ObjectID: u.Object}, nil
	case "delete_object":
		return journal.DeleteObject{ObjectID: u.Object}, nil
	case "set_detection_box":
		box, err := boxOf(u.Box)
		if err != nil {
			return nil, err
		}
		return journal.SetDetectionBox{ObjectID: u.Object, Box: box}, nil
	}
	return nil, fmt.Errorf("unknown update record %q", u.Record)
}

func boxOf(v []float64) (geometry.BoundingBox, error) {
	if len(v) != 4 {
		return geometry.BoundingBox{}, fmt.Errorf("box needs 4 numbers, got %d", len(v))
	}
	return geometry.New(v[0], v[1], v[2], v[3])
}
