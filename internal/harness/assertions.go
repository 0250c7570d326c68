package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/video"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", formatEvent(ev))
		}
	}
	return buf.String()
}

// assertEventCount checks the event type occurs exactly Count times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%s exactly %d times", a.Event, a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks the first occurrence of each event type appears
// in the given order. Other events may come in between.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Type]; !seen {
			positions[ev.Type] = i + 1
		}
	}

	for _, name := range a.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertEventContains checks for an event of the given type addressed to
// the handle, matching From and To when they are set.
func assertEventContains(h *Harness, trace []TraceEvent, a Assertion) error {
	hd, err := h.resolve(a.Handle)
	if err != nil {
		return err
	}
	for _, ev := range trace {
		if ev.Type != a.Event || ev.Handle != int64(hd) {
			continue
		}
		if a.From != "" && ev.From != a.From {
			continue
		}
		if a.To != "" && ev.To != a.To {
			continue
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("%s for handle %s (%d) from %q to %q", a.Event, a.Handle, hd, a.From, a.To),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertStageLen(h *Harness, a Assertion) error {
	n, err := h.pipeline.StageLen(a.Stage)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertStageLen,
			Expected: fmt.Sprintf("stage %s holds %d", a.Stage, a.Count),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func assertInStage(h *Harness, a Assertion) error {
	hd, err := h.resolve(a.Handle)
	if err != nil {
		return err
	}
	got, err := h.pipeline.StageOf(hd)
	if err != nil {
		return &AssertionError{
			Type:     AssertInStage,
			Expected: fmt.Sprintf("handle %s (%d) in %s", a.Handle, hd, a.Stage),
			Actual:   err.Error(),
		}
	}
	if got != a.Stage {
		return &AssertionError{
			Type:     AssertInStage,
			Expected: fmt.Sprintf("handle %s (%d) in %s", a.Handle, hd, a.Stage),
			Actual:   fmt.Sprintf("in %s", got),
		}
	}
	return nil
}

func assertUnknownHandle(h *Harness, a Assertion) error {
	hd, err := h.resolve(a.Handle)
	if err != nil {
		return err
	}
	stage, err := h.pipeline.StageOf(hd)
	if errs.CodeOf(err) == errs.CodeUnknownHandle {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnknownHandle,
		Expected: fmt.Sprintf("handle %s (%d) unknown", a.Handle, hd),
		Actual:   fmt.Sprintf("in %s", stage),
	}
}

// assertObjectConfidence checks an object's confidence. Without Confidence
// the object must have none.
func assertObjectConfidence(h *Harness, a Assertion) error {
	f, err := h.frame(a.Handle, a.Member)
	if err != nil {
		return err
	}
	o, err := f.Object(a.Object)
	if err != nil {
		return err
	}
	got, set := o.Confidence()
	switch {
	case a.Confidence == nil && !set:
		return nil
	case a.Confidence != nil && set && got == *a.Confidence:
		return nil
	}

	expected := "no confidence"
	if a.Confidence != nil {
		expected = fmt.Sprintf("confidence %g", *a.Confidence)
	}
	actual := "no confidence"
	if set {
		actual = fmt.Sprintf("confidence %g", got)
	}
	return &AssertionError{
		Type:     AssertObjectConfidence,
		Expected: fmt.Sprintf("object %d of %s: %s", a.Object, a.Handle, expected),
		Actual:   actual,
	}
}

func assertPendingUpdates(h *Harness, a Assertion) error {
	hd, err := h.resolve(a.Handle)
	if err != nil {
		return err
	}
	n, err := h.pipeline.PendingUpdates(hd)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertPendingUpdates,
			Expected: fmt.Sprintf("%d pending updates on %s", a.Count, a.Handle),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

// frame returns the frame behind handle, or its member when member is set.
func (h *Harness) frame(handle, member string) (*video.Frame, error) {
	hd, err := h.resolve(handle)
	if err != nil {
		return nil, err
	}
	if member == "" {
		return h.pipeline.Frame(hd)
	}
	m, err := h.resolve(member)
	if err != nil {
		return nil, err
	}
	return h.pipeline.BatchedFrame(hd, m)
}

// EvaluateAssertions evaluates all assertions against the result and the
// harness pipeline. Returns a message per failed assertion.
func EvaluateAssertions(h *Harness, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		case AssertEventContains:
			err = assertEventContains(h, result.Trace, a)
		case AssertStageLen:
			err = assertStageLen(h, a)
		case AssertInStage:
			err = assertInStage(h, a)
		case AssertUnknownHandle:
			err = assertUnknownHandle(h, a)
		case AssertObjectConfidence:
			err = assertObjectConfidence(h, a)
		case AssertPendingUpdates:
			err = assertPendingUpdates(h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}
