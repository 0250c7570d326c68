package harness

import (
	"github.com/roach88/framepipe/internal/pipeline"
)

// TraceEvent is one pipeline event as seen by the harness.
type TraceEvent struct {
	Seq     int64   `json:"seq"`
	Type    string  `json:"type"`
	Kind    string  `json:"kind"`
	Handle  int64   `json:"handle"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to,omitempty"`
	Related []int64 `json:"related,omitempty"`
	Applied int     `json:"applied,omitempty"`
	Skipped int     `json:"skipped,omitempty"`
}

func traceEventOf(e pipeline.Event) TraceEvent {
	te := TraceEvent{
		Seq:     e.Seq,
		Type:    string(e.Type),
		Kind:    e.Kind.String(),
		Handle:  int64(e.Handle),
		From:    e.From,
		To:      e.To,
		Applied: e.Applied,
		Skipped: e.Skipped,
	}
	for _, r := range e.Related {
		te.Related = append(te.Related, int64(r))
	}
	return te
}

// StageState is the final content of one stage.
type StageState struct {
	Name    string  `json:"name"`
	Handles []int64 `json:"handles"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds the pipeline events in Seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Bindings maps scenario handle names to the handles they were bound to
	// last.
	Bindings map[string]int64 `json:"bindings"`

	// Final lists the stages in declaration order with their sorted handles.
	Final []StageState `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Bindings: make(map[string]int64),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
