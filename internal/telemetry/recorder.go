package telemetry

import (
	"fmt"
	"sync"
)

// RecordedSpan is a span captured by Recorder.
type RecordedSpan struct {
	Name       string
	Parent     string
	Context    SpanContext
	Attributes map[string]any
	Ended      bool
	Ends       int
}

// Recorder is an in-memory Tracer for tests. Ids are sequential so traces
// are stable across runs.
type Recorder struct {
	mu    sync.Mutex
	spans []*RecordedSpan
	next  int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

type recordedSpan struct {
	r   *Recorder
	rec *RecordedSpan
}

func (r *Recorder) Start(name string) Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.addLocked(name, "", fmt.Sprintf("%032x", r.next))
}

func (r *Recorder) Nested(parent Span, name string) Span {
	p, ok := parent.(*recordedSpan)
	if !ok {
		return r.Start(name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(name, p.rec.Name, p.rec.Context.TraceID)
}

func (r *Recorder) Propagate(span Span) map[string]string {
	return propagate(span)
}

func (r *Recorder) addLocked(name, parent, traceID string) *recordedSpan {
	rec := &RecordedSpan{
		Name:       name,
		Parent:     parent,
		Context:    SpanContext{TraceID: traceID, SpanID: fmt.Sprintf("%016x", len(r.spans)+1)},
		Attributes: make(map[string]any),
	}
	r.spans = append(r.spans, rec)
	return &recordedSpan{r: r, rec: rec}
}

func (s *recordedSpan) End() {
	s.r.mu.Lock()
	s.rec.Ended = true
	s.rec.Ends++
	s.r.mu.Unlock()
}

func (s *recordedSpan) SetAttribute(key string, value any) {
	s.r.mu.Lock()
	s.rec.Attributes[key] = value
	s.r.mu.Unlock()
}

func (s *recordedSpan) Context() SpanContext {
	return s.rec.Context
}

// Spans returns copies of every span started so far, in start order.
func (r *Recorder) Spans() []RecordedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedSpan, len(r.spans))
	for i, s := range r.spans {
		cp := *s
		cp.Attributes = make(map[string]any, len(s.Attributes))
		for k, v := range s.Attributes {
			cp.Attributes[k] = v
		}
		out[i] = cp
	}
	return out
}

// Names returns the span names in start order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.spans))
	for i, s := range r.spans {
		names[i] = s.Name
	}
	return names
}
