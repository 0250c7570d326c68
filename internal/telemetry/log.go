package telemetry

import (
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogTracer writes span lifecycles to a slog.Logger at debug level.
// Trace and span ids come from random UUIDs.
type LogTracer struct {
	logger  *slog.Logger
	service string
}

// NewLogTracer creates a tracer that tags every span with service.
func NewLogTracer(logger *slog.Logger, service string) *LogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracer{logger: logger, service: service}
}

type logSpan struct {
	tracer *LogTracer
	name   string
	ctx    SpanContext
	parent string
	start  time.Time

	mu    sync.Mutex
	attrs []any
	ended bool
}

// Start opens a root span in a new trace.
func (t *LogTracer) Start(name string) Span {
	return t.open(name, SpanContext{TraceID: newTraceID(), SpanID: newSpanID()}, "")
}

// Nested opens a child of parent. A parent from another tracer, or without
// a valid context, starts a new trace instead.
func (t *LogTracer) Nested(parent Span, name string) Span {
	if parent == nil || !parent.Context().Valid() {
		return t.Start(name)
	}
	return t.StartFrom(parent.Context(), name)
}

// StartFrom opens a child of a span context received from another process.
func (t *LogTracer) StartFrom(parent SpanContext, name string) Span {
	if !parent.Valid() {
		return t.Start(name)
	}
	return t.open(name, SpanContext{TraceID: parent.TraceID, SpanID: newSpanID()}, parent.SpanID)
}

func (t *LogTracer) Propagate(span Span) map[string]string {
	return propagate(span)
}

func (t *LogTracer) open(name string, ctx SpanContext, parent string) *logSpan {
	s := &logSpan{tracer: t, name: name, ctx: ctx, parent: parent, start: time.Now()}
	t.logger.Debug("span start",
		"service", t.service,
		"span", name,
		"trace_id", ctx.TraceID,
		"span_id", ctx.SpanID,
		"parent_id", parent,
	)
	return s
}

func (s *logSpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, key, value)
}

func (s *logSpan) Context() SpanContext {
	return s.ctx
}

// End logs the span with its attributes and duration. Repeated calls are ignored.
func (s *logSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	attrs := append([]any{
		"service", s.tracer.service,
		"span", s.name,
		"trace_id", s.ctx.TraceID,
		"span_id", s.ctx.SpanID,
		"duration", time.Since(s.start),
	}, s.attrs...)
	s.mu.Unlock()
	s.tracer.logger.Debug("span end", attrs...)
}

func newTraceID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func newSpanID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
