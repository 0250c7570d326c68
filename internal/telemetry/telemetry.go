// Package telemetry defines the span capability the pipeline uses to bracket
// stage transitions, with no-op, slog-backed and in-memory implementations.
//
// Tracing is a side channel: nothing in the pipeline branches on what a
// tracer returns, and Guard turns a panicking tracer into a no-op.
package telemetry

import (
	"fmt"
	"strings"
)

// TraceParentHeader is the W3C trace-context carrier key.
const TraceParentHeader = "traceparent"

// SpanContext identifies a span within a trace. IDs are lowercase hex:
// 32 digits for the trace, 16 for the span.
type SpanContext struct {
	TraceID string
	SpanID  string
}

// Valid reports whether both ids are present.
func (c SpanContext) Valid() bool {
	return len(c.TraceID) == 32 && len(c.SpanID) == 16
}

// TraceParent renders the context as a W3C traceparent value (sampled).
func (c SpanContext) TraceParent() string {
	return fmt.Sprintf("00-%s-%s-01", c.TraceID, c.SpanID)
}

// Span is an open unit of work.
type Span interface {
	End()
	SetAttribute(key string, value any)
	Context() SpanContext
}

// Tracer creates spans and exports their context for other processes.
type Tracer interface {
	Start(name string) Span
	Nested(parent Span, name string) Span
	Propagate(span Span) map[string]string
}

// Extract reads a W3C traceparent from carrier.
func Extract(carrier map[string]string) (SpanContext, bool) {
	v, ok := carrier[TraceParentHeader]
	if !ok {
		return SpanContext{}, false
	}
	parts := strings.Split(v, "-")
	if len(parts) != 4 || parts[0] != "00" {
		return SpanContext{}, false
	}
	c := SpanContext{TraceID: parts[1], SpanID: parts[2]}
	if !c.Valid() || !isHex(c.TraceID) || !isHex(c.SpanID) {
		return SpanContext{}, false
	}
	return c, true
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func propagate(span Span) map[string]string {
	if span == nil {
		return map[string]string{}
	}
	c := span.Context()
	if !c.Valid() {
		return map[string]string{}
	}
	return map[string]string{TraceParentHeader: c.TraceParent()}
}
