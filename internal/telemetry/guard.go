package telemetry

import "log/slog"

// Guard wraps t so that a panic inside the tracer or one of its spans is
// logged and swallowed. A nil t yields Noop.
func Guard(t Tracer, logger *slog.Logger) Tracer {
	if t == nil {
		return Noop{}
	}
	if _, ok := t.(guarded); ok {
		return t
	}
	if logger == nil {
		logger = slog.Default()
	}
	return guarded{inner: t, logger: logger}
}

type guarded struct {
	inner  Tracer
	logger *slog.Logger
}

type guardedSpan struct {
	inner  Span
	logger *slog.Logger
}

func (g guarded) suppress(op string) {
	if r := recover(); r != nil {
		g.logger.Warn("tracer panic suppressed", "op", op, "panic", r)
	}
}

func (g guarded) Start(name string) (s Span) {
	s = noopSpan{}
	defer g.suppress("start")
	return g.wrap(g.inner.Start(name))
}

func (g guarded) Nested(parent Span, name string) (s Span) {
	s = noopSpan{}
	defer g.suppress("nested")
	if gs, ok := parent.(guardedSpan); ok {
		parent = gs.inner
	}
	return g.wrap(g.inner.Nested(parent, name))
}

func (g guarded) Propagate(span Span) (m map[string]string) {
	m = map[string]string{}
	defer g.suppress("propagate")
	if gs, ok := span.(guardedSpan); ok {
		span = gs.inner
	}
	if out := g.inner.Propagate(span); out != nil {
		return out
	}
	return map[string]string{}
}

func (g guarded) wrap(s Span) Span {
	if s == nil {
		return noopSpan{}
	}
	return guardedSpan{inner: s, logger: g.logger}
}

func (s guardedSpan) End() {
	defer s.suppress("end")
	s.inner.End()
}

func (s guardedSpan) SetAttribute(key string, value any) {
	defer s.suppress("set_attribute")
	s.inner.SetAttribute(key, value)
}

func (s guardedSpan) Context() (c SpanContext) {
	defer s.suppress("context")
	return s.inner.Context()
}

func (s guardedSpan) suppress(op string) {
	if r := recover(); r != nil {
		s.logger.Warn("span panic suppressed", "op", op, "panic", r)
	}
}
