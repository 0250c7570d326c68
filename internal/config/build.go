package config

import (
	"io"
	"log/slog"

	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/telemetry"
)

// SlogLevel maps Logging.Level to a slog level. Unknown levels are info.
func (l Logging) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the logger described by l, writing to w.
func (l Logging) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewTracer builds the tracer described by t.
func (t Telemetry) NewTracer(logger *slog.Logger) telemetry.Tracer {
	if t.Tracer == "log" {
		return telemetry.NewLogTracer(logger, t.ServiceName)
	}
	return telemetry.Noop{}
}

// NewPipeline builds the configured pipeline. opts are applied after the
// name, logger and tracer derived from c.
func (c *Config) NewPipeline(logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	stages, err := c.PipelineStages()
	if err != nil {
		return nil, err
	}
	base := []pipeline.Option{
		pipeline.WithName(c.Name),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(c.Telemetry.NewTracer(logger)),
	}
	return pipeline.New(stages, append(base, opts...)...)
}
