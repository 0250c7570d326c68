// Package config loads pipeline configuration files.
//
// Files are YAML, decoded strictly (unknown fields are errors), filled with
// defaults, and then validated against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/pipeline"
)

//go:embed schema.cue
var schemaCUE string

// Stage declares one pipeline stage.
type Stage struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
}

// Logging selects the slog handler.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Telemetry selects the tracer.
type Telemetry struct {
	Tracer      string `yaml:"tracer" json:"tracer"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Recorder configures the SQLite transition log.
type Recorder struct {
	Database string `yaml:"database" json:"database"`
}

// Server configures the HTTP introspection endpoint.
type Server struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Config is a complete pipeline configuration.
type Config struct {
	Name      string    `yaml:"name" json:"name"`
	Stages    []Stage   `yaml:"stages" json:"stages"`
	Logging   Logging   `yaml:"logging" json:"logging"`
	Telemetry Telemetry `yaml:"telemetry" json:"telemetry"`
	Recorder  Recorder  `yaml:"recorder" json:"recorder"`
	Server    Server    `yaml:"server" json:"server"`
}

// New returns a configuration for the given stages with defaults filled
// in. It is not validated.
func New(name string, stages []Stage) *Config {
	c := &Config{Name: name, Stages: stages}
	c.applyDefaults()
	return c
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates configuration YAML. name labels positions in
// error messages.
func Parse(data []byte, name string) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "pipeline"
	}
	for i := range c.Stages {
		if c.Stages[i].Kind == "" {
			c.Stages[i].Kind = "frame"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Telemetry.Tracer == "" {
		c.Telemetry.Tracer = "noop"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "framepipe"
	}
}

// Validate checks c against the schema and rejects repeated stage names.
func (c *Config) Validate(name string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	seen := make(map[string]bool, len(c.Stages))
	for _, s := range c.Stages {
		if seen[s.Name] {
			return errs.New(errs.CodeDuplicateStage, "stage declared twice").With("stage", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// PipelineStages converts the stage list for pipeline.New.
func (c *Config) PipelineStages() ([]pipeline.StageConfig, error) {
	out := make([]pipeline.StageConfig, len(c.Stages))
	for i, s := range c.Stages {
		kind, err := pipeline.ParsePayloadKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		out[i] = pipeline.StageConfig{Name: s.Name, Kind: kind}
	}
	return out, nil
}
