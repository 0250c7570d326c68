package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/framepipe/internal/config"
	"github.com/roach88/framepipe/internal/errs"
)

// Error codes for command-level failures.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeParseFailed = "E004" // YAML decode failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // Transition log unavailable
	ErrCodeSchema      = "E101" // Config violates the schema
	ErrCodeDuplicate   = "E102" // Stage declared twice
	ErrCodeFailed      = "E201" // Scenario failures
)

// LoadError is a config file that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Invalid reports whether the file was read but rejected, as opposed to
// missing or unparseable.
func (e *LoadError) Invalid() bool {
	return e.Code == ErrCodeSchema || e.Code == ErrCodeDuplicate
}

// LoadConfig loads the config file at path and classifies failures as
// LoadErrors.
func LoadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path), Err: err}
	}

	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}

	var verr *config.ValidationError
	switch {
	case errors.As(err, &verr):
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message), Pos: verr.Pos, Err: err}
	case errs.CodeOf(err) == errs.CodeDuplicateStage:
		return nil, &LoadError{Code: ErrCodeDuplicate, Message: err.Error(), Err: err}
	default:
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), Err: err}
	}
}
