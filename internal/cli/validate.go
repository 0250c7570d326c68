package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/framepipe/internal/config"
)

// ValidationResult is the outcome of validating one config file.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Name   string         `json:"name,omitempty"`
	Stages []config.Stage `json:"stages,omitempty"`
	Error  string         `json:"error,omitempty"`
	Line   int            `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a pipeline config file",
		Long: `Validate a pipeline config file against the config schema.

Checks YAML syntax, unknown keys, field values and repeated stage names
without starting the pipeline.

Exit codes:
  0 - Config is valid
  1 - Config violates the schema
  2 - Config file missing or not YAML`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Validating %s", path)
	cfg, err := LoadConfig(path)
	if err != nil {
		return outputValidationError(formatter, err)
	}

	result := ValidationResult{Valid: true, Name: cfg.Name, Stages: cfg.Stages}
	var text strings.Builder
	fmt.Fprintf(&text, "✓ %s is valid (pipeline %q)\n", path, cfg.Name)
	for _, s := range cfg.Stages {
		fmt.Fprintf(&text, "  %-12s %s\n", s.Name, s.Kind)
	}
	return formatter.Success(result, strings.TrimRight(text.String(), "\n"))
}

// outputValidationError reports a failed load. Schema violations exit 1;
// missing or unparseable files are command errors and exit 2.
func outputValidationError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = formatter.Error(&CLIError{Code: ErrCodeGeneric, Message: err.Error()})
		return WrapExitError(ExitCommandError, "validate", err)
	}

	result := ValidationResult{Valid: false, Error: loadErr.Message}
	if loadErr.Pos.IsValid() {
		result.Line = loadErr.Pos.Line()
	}

	if formatter.Format == "json" {
		if encErr := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: loadErr.Code, Message: loadErr.Message},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		if result.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", result.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	}

	if loadErr.Invalid() {
		return WrapExitError(ExitFailure, "validation failed", err)
	}
	return WrapExitError(ExitCommandError, "cannot load config", err)
}
