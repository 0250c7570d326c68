package harness

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one scenario that did not pass.
type ScenarioFailure struct {
	Scenario string   `json:"scenario,omitempty"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// ScenarioFiles lists the .yaml and .yml files directly under dir, sorted.
func ScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// RunFiles loads and runs every scenario in paths. A scenario that fails to
// load or run counts as failed; the suite keeps going.
func RunFiles(paths []string, logger *slog.Logger) *SuiteResult {
	result := &SuiteResult{}
	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(ScenarioFailure{Path: path, Errors: []string{err.Error()}})
			continue
		}

		run, err := RunWithLogger(scenario, logger)
		if err != nil {
			result.fail(ScenarioFailure{Scenario: scenario.Name, Path: path, Errors: []string{err.Error()}})
			continue
		}
		if !run.Pass {
			result.fail(ScenarioFailure{Scenario: scenario.Name, Path: path, Errors: run.Errors})
			continue
		}

		result.Passed++
		logger.Info("scenario passed", "scenario", scenario.Name, "path", path)
	}
	return result
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
