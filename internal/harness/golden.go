package harness

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render formats a result as the plain-text trace stored in golden files:
// the handle bindings, one line per event, and the final stage contents.
func Render(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)

	buf.WriteString("handles:\n")
	names := make([]string, 0, len(result.Bindings))
	for n := range result.Bindings {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(&buf, "  %s = %d\n", n, result.Bindings[n])
	}

	buf.WriteString("events:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "  %s\n", formatEvent(ev))
	}

	buf.WriteString("final:\n")
	for _, st := range result.Final {
		fmt.Fprintf(&buf, "  %s: %s\n", st.Name, joinHandles(st.Handles))
	}
	return []byte(buf.String())
}

// formatEvent renders one event as
// "<seq> <type> <kind> <handle> <from> -> <to>" plus related handles and
// apply counts when present.
func formatEvent(ev TraceEvent) string {
	s := fmt.Sprintf("%d %s %s %d %s -> %s", ev.Seq, ev.Type, ev.Kind, ev.Handle, dash(ev.From), dash(ev.To))
	if len(ev.Related) > 0 {
		s += " related=[" + joinHandles(ev.Related) + "]"
	}
	if ev.Type == "applied" || ev.Type == "cleared" {
		s += fmt.Sprintf(" applied=%d skipped=%d", ev.Applied, ev.Skipped)
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinHandles(hs []int64) string {
	if len(hs) == 0 {
		return "-"
	}
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = fmt.Sprintf("%d", h)
	}
	return strings.Join(parts, " ")
}

// RunWithGolden executes a scenario and compares its rendered trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. Failed steps or assertions
// fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Render(scenarioName, result))
	return nil
}
