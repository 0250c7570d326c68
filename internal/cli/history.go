package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Handle   int64
}

// RunSummary is one recorded run in the run list.
type RunSummary struct {
	ID        string         `json:"id"`
	Pipeline  string         `json:"pipeline"`
	Stages    []StageSummary `json:"stages"`
	StartedAt time.Time      `json:"started_at"`
}

// StageSummary is a stage declaration of a recorded run.
type StageSummary struct {
	Name string               `json:"name"`
	Kind pipeline.PayloadKind `json:"kind"`
}

// RunHistory is the log of one run, or of one handle within it.
type RunHistory struct {
	Run         RunSummary                 `json:"run"`
	Handle      int64                      `json:"handle,omitempty"`
	Transitions []store.Transition         `json:"transitions"`
	Counts      map[pipeline.EventType]int `json:"counts"`
	Occupancy   map[string][]int64         `json:"occupancy"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the transition log",
		Long: `Read the SQLite transition log written by "framepipe run".

Without --run, lists the recorded runs. With --run, prints that run's
transitions, the count per transition type, and the stage occupancy
rebuilt from the log. --handle narrows the transitions to one handle.

Examples:
  framepipe history --db ./framepipe.db
  framepipe history --db ./framepipe.db --run 0192f0c4-...
  framepipe history --db ./framepipe.db --run 0192f0c4-... --handle 7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite transition log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().Int64Var(&opts.Handle, "handle", 0, "only transitions involving this handle (requires --run)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Handle != 0 && opts.RunID == "" {
		_ = formatter.Error(&CLIError{Code: ErrCodeGeneric, Message: "--handle requires --run"})
		return NewExitError(ExitCommandError, "--handle requires --run")
	}
	// store.Open would create a missing database.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		msg := fmt.Sprintf("database not found: %s", opts.Database)
		_ = formatter.Error(&CLIError{Code: ErrCodeNotFound, Message: msg})
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(cliErrorOf(err, ErrCodeStore))
		return WrapExitError(ExitCommandError, "failed to open transition log", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.RunID == "" {
		formatter.VerboseLog("Listing runs in %s", opts.Database)
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			_ = formatter.Error(cliErrorOf(err, ErrCodeStore))
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		out := make([]RunSummary, len(runs))
		for i, r := range runs {
			out[i] = summarize(r)
		}
		return formatter.Success(out, formatRuns(out))
	}

	formatter.VerboseLog("Reading run %s from %s", opts.RunID, opts.Database)
	history, err := readRunHistory(cmd, st, opts)
	if err != nil {
		cliErr := cliErrorOf(err, ErrCodeStore)
		_ = formatter.Error(cliErr)
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	return formatter.Success(history, formatHistory(history))
}

func readRunHistory(cmd *cobra.Command, st *store.Store, opts *HistoryOptions) (*RunHistory, error) {
	ctx := cmd.Context()
	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		return nil, err
	}

	var trs []store.Transition
	if opts.Handle != 0 {
		trs, err = st.ReadHandleHistory(ctx, run.ID, pipeline.Handle(opts.Handle))
	} else {
		trs, err = st.ReadTransitions(ctx, run.ID)
	}
	if err != nil {
		return nil, err
	}

	counts, err := st.CountByType(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	occ, err := st.ReplayOccupancy(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	out := &RunHistory{
		Run:         summarize(run),
		Handle:      opts.Handle,
		Transitions: trs,
		Counts:      counts,
		Occupancy:   make(map[string][]int64, len(run.Stages)),
	}
	for _, s := range run.Stages {
		hs := occ.Stage(s.Name)
		ids := make([]int64, len(hs))
		for i, h := range hs {
			ids[i] = int64(h)
		}
		out.Occupancy[s.Name] = ids
	}
	return out, nil
}

func summarize(r store.Run) RunSummary {
	s := RunSummary{ID: r.ID, Pipeline: r.Pipeline, StartedAt: r.StartedAt.UTC()}
	for _, sc := range r.Stages {
		s.Stages = append(s.Stages, StageSummary{Name: sc.Name, Kind: sc.Kind})
	}
	return s
}

func formatRuns(runs []RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for _, r := range runs {
		names := make([]string, len(r.Stages))
		for i, s := range r.Stages {
			names[i] = s.Name
		}
		fmt.Fprintf(&b, "%s  %s  %s  [%s]\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Pipeline, strings.Join(names, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistory(h *RunHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (pipeline %q, started %s)\n", h.Run.ID, h.Run.Pipeline, h.Run.StartedAt.Format(time.RFC3339))
	if h.Handle != 0 {
		fmt.Fprintf(&b, "handle %d\n", h.Handle)
	}

	b.WriteString("transitions:\n")
	if len(h.Transitions) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, tr := range h.Transitions {
		fmt.Fprintf(&b, "  %d %s %s %d %s -> %s", tr.Seq, tr.Type, tr.Kind, tr.Handle, orDash(tr.From), orDash(tr.To))
		if len(tr.Related) > 0 {
			ids := make([]string, len(tr.Related))
			for i, r := range tr.Related {
				ids[i] = fmt.Sprintf("%d", r)
			}
			fmt.Fprintf(&b, " related=[%s]", strings.Join(ids, " "))
		}
		if tr.Type == pipeline.EventApplied || tr.Type == pipeline.EventCleared {
			fmt.Fprintf(&b, " applied=%d skipped=%d", tr.Applied, tr.Skipped)
		}
		b.WriteString("\n")
	}

	b.WriteString("counts:\n")
	types := make([]string, 0, len(h.Counts))
	for t := range h.Counts {
		types = append(types, string(t))
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, h.Counts[pipeline.EventType(t)])
	}

	b.WriteString("occupancy:\n")
	for _, s := range h.Run.Stages {
		ids := h.Occupancy[s.Name]
		if len(ids) == 0 {
			fmt.Fprintf(&b, "  %s: -\n", s.Name)
			continue
		}
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(&b, "  %s: %s\n", s.Name, strings.Join(strs, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
