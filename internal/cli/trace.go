package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ormock/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	RunID     string
	Operation string // optional - filter resolutions to one operation
}

// TraceEvent is a single entry in a run's timeline.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"` // "resolution" or "clear"
	Scope     string `json:"scope"`
	Operation string `json:"operation,omitempty"`
	Args      string `json:"args,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Value     string `json:"value,omitempty"`
	ErrorName string `json:"error_name,omitempty"`
	Error     string `json:"error,omitempty"`
	Target    string `json:"target,omitempty"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Resolutions int            `json:"resolutions"`
	Clears      int            `json:"clears"`
	Errors      int            `json:"errors"`
	ByStrategy  map[string]int `json:"by_strategy"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled runs",
		Long: `Inspect runs journaled by "ormock run".

Without --run, lists every journaled run. With --run, prints the run's
timeline of resolutions and clears in sequence order together with a
count of resolutions per strategy.

Examples:
  ormock trace --db ./ormock.db
  ormock trace --db ./ormock.db --run 0192...
  ormock trace --db ./ormock.db --run 0192... --operation findAll
  ormock trace --db ./ormock.db --run 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (lists runs when empty)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "filter resolutions to one operation")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.CommandError(ErrCodeJournal, "failed to open database", err, nil)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.CommandError(ErrCodeJournal, "failed to list runs", err, nil)
		}
		return outputRuns(formatter, runs)
	}

	result, found, err := buildTrace(ctx, st, opts.RunID, opts.Operation)
	if err != nil {
		return formatter.CommandError(ErrCodeJournal, "failed to read run", err, nil)
	}
	if !found {
		msg := fmt.Sprintf("run not found: %s", opts.RunID)
		_ = formatter.Error(ErrCodeRunNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// buildTrace reads a run and merges its resolutions and clears by seq. With
// an operation filter, clears are kept and resolutions of other operations
// are dropped; stats always cover the whole run.
func buildTrace(ctx context.Context, st *store.Store, runID, operation string) (TraceResult, bool, error) {
	run, found, err := st.GetRun(ctx, runID)
	if err != nil || !found {
		return TraceResult{}, found, err
	}

	resolutions, err := st.ReadResolutions(ctx, runID)
	if err != nil {
		return TraceResult{}, true, err
	}
	clears, err := st.ReadClears(ctx, runID)
	if err != nil {
		return TraceResult{}, true, err
	}

	result := TraceResult{
		Run:      run,
		Timeline: []TraceEvent{},
		Stats: TraceStats{
			Resolutions: len(resolutions),
			Clears:      len(clears),
			ByStrategy:  map[string]int{},
		},
	}

	for _, r := range resolutions {
		result.Stats.ByStrategy[r.Strategy]++
		if r.ErrorName != "" {
			result.Stats.Errors++
		}
		if operation != "" && r.Operation != operation {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:       r.Seq,
			Type:      "resolution",
			Scope:     r.Scope,
			Operation: r.Operation,
			Args:      r.Args,
			Strategy:  r.Strategy,
			Outcome:   r.Outcome,
			Value:     r.Value,
			ErrorName: r.ErrorName,
			Error:     r.Error,
		})
	}
	for _, c := range clears {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:    c.Seq,
			Type:   "clear",
			Scope:  c.Scope,
			Target: c.Target,
		})
	}

	slices.SortStableFunc(result.Timeline, func(a, b TraceEvent) int {
		return int(a.Seq - b.Seq)
	})
	return result, true, nil
}

func outputRuns(formatter *OutputFormatter, runs []store.Run) error {
	if formatter.IsJSON() {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s\n", r.ID, r.Scenario)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s (%s)\n", result.Run.ID, result.Run.Scenario)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Resolutions: %d\n", result.Stats.Resolutions)
	fmt.Fprintf(w, "  Clears:      %d\n", result.Stats.Clears)
	fmt.Fprintf(w, "  Errors:      %d\n", result.Stats.Errors)
	strategies := make([]string, 0, len(result.Stats.ByStrategy))
	for s := range result.Stats.ByStrategy {
		strategies = append(strategies, s)
	}
	slices.Sort(strategies)
	for _, s := range strategies {
		fmt.Fprintf(w, "  %-12s %d\n", s+":", result.Stats.ByStrategy[s])
	}
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, ev TraceEvent, verbose bool) {
	switch ev.Type {
	case "resolution":
		fmt.Fprintf(w, "  [%d] %s.%s -> %s\n", ev.Seq, ev.Scope, ev.Operation, ev.Strategy)
		if !verbose {
			return
		}
		fmt.Fprintf(w, "       Args: %s\n", ev.Args)
		if ev.ErrorName != "" {
			fmt.Fprintf(w, "       Error: %s: %s\n", ev.ErrorName, ev.Error)
		} else {
			fmt.Fprintf(w, "       Value: %s\n", ev.Value)
		}

	case "clear":
		fmt.Fprintf(w, "  [%d] %s cleared %s\n", ev.Seq, ev.Scope, ev.Target)
	}
}
