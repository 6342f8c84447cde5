package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ormock/internal/harness"
	"github.com/roach88/ormock/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID       string   `json:"run_id"`
	Scenario    string   `json:"scenario"`
	Pass        bool     `json:"pass"`
	Resolutions int      `json:"resolutions"`
	Clears      int      `json:"clears"`
	Errors      []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and journal its resolutions",
		Long: `Run a single scenario and journal every resolution and clear to a SQLite
database (created if it doesn't exist). Use "ormock trace" to inspect the
journaled run afterwards.

Example:
  ormock run --db ./ormock.db ./scenarios/find_or_create.yaml
  ormock trace --db ./ormock.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioJournaled(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScenarioJournaled(opts *RunOptions, scenarioFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return formatter.CommandError(ErrCodeLoadFailed, "failed to load scenario", err, nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.CommandError(ErrCodeJournal, "failed to open database", err, nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runID, err := st.BeginRun(ctx, scenario.Name, 0)
	if err != nil {
		return formatter.CommandError(ErrCodeJournal, "failed to begin run", err, nil)
	}
	logger.Info("run started", "run", runID, "scenario", scenario.Name)

	rec := store.NewRecorder(ctx, st, runID, logger)
	result, err := harness.Run(scenario, harness.WithObserver(rec), harness.WithLogger(logger))
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "scenario execution failed", err, map[string]string{"run_id": runID})
	}
	if err := rec.Err(); err != nil {
		return formatter.CommandError(ErrCodeJournal, "journal write failed", err, map[string]string{"run_id": runID})
	}

	summary := RunSummary{
		RunID:    runID,
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
	}
	for _, ev := range result.Trace {
		switch ev.Type {
		case harness.EventResolution:
			summary.Resolutions++
		case harness.EventClear:
			summary.Clears++
		}
	}

	if formatter.IsJSON() {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		mark := "✓"
		if !summary.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, summary.Scenario)
		fmt.Fprintf(w, "  run:         %s\n", summary.RunID)
		fmt.Fprintf(w, "  resolutions: %d\n", summary.Resolutions)
		fmt.Fprintf(w, "  clears:      %d\n", summary.Clears)
		for _, e := range summary.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if !summary.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", summary.Scenario))
	}
	return nil
}
