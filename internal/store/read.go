package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Run is one journaled scenario run.
type Run struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	StartedSeq int64  `json:"started_seq"`
}

// ResolutionRow is one journaled resolution. Args and Value hold canonical JSON.
type ResolutionRow struct {
	RunID     string `json:"run_id"`
	Seq       int64  `json:"seq"`
	Scope     string `json:"scope"`
	Operation string `json:"operation"`
	Args      string `json:"args"`
	Strategy  string `json:"strategy"`
	Outcome   string `json:"outcome"`
	Value     string `json:"value"`
	ErrorName string `json:"error_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ClearRow is one journaled clear.
type ClearRow struct {
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Scope  string `json:"scope"`
	Target string `json:"target"`
}

// ListRuns returns every run, oldest first. UUIDv7 ids sort by creation time.
//
// Returns an empty slice (not nil) if the journal has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, started_seq
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Scenario, &r.StartedSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id, or false if there is none.
func (s *Store) GetRun(ctx context.Context, id string) (Run, bool, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, started_seq FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Scenario, &r.StartedSeq)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("get run: %w", err)
	}
	return r, true, nil
}

// ReadResolutions returns a run's resolutions ordered by seq.
//
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadResolutions(ctx context.Context, runID string) ([]ResolutionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, scope, operation, args, strategy, outcome, value, error_name, error
		FROM resolutions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	out := []ResolutionRow{}
	for rows.Next() {
		var r ResolutionRow
		if err := rows.Scan(
			&r.RunID, &r.Seq, &r.Scope, &r.Operation, &r.Args,
			&r.Strategy, &r.Outcome, &r.Value, &r.ErrorName, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

// ReadClears returns a run's clears ordered by seq.
//
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadClears(ctx context.Context, runID string) ([]ClearRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, scope, target
		FROM clears
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clears: %w", err)
	}
	defer rows.Close()

	out := []ClearRow{}
	for rows.Next() {
		var c ClearRow
		if err := rows.Scan(&c.RunID, &c.Seq, &c.Scope, &c.Target); err != nil {
			return nil, fmt.Errorf("scan clear: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clears: %w", err)
	}
	return out, nil
}
