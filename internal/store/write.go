package store

import (
	"context"
	"fmt"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/engine"
)

// BeginRun inserts a run row and returns its id, a UUIDv7 so run ids sort by
// creation. startedSeq is the engine clock value when the run began.
func (s *Store) BeginRun(ctx context.Context, scenario string, startedSeq int64) (string, error) {
	id := datatype.NewV7()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, started_seq)
		VALUES (?, ?, ?)
	`, id, scenario, startedSeq)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteResolution appends one resolution to a run.
// Uses ON CONFLICT DO NOTHING: a resolution is identified by (run_id, seq).
func (s *Store) WriteResolution(ctx context.Context, runID string, r engine.Resolution) error {
	argsJSON, err := marshalArgs(r.Args)
	if err != nil {
		return fmt.Errorf("write resolution %d: %w", r.Seq, err)
	}

	outcome, value, errName, errMsg, err := outcomeColumns(r.Value, r.Err)
	if err != nil {
		return fmt.Errorf("write resolution %d: %w", r.Seq, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions
		(run_id, seq, scope, operation, args, strategy, outcome, value, error_name, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		r.Seq,
		r.Scope,
		r.Operation,
		argsJSON,
		string(r.Strategy),
		outcome,
		value,
		errName,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("write resolution %d: %w", r.Seq, err)
	}
	return nil
}

// WriteClear appends one clear event to a run.
func (s *Store) WriteClear(ctx context.Context, runID string, c engine.Clear) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clears (run_id, seq, scope, target)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, runID, c.Seq, c.Scope, string(c.Target))
	if err != nil {
		return fmt.Errorf("write clear %d: %w", c.Seq, err)
	}
	return nil
}
