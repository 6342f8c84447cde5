package store

import (
	"fmt"

	"github.com/roach88/ormock/internal/canon"
	"github.com/roach88/ormock/internal/dberr"
)

// Outcome values stored in resolutions.outcome.
const (
	OutcomeValue = "value"
	OutcomeError = "error"
)

// marshalArgs converts resolution arguments to canonical JSON TEXT.
func marshalArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := canon.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalValue converts a resolved value to canonical JSON TEXT.
func marshalValue(v any) (string, error) {
	data, err := canon.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// outcomeColumns splits a resolution's result into the outcome, value,
// error_name and error columns.
func outcomeColumns(v any, err error) (outcome, value, errName, errMsg string, marshalErr error) {
	if err != nil {
		return OutcomeError, "null", dberr.NameOf(err), err.Error(), nil
	}
	value, marshalErr = marshalValue(v)
	return OutcomeValue, value, "", "", marshalErr
}
