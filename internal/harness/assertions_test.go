package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventResolution, Seq: 1, Scope: "user", Operation: "findOne", Strategy: "queue"},
		{Type: EventResolution, Seq: 2, Scope: "db", Operation: "findAll", Strategy: "queue"},
		{Type: EventResolution, Seq: 3, Scope: "user", Operation: "findAll", Strategy: "parent"},
		{Type: EventClear, Seq: 4, Scope: "db", Target: "queue"},
		{Type: EventResolution, Seq: 5, Scope: "user", Operation: "findAll", Strategy: "fallback"},
	}
}

func TestAssertStrategyCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertStrategyCount(trace, Assertion{Strategy: "queue", Count: 2}))
	assert.NoError(t, assertStrategyCount(trace, Assertion{Strategy: "queue", Scope: "db", Count: 1}))
	assert.NoError(t, assertStrategyCount(trace, Assertion{Strategy: "handler", Count: 0}))

	err := assertStrategyCount(trace, Assertion{Strategy: "parent", Scope: "db", Count: 1})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, AssertStrategyCount, ae.Type)
	assert.Equal(t, "1 resolutions by parent on db", ae.Expected)
	assert.Equal(t, "0 resolutions", ae.Actual)
}

func TestAssertStrategyOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertStrategyOrder(trace, Assertion{Strategies: []string{"queue", "parent", "fallback"}}))
	assert.NoError(t, assertStrategyOrder(trace, Assertion{Strategies: []string{"queue", "fallback"}}), "gaps allowed")
	assert.NoError(t, assertStrategyOrder(trace, Assertion{Strategies: []string{"parent", "fallback"}, Scope: "user"}))

	err := assertStrategyOrder(trace, Assertion{Strategies: []string{"parent", "queue"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched 1 of 2")

	err = assertStrategyOrder(trace, Assertion{Strategies: []string{"queue", "parent"}, Scope: "db"})
	assert.Error(t, err)
}

func TestAssertResolutionCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertResolutionCount(trace, Assertion{Count: 4}), "clears are not resolutions")
	assert.NoError(t, assertResolutionCount(trace, Assertion{Operation: "findAll", Count: 3}))
	assert.NoError(t, assertResolutionCount(trace, Assertion{Operation: "findAll", Scope: "user", Count: 2}))

	err := assertResolutionCount(trace, Assertion{Operation: "create", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 1 create resolutions")
}

func TestAssertQueueLength(t *testing.T) {
	actx := &AssertionContext{Queues: func(target string) (int, error) {
		if target == "db" {
			return 2, nil
		}
		return 0, errors.New("unknown target")
	}}

	assert.NoError(t, assertQueueLength(actx, Assertion{Target: "db", Count: 2}))
	assert.Error(t, assertQueueLength(actx, Assertion{Target: "db", Count: 0}))
	assert.ErrorContains(t, assertQueueLength(actx, Assertion{Target: "user"}), "unknown target")
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStrategyCount,
		Expected: "1 resolutions by handler",
		Actual:   "0 resolutions",
		Trace:    sampleTrace()[2:4],
	}

	want := "Assertion failed: strategy_count\n" +
		"  Expected: 1 resolutions by handler\n" +
		"  Actual: 0 resolutions\n" +
		"\nFull trace:\n" +
		"  [3] user.findAll -> parent\n" +
		"  [4] db cleared queue\n"
	assert.Equal(t, want, err.Error())
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertStrategyCount, Strategy: "queue", Count: 2},
		{Type: AssertResolutionCount, Count: 99},
		{Type: AssertQueueLength, Target: "db"},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "resolution_count")
	assert.Contains(t, errs[1], "queue_length requires scope context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}

func TestMatchValue(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"equal scalars", int64(1), int64(1), true},
		{"different scalars", int64(1), int64(2), false},
		{"nil both", nil, nil, true},
		{"nil actual", nil, "x", false},
		{"map subset", map[string]any{"a": int64(1), "b": "x"}, map[string]any{"a": int64(1)}, true},
		{"map missing key", map[string]any{"a": int64(1)}, map[string]any{"b": int64(1)}, false},
		{"map vs scalar", "x", map[string]any{}, false},
		{"nested subset", map[string]any{"a": map[string]any{"b": true, "c": false}}, map[string]any{"a": map[string]any{"b": true}}, true},
		{"list equal", []any{map[string]any{"a": "x", "id": int64(1)}}, []any{map[string]any{"a": "x"}}, true},
		{"list length differs", []any{"a", "b"}, []any{"a"}, false},
		{"list vs map", []any{}, map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchValue(tt.actual, tt.expected))
		})
	}
}

func TestCheckExpect(t *testing.T) {
	created := true
	count := 3

	assert.Empty(t, checkExpect(&ExpectClause{}, callOutcome{value: "anything"}))
	assert.Empty(t, checkExpect(&ExpectClause{Created: &created, Count: &count},
		callOutcome{created: &created, count: &count}))

	msgs := checkExpect(&ExpectClause{Created: &created, Count: &count}, callOutcome{})
	assert.Equal(t, []string{"created flag not reported by this call", "count not reported by this call"}, msgs)

	msgs = checkExpect(&ExpectClause{Error: "validation"}, callOutcome{})
	assert.Equal(t, []string{"expected error SequelizeValidationError, got success"}, msgs)
}
