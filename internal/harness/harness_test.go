package harness

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ormock/internal/engine"
)

func modelsDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("testdata", "models"))
	require.NoError(t, err)
	return dir
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "one raw query answered by the queue",
		Setup:       []QueueStep{{Target: DBTarget, Result: 42, hasResult: true}},
		Flow: []FlowStep{{
			Call:   CallQuery,
			Args:   []any{"SELECT 1"},
			Expect: &ExpectClause{Value: 42},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, EventResolution, ev.Type)
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, DBTarget, ev.Scope)
	assert.Equal(t, "query", ev.Operation)
	assert.Equal(t, []any{"SELECT 1"}, ev.Args)
	assert.Equal(t, "queue", ev.Strategy)
	assert.Equal(t, int64(42), ev.Value)
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"queue_parent_exhausted", "find_or_create", "handlers_and_fallback"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExpectMismatches(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "every expect clause is wrong",
		Models:      []string{modelsDir(t)},
		Setup: []QueueStep{
			{Target: "user", Result: map[string]any{"name": "ada"}, WasCreated: boolPtr(true), hasResult: true},
			{Target: "user", Result: []any{}, hasResult: true},
		},
		Flow: []FlowStep{
			{
				Call:   "user.findOrCreate",
				Expect: &ExpectClause{Created: boolPtr(false), Value: map[string]any{"name": "grace"}},
			},
			{
				Call:   "user.findAll",
				Expect: &ExpectClause{Count: intPtr(1)},
			},
			{
				Call:   CallQuery,
				Args:   []any{"SELECT 1"},
				Expect: &ExpectClause{Value: 1},
			},
			{
				Call:   CallQuery,
				Args:   []any{"SELECT 2"},
				Expect: &ExpectClause{Error: "timeout"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected created=false, got true")
	assert.Contains(t, result.Errors[1], "value mismatch")
	assert.Contains(t, result.Errors[2], "expected count 1, got 0")
	assert.Contains(t, result.Errors[3], "unexpected error SequelizeMockEmptyQueryQueueError")
	assert.Contains(t, result.Errors[4], "expected error SequelizeTimeoutError, got SequelizeMockEmptyQueryQueueError")
}

func TestRun_UnexpectedErrorWithoutExpectIsIgnored(t *testing.T) {
	scenario := &Scenario{
		Name:        "ignored",
		Description: "failures only count when expected otherwise",
		Flow:        []FlowStep{{Call: CallQuery, Args: []any{"SELECT 1"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "exhausted", result.Trace[0].Strategy)
	assert.Equal(t, "SequelizeMockEmptyQueryQueueError", result.Trace[0].Error)
	assert.Nil(t, result.Trace[0].Value)
}

func TestRun_RejectedValue(t *testing.T) {
	scenario := &Scenario{
		Name:        "rejected",
		Description: "non-error failures kept as values",
		Setup: []QueueStep{{
			Target:           DBTarget,
			Failure:          "plain text",
			ConvertNonErrors: boolPtr(false),
			hasFailure:       true,
		}},
		Flow: []FlowStep{{Call: CallQuery, Args: []any{"SELECT 1"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "RejectedValue", result.Trace[0].Error)
}

func TestRun_ConvertedFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "converted",
		Description: "non-error failures become base errors",
		Setup:       []QueueStep{{Target: DBTarget, Failure: "plain text", hasFailure: true}},
		Flow: []FlowStep{{
			Call:   CallQuery,
			Args:   []any{"SELECT 1"},
			Expect: &ExpectClause{Error: "base"},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "SequelizeBaseError", result.Trace[0].Error)
	assert.Equal(t, "plain text", result.Trace[0].Message)
}

func TestRun_HandlerFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "handler_failure",
		Description: "handler failures are typed by error_kind",
		Handlers: []HandlerStep{{
			Target:     DBTarget,
			Operation:  "query",
			Failure:    "refused",
			ErrorKind:  "connection_refused",
			hasFailure: true,
		}},
		Flow: []FlowStep{{
			Call:   CallQuery,
			Args:   []any{"SELECT 1"},
			Expect: &ExpectClause{Error: "connection"},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "handler", result.Trace[0].Strategy)
	assert.Equal(t, "refused", result.Trace[0].Message)
}

func TestRun_UpdateAndBulkCreate(t *testing.T) {
	scenario := &Scenario{
		Name:        "update_bulk",
		Description: "affected rows and bulk create",
		Models:      []string{modelsDir(t)},
		Options:     ScenarioOptions{AutoQueryFallback: boolPtr(false)},
		Setup: []QueueStep{{
			Target:       "user",
			Result:       2,
			AffectedRows: []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}},
			hasResult:    true,
		}},
		Flow: []FlowStep{
			{
				Call: "user.update",
				Args: []any{map[string]any{"age": 40}, map[string]any{"where": map[string]any{"age": 36}}},
				Expect: &ExpectClause{
					Count: intPtr(2),
					Value: map[string]any{"rows": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}},
				},
			},
			{
				Call:   "user.bulkCreate",
				Args:   []any{[]any{map[string]any{"name": "x"}, map[string]any{"name": "y"}}},
				Expect: &ExpectClause{Error: "empty_query_queue"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, []any{
		map[string]any{"age": int64(40)},
		map[string]any{"where": map[string]any{"age": int64(36)}},
	}, result.Trace[0].Args)
	assert.Equal(t, map[string]any{
		"value": int64(2),
		"rows":  []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}},
	}, result.Trace[0].Value)
	assert.Equal(t, "db", result.Trace[1].Scope, "bulkCreate falls through to the database")
	assert.Equal(t, "parent", result.Trace[2].Strategy)
}

func TestRun_BulkCreateFallsBackByDefault(t *testing.T) {
	scenario := &Scenario{
		Name:        "bulk_default",
		Description: "bulk create resolves through the database fallback",
		Models:      []string{modelsDir(t)},
		Flow: []FlowStep{{
			Call: "user.bulkCreate",
			Args: []any{[]any{map[string]any{"name": "x"}, map[string]any{"name": "y"}}},
			Expect: &ExpectClause{
				Count: intPtr(2),
				Value: []any{map[string]any{"name": "x"}, map[string]any{"name": "y"}},
			},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "db", result.Trace[0].Scope)
	assert.Equal(t, "fallback", result.Trace[0].Strategy)
	assert.Equal(t, "user", result.Trace[1].Scope)
	assert.Equal(t, "parent", result.Trace[1].Strategy)
}

func TestRun_HarnessErrors(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
		wantErr  string
	}{
		{
			name: "unknown setup target",
			scenario: &Scenario{
				Setup: []QueueStep{{Target: "ghost", Result: 1, hasResult: true}},
				Flow:  []FlowStep{{Call: CallQuery, Args: []any{"x"}}},
			},
			wantErr: `setup[0]: unknown target "ghost"`,
		},
		{
			name: "unknown model",
			scenario: &Scenario{
				Flow: []FlowStep{{Call: "ghost.findAll"}},
			},
			wantErr: `unknown model "ghost"`,
		},
		{
			name: "query without sql",
			scenario: &Scenario{
				Flow: []FlowStep{{Call: CallQuery}},
			},
			wantErr: "query requires a SQL string argument",
		},
		{
			name: "unknown operation",
			scenario: &Scenario{
				Models: []string{modelsDir(t)},
				Flow:   []FlowStep{{Call: "user.explode"}},
			},
			wantErr: `unsupported operation "explode"`,
		},
		{
			name: "bad query options",
			scenario: &Scenario{
				Models: []string{modelsDir(t)},
				Flow:   []FlowStep{{Call: "user.findAll", Args: []any{map[string]any{"wher": 1}}}},
			},
			wantErr: "invalid query options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "handlers_and_fallback.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

// collectingObserver records events for WithObserver.
type collectingObserver struct {
	mu          sync.Mutex
	resolutions []engine.Resolution
	clears      []engine.Clear
}

func (c *collectingObserver) Resolved(r engine.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutions = append(c.resolutions, r)
}

func (c *collectingObserver) Cleared(cl engine.Clear) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears = append(c.clears, cl)
}

func TestRun_WithObserverAndClock(t *testing.T) {
	obs := &collectingObserver{}
	scenario := &Scenario{
		Name:        "observed",
		Description: "extra observer sees the same events",
		Setup:       []QueueStep{{Target: DBTarget, Result: "ok", hasResult: true}},
		Flow:        []FlowStep{{Call: CallQuery, Args: []any{"SELECT 1"}}},
	}

	result, err := Run(scenario, WithObserver(obs), WithClock(engine.NewClockAt(10)))
	require.NoError(t, err)

	require.Len(t, obs.resolutions, 1)
	assert.Equal(t, int64(11), obs.resolutions[0].Seq)
	assert.Equal(t, int64(11), result.Trace[0].Seq)
}

func TestTraceRecorder_OrdersBySeq(t *testing.T) {
	rec := &traceRecorder{}
	rec.Resolved(engine.Resolution{Seq: 3, Scope: "user", Operation: "findAll", Strategy: engine.StrategyParent})
	rec.Resolved(engine.Resolution{Seq: 2, Scope: "db", Operation: "findAll", Strategy: engine.StrategyQueue})
	rec.Cleared(engine.Clear{Seq: 1, Scope: "db", Target: engine.ClearTargetQueue})

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventClear, events[0].Type)
	assert.Equal(t, "queue", events[0].Target)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, int64(3), events[2].Seq)
	assert.Equal(t, []any{}, events[1].Args)
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("boom")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}
