package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ormock/internal/dberr"
)

// recordingObserver collects events for assertions.
type recordingObserver struct {
	mu          sync.Mutex
	resolutions []Resolution
	clearEvents []Clear
}

func (o *recordingObserver) Resolved(r Resolution) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolutions = append(o.resolutions, r)
}

func (o *recordingObserver) Cleared(c Clear) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearEvents = append(o.clearEvents, c)
}

func (o *recordingObserver) strategies() []Strategy {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Strategy, len(o.resolutions))
	for i, r := range o.resolutions {
		out[i] = r.Strategy
	}
	return out
}

func (o *recordingObserver) clears() []Clear {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Clear(nil), o.clearEvents...)
}

// mockHandler is a testify mock standing in for a user handler.
type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) Handle(ctx context.Context, operation string, args []any) Result {
	ret := m.Called(operation, args)
	return ret.Get(0).(Result)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScopes(t *testing.T, childOpts ...Option) (root, child *Engine, obs *recordingObserver) {
	t.Helper()
	obs = &recordingObserver{}
	root = New(WithName("db"), WithObserver(obs), WithLogger(quietLogger()))
	child = New(append([]Option{WithName("users"), WithParent(root)}, childOpts...)...)
	return root, child, obs
}

func TestResolve_HandlerPrecedesQueue(t *testing.T) {
	_, e, obs := newScopes(t)
	e.QueueResult("queued")

	h := &mockHandler{}
	h.On("Handle", "findOne", []any{1}).Return(Value("handled")).Once()
	e.UseHandler(h.Handle)

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne", Args: []any{1}})
	require.NoError(t, err)
	assert.Equal(t, "handled", v)
	assert.Equal(t, 1, e.QueueLen(), "queue untouched when a handler answers")
	assert.Equal(t, []Strategy{StrategyHandler}, obs.strategies())
	h.AssertExpectations(t)
}

func TestResolve_HandlerNoValuePassesToNextThenQueue(t *testing.T) {
	_, e, _ := newScopes(t)

	first := &mockHandler{}
	first.On("Handle", "findAll", mock.Anything).Return(NoValue()).Twice()
	second := &mockHandler{}
	second.On("Handle", "findAll", mock.Anything).Return(NoValue()).Once()
	second.On("Handle", "findAll", mock.Anything).Return(Value("second")).Once()

	e.UseHandler(first.Handle).UseHandler(second.Handle)
	e.QueueResult("queued")

	ctx := context.Background()
	v, err := e.Resolve(ctx, Request{Operation: "findAll"})
	require.NoError(t, err)
	assert.Equal(t, "queued", v)

	v, err = e.Resolve(ctx, Request{Operation: "findAll"})
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestResolve_HandlerValueNilIsDefined(t *testing.T) {
	_, e, _ := newScopes(t)
	e.UseHandler(func(context.Context, string, []any) Result { return Value(nil) })
	e.QueueResult("queued")

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, e.QueueLen())
}

func TestResolve_HandlerValueIsNotReshaped(t *testing.T) {
	_, e, _ := newScopes(t)
	e.UseHandler(func(context.Context, string, []any) Result { return Value("raw") })

	v, err := e.Resolve(context.Background(), Request{Operation: "findOrCreate", Shape: ShapeWithCreated})
	require.NoError(t, err)
	assert.Equal(t, "raw", v)
}

func TestResolve_HandlerFailureEndsResolution(t *testing.T) {
	_, e, _ := newScopes(t)
	boom := errors.New("boom")
	e.UseHandler(func(context.Context, string, []any) Result { return Failure(boom) })
	e.QueueResult("queued")

	_, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, e.QueueLen())
}

func TestResolve_HandlerSeesSnapshot(t *testing.T) {
	_, e, _ := newScopes(t)
	var late bool
	e.UseHandler(func(context.Context, string, []any) Result {
		e.UseHandler(func(context.Context, string, []any) Result {
			late = true
			return Value("late")
		})
		return NoValue()
	})
	e.QueueResult("queued")

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Equal(t, "queued", v)
	assert.False(t, late, "handler registered mid-resolution is not consulted")
	assert.Equal(t, 2, e.HandlerCount())
}

func TestResolve_Shapes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		opts  []Option
		queue func(e *Engine)
		shape Shape
		want  any
	}{
		{
			name:  "plain",
			queue: func(e *Engine) { e.QueueResult("x", WasCreated(false)) },
			shape: ShapePlain,
			want:  "x",
		},
		{
			name:  "created explicit",
			queue: func(e *Engine) { e.QueueResult("x", WasCreated(false)) },
			shape: ShapeWithCreated,
			want:  Created{Value: "x", Created: false},
		},
		{
			name:  "created default",
			queue: func(e *Engine) { e.QueueResult("x") },
			shape: ShapeWithCreated,
			want:  Created{Value: "x", Created: true},
		},
		{
			name:  "created scope default",
			opts:  []Option{WithCreatedDefault(false)},
			queue: func(e *Engine) { e.QueueResult("x") },
			shape: ShapeWithCreated,
			want:  Created{Value: "x", Created: false},
		},
		{
			name:  "affected rows",
			queue: func(e *Engine) { e.QueueResult(2, WithAffectedRows([]string{"a", "b"})) },
			shape: ShapeWithAffectedRows,
			want:  Affected{Value: 2, Rows: []any{"a", "b"}},
		},
		{
			name:  "affected rows not a sequence",
			queue: func(e *Engine) { e.QueueResult(2, WithAffectedRows("nope")) },
			shape: ShapeWithAffectedRows,
			want:  Affected{Value: 2, Rows: []any{}},
		},
		{
			name:  "affected rows absent",
			queue: func(e *Engine) { e.QueueResult(0) },
			shape: ShapeWithAffectedRows,
			want:  Affected{Value: 0, Rows: []any{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(append([]Option{WithLogger(quietLogger())}, tt.opts...)...)
			tt.queue(e)

			got, err := e.Resolve(ctx, Request{Operation: "op", Shape: tt.shape})
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("packaged result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_MalformedOutcome(t *testing.T) {
	_, e, _ := newScopes(t)
	e.enqueueOutcome(Outcome{Content: "x", Kind: OutcomeKind(42)})
	e.QueueResult("next")

	_, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.Error(t, err)
	assert.True(t, IsInvalidQueuedResult(err))
	assert.Equal(t, "SequelizeMockInvalidQueryResultError", dberr.NameOf(err))

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Equal(t, "next", v, "malformed outcome is consumed")
}

func TestResolve_DelegatesToParent(t *testing.T) {
	root, e, obs := newScopes(t)
	root.QueueResult("from root", WasCreated(false))

	v, err := e.Resolve(context.Background(), Request{Operation: "findOrCreate", Shape: ShapeWithCreated})
	require.NoError(t, err)
	assert.Equal(t, Created{Value: "from root", Created: false}, v)
	assert.Equal(t, []Strategy{StrategyQueue, StrategyParent}, obs.strategies(),
		"parent resolution is reported before the child's")
}

func TestResolve_ParentFailureIsFinal(t *testing.T) {
	root, e, _ := newScopes(t)
	root.QueueFailure(dberr.NewTimeout())

	called := false
	_, err := e.Resolve(context.Background(), Request{
		Operation: "findOne",
		Fallback: func(context.Context) Result {
			called = true
			return Value("fallback")
		},
	})
	assert.ErrorIs(t, err, dberr.ErrTimeout)
	assert.False(t, called)
}

func TestResolve_ParentReceivesRequestFallback(t *testing.T) {
	_, e, obs := newScopes(t)

	v, err := e.Resolve(context.Background(), Request{
		Operation: "findOne",
		Fallback:  func(context.Context) Result { return Value("fallback") },
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, []Strategy{StrategyFallback, StrategyParent}, obs.strategies(),
		"the unchanged request reaches the parent, whose answer is final")
}

func TestResolve_ParentExhaustionIsFinal(t *testing.T) {
	_, e, _ := newScopes(t, WithFallback(func(context.Context) Result { return Value("child scope") }))

	_, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	assert.True(t, IsEmptyResolution(err), "child scope fallback is not consulted after delegation")
}

func TestResolve_StopPropagation(t *testing.T) {
	t.Run("scope", func(t *testing.T) {
		root, e, _ := newScopes(t, WithStopPropagation(true))
		root.QueueResult("root")

		_, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
		assert.True(t, IsEmptyResolution(err))
		assert.Equal(t, 1, root.QueueLen())
	})

	t.Run("request", func(t *testing.T) {
		root, e, _ := newScopes(t)
		root.QueueResult("root")

		v, err := e.Resolve(context.Background(), Request{
			Operation:       "findOne",
			StopPropagation: true,
			Fallback:        func(context.Context) Result { return Value("fallback") },
		})
		require.NoError(t, err)
		assert.Equal(t, "fallback", v)
		assert.Equal(t, 1, root.QueueLen())
	})
}

func TestResolve_RequestFallbackOverridesScope(t *testing.T) {
	e := New(WithLogger(quietLogger()), WithFallback(func(context.Context) Result { return Value("scope") }))

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Equal(t, "scope", v)

	v, err = e.Resolve(context.Background(), Request{
		Operation: "findOne",
		Fallback:  func(context.Context) Result { return Value("request") },
	})
	require.NoError(t, err)
	assert.Equal(t, "request", v)
}

func TestResolve_FallbackOutcomes(t *testing.T) {
	ctx := context.Background()
	e := New(WithLogger(quietLogger()))

	_, err := e.Resolve(ctx, Request{Operation: "findOne",
		Fallback: func(context.Context) Result { return NoValue() }})
	assert.True(t, IsEmptyResolution(err))

	boom := errors.New("fallback failed")
	_, err = e.Resolve(ctx, Request{Operation: "findOne",
		Fallback: func(context.Context) Result { return Failure(boom) }})
	assert.Same(t, boom, err)
}

func TestResolve_Exhausted(t *testing.T) {
	obs := &recordingObserver{}
	e := New(WithName("solo"), WithObserver(obs), WithLogger(quietLogger()))

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	assert.Nil(t, v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResolution)
	assert.Equal(t, "SequelizeMockEmptyQueryQueueError", dberr.NameOf(err))
	assert.Equal(t, []Strategy{StrategyExhausted}, obs.strategies())
}

func TestResolve_PendingHandler(t *testing.T) {
	_, e, _ := newScopes(t)
	p := NewPromise()
	e.UseHandler(func(context.Context, string, []any) Result { return Pending(p) })

	go p.Resolve("async")

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Equal(t, "async", v)
}

func TestResolve_PendingAbsenceTreatedLikeNoValue(t *testing.T) {
	_, e, _ := newScopes(t)
	e.UseHandler(func(context.Context, string, []any) Result {
		p := NewPromise()
		p.Settle(NoValue())
		return Pending(p)
	})
	e.QueueResult("queued")

	v, err := e.Resolve(context.Background(), Request{Operation: "findOne"})
	require.NoError(t, err)
	assert.Equal(t, "queued", v)
}

func TestResolve_ContextCancelledWhileAwaiting(t *testing.T) {
	_, e, _ := newScopes(t)
	e.UseHandler(func(context.Context, string, []any) Result { return Pending(NewPromise()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Resolve(ctx, Request{Operation: "findOne"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_QueueTakenAtArrivalNotAtStart(t *testing.T) {
	_, e, _ := newScopes(t)

	entered := make(chan struct{})
	gate := NewPromise()
	e.UseHandler(func(_ context.Context, op string, _ []any) Result {
		if op != "slow" {
			return NoValue()
		}
		close(entered)
		return Pending(gate)
	})
	e.QueueResult("A").QueueResult("B")

	ctx := context.Background()
	slow := e.ResolveAsync(ctx, Request{Operation: "slow"})

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("slow resolution never reached its handler")
	}

	fast, err := e.Resolve(ctx, Request{Operation: "fast"})
	require.NoError(t, err)
	assert.Equal(t, "A", fast, "later resolution overtakes the pending one")

	gate.Settle(NoValue())
	v, err := slow.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", v)
}

func TestResolve_EventsCarrySeqAndArgs(t *testing.T) {
	_, e, obs := newScopes(t)
	e.QueueResult("x")

	_, err := e.Resolve(context.Background(), Request{Operation: "findByPk", Args: []any{7}})
	require.NoError(t, err)

	require.Len(t, obs.resolutions, 1)
	got := obs.resolutions[0]
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, "users", got.Scope)
	assert.Equal(t, "findByPk", got.Operation)
	assert.Equal(t, []any{7}, got.Args)
	assert.Equal(t, "x", got.Value)
	assert.NoError(t, got.Err)
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	e := New(WithObserver(Observers(a, nil, b)), WithLogger(quietLogger()))

	e.QueueResult(1)
	_, _ = e.Resolve(context.Background(), Request{Operation: "op"})
	e.ClearQueue()

	assert.Len(t, a.resolutions, 1)
	assert.Len(t, b.resolutions, 1)
	assert.Len(t, a.clears(), 1)
	assert.Len(t, b.clears(), 1)
}
