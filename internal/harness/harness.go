package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ormock/internal/compiler"
	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/dberr"
	"github.com/roach88/ormock/internal/engine"
	"github.com/roach88/ormock/internal/mockdb"
	"github.com/roach88/ormock/internal/model"
	"github.com/roach88/ormock/internal/record"
	"github.com/roach88/ormock/internal/testutil"
)

// CallQuery is the flow call for a raw query on the database scope.
const CallQuery = "query"

// Option configures a harness run.
type Option func(*runConfig)

type runConfig struct {
	observer engine.Observer
	logger   *slog.Logger
	clock    *engine.Clock
}

// WithObserver adds an observer that sees every event the trace sees, e.g. a
// journal recorder.
func WithObserver(obs engine.Observer) Option {
	return func(c *runConfig) { c.observer = obs }
}

// WithLogger sets the logger handed to the mock database. Logs are discarded
// by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// WithClock replaces the seq clock, e.g. to continue numbering after an
// earlier journal run.
func WithClock(clock *engine.Clock) Option {
	return func(c *runConfig) { c.clock = clock }
}

// Harness is the test execution engine.
// It runs scenarios against a mock database with deterministic ids, clock and
// UUIDs.
type Harness struct {
	db     *mockdb.DB
	models map[string]*model.Model
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh mock database for isolation.
//
// Execution flow:
// 1. Create the mock database with deterministic helpers
// 2. Load, validate and define the models
// 3. Queue setup outcomes and register handlers
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions over the trace and final queues
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	trace := &traceRecorder{}
	dbOpts := []mockdb.Option{
		mockdb.WithLogger(cfg.logger),
		mockdb.WithObserver(engine.Observers(trace, cfg.observer)),
		mockdb.WithIDSource(testutil.NewCounter()),
		mockdb.WithNow(testutil.FixedNow(testutil.Epoch)),
		mockdb.WithUUIDGenerator(&datatype.SequenceGenerator{}),
	}
	if cfg.clock != nil {
		dbOpts = append(dbOpts, mockdb.WithClock(cfg.clock))
	}
	if v := scenario.Options.AutoQueryFallback; v != nil {
		dbOpts = append(dbOpts, mockdb.WithAutoQueryFallback(*v))
	}
	if v := scenario.Options.StopPropagation; v != nil {
		dbOpts = append(dbOpts, mockdb.WithStopPropagation(*v))
	}

	h := &Harness{
		db:     mockdb.New(dbOpts...),
		logger: cfg.logger,
	}

	if err := h.loadModels(scenario.Models); err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.registerHandlers(scenario.Handlers); err != nil {
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.Trace = trace.Events()

	actx := &AssertionContext{Queues: h.queueLength}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// loadModels compiles every models directory and defines the result on the
// database. Validation errors are reported together.
func (h *Harness) loadModels(dirs []string) error {
	var specs []compiler.ModelSpec
	for _, dir := range dirs {
		inst, err := compiler.LoadDir(dir)
		if err != nil {
			return err
		}
		compiled, errs := compiler.CompileModels(inst.Value, true)
		if len(errs) > 0 {
			return errs[0]
		}
		specs = append(specs, compiled...)
	}

	if errs := compiler.Validate(specs); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid models:\n  %s", strings.Join(msgs, "\n  "))
	}

	models, err := compiler.Define(h.db, specs)
	if err != nil {
		return err
	}
	h.models = models
	h.logger.Debug("models defined", "count", len(models))
	return nil
}

// scope returns the engine for a target name.
func (h *Harness) scope(target string) (*engine.Engine, error) {
	if target == DBTarget {
		return h.db.QueryInterface(), nil
	}
	if m, ok := h.models[target]; ok {
		return m.QueryInterface(), nil
	}
	return nil, fmt.Errorf("unknown target %q", target)
}

func (h *Harness) queueLength(target string) (int, error) {
	eng, err := h.scope(target)
	if err != nil {
		return 0, err
	}
	return eng.QueueLen(), nil
}

// executeSetup queues all setup outcomes in order.
func (h *Harness) executeSetup(setup []QueueStep) error {
	for i, step := range setup {
		eng, err := h.scope(step.Target)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}

		var opts []engine.QueueOption
		if step.WasCreated != nil {
			opts = append(opts, engine.WasCreated(*step.WasCreated))
		}
		if step.AffectedRows != nil {
			opts = append(opts, engine.WithAffectedRows(step.AffectedRows))
		}
		if step.ConvertNonErrors != nil && !*step.ConvertNonErrors {
			opts = append(opts, engine.KeepNonErrors())
		}

		if step.hasResult {
			eng.QueueResult(step.Result, opts...)
			continue
		}
		failure, err := failureValue(step.Failure, step.ErrorKind)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		eng.QueueFailure(failure, opts...)
	}
	return nil
}

// registerHandlers installs one static handler per step.
func (h *Harness) registerHandlers(handlers []HandlerStep) error {
	for i, step := range handlers {
		eng, err := h.scope(step.Target)
		if err != nil {
			return fmt.Errorf("handlers[%d]: %w", i, err)
		}

		res := engine.Value(step.Result)
		if step.hasFailure {
			failure, err := failureValue(step.Failure, step.ErrorKind)
			if err != nil {
				return fmt.Errorf("handlers[%d]: %w", i, err)
			}
			res = engine.Failure(dberr.Wrap(failure))
		}

		operation := step.Operation
		eng.UseHandler(func(_ context.Context, op string, _ []any) engine.Result {
			if operation != "" && op != operation {
				return engine.NoValue()
			}
			return res
		})
	}
	return nil
}

// failureValue builds the queued failure. With a kind it is a typed error whose
// message is the failure text; without one the raw value is queued.
func failureValue(failure any, kind string) (any, error) {
	if kind == "" {
		return failure, nil
	}
	k, ok := dberr.ParseKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown error kind %q", kind)
	}
	msg := ""
	if failure != nil {
		msg = fmt.Sprint(failure)
	}
	return dberr.New(k, msg), nil
}

// executeFlow runs the flow steps in order. A step's error only fails the
// scenario when the step has an expect clause that does not match.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		out, err := h.call(ctx, step)
		if err != nil {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Call, err)
		}
		if step.Expect == nil {
			continue
		}
		for _, msg := range checkExpect(step.Expect, out) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Call, msg))
		}
	}
	return nil
}

// callOutcome is what one flow call produced, reduced for comparison.
type callOutcome struct {
	value   any
	created *bool
	count   *int
	err     error
}

// call dispatches one flow step. The returned error is a harness failure
// (bad call or arguments); resolution errors land in callOutcome.err.
func (h *Harness) call(ctx context.Context, step FlowStep) (callOutcome, error) {
	if step.Call == CallQuery {
		if len(step.Args) == 0 {
			return callOutcome{}, fmt.Errorf("query requires a SQL string argument")
		}
		sql, ok := step.Args[0].(string)
		if !ok {
			return callOutcome{}, fmt.Errorf("query SQL must be a string, got %T", step.Args[0])
		}
		v, err := h.db.Query(ctx, sql, step.Args[1:]...)
		return callOutcome{value: view(v), err: err}, nil
	}

	name, op, _ := strings.Cut(step.Call, ".")
	m, ok := h.models[name]
	if !ok {
		return callOutcome{}, fmt.Errorf("unknown model %q", name)
	}
	args := argList(step.Args)

	switch op {
	case model.OpFindAll:
		q, err := queryArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		rows, err := m.FindAll(ctx, q)
		return listOutcome(rows, err), nil

	case model.OpFindAndCountAll:
		q, err := queryArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		res, err := m.FindAndCountAll(ctx, q)
		if err != nil {
			return callOutcome{err: err}, nil
		}
		return callOutcome{
			value: map[string]any{"count": res.Count, "rows": view(res.Rows)},
			count: &res.Count,
		}, nil

	case model.OpFindOne:
		q, err := queryArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		r, err := m.FindOne(ctx, q)
		return recordOutcome(r, err), nil

	case model.OpFindByPk, "findById":
		r, err := m.FindByPk(ctx, args[0])
		return recordOutcome(r, err), nil

	case model.OpCreate:
		values, err := mapArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		r, err := m.Create(ctx, values)
		return recordOutcome(r, err), nil

	case model.OpBulkCreate:
		set, err := mapListArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		rows, err := m.BulkCreate(ctx, set)
		return listOutcome(rows, err), nil

	case model.OpFindOrCreate:
		q, err := queryArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		r, created, err := m.FindOrCreate(ctx, q)
		if err != nil {
			return callOutcome{err: err}, nil
		}
		return callOutcome{value: view(r), created: &created}, nil

	case model.OpUpsert, "insertOrUpdate":
		values, err := mapArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		created, err := m.Upsert(ctx, values)
		if err != nil {
			return callOutcome{err: err}, nil
		}
		return callOutcome{value: created, created: &created}, nil

	case model.OpUpdate:
		values, err := mapArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		q, err := queryArg(argAt(args, 1))
		if err != nil {
			return callOutcome{}, err
		}
		n, rows, err := m.Update(ctx, values, q)
		if err != nil {
			return callOutcome{err: err}, nil
		}
		return callOutcome{
			value: map[string]any{"count": n, "rows": view(rows)},
			count: &n,
		}, nil

	case model.OpDestroy:
		q, err := queryArg(args[0])
		if err != nil {
			return callOutcome{}, err
		}
		n, err := m.Destroy(ctx, q)
		if err != nil {
			return callOutcome{err: err}, nil
		}
		return callOutcome{value: n, count: &n}, nil

	case model.OpMax, model.OpMin, model.OpSum:
		field, ok := args[0].(string)
		if !ok {
			return callOutcome{}, fmt.Errorf("%s requires a field name", op)
		}
		var v any
		var err error
		switch op {
		case model.OpMax:
			v, err = m.Max(ctx, field)
		case model.OpMin:
			v, err = m.Min(ctx, field)
		default:
			v, err = m.Sum(ctx, field)
		}
		return callOutcome{value: view(v), err: err}, nil

	default:
		return callOutcome{}, fmt.Errorf("unsupported operation %q", op)
	}
}

func recordOutcome(r *record.Record, err error) callOutcome {
	if err != nil {
		return callOutcome{err: err}
	}
	return callOutcome{value: view(r)}
}

func listOutcome(rows []*record.Record, err error) callOutcome {
	if err != nil {
		return callOutcome{err: err}
	}
	n := len(rows)
	return callOutcome{value: view(rows), count: &n}
}

// view reduces a call result to what expectations compare against: records
// become their attribute maps.
func view(v any) any {
	switch x := v.(type) {
	case *record.Record:
		if x == nil {
			return nil
		}
		return x.GetAll()
	case []*record.Record:
		out := make([]any, len(x))
		for i, r := range x {
			out[i] = view(r)
		}
		return out
	case engine.Created:
		return map[string]any{"value": view(x.Value), "created": x.Created}
	case engine.Affected:
		return map[string]any{"value": view(x.Value), "rows": view(x.Rows)}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = view(e)
		}
		return out
	default:
		return v
	}
}

// argList pads args so operations can index their first argument.
func argList(args []any) []any {
	if len(args) == 0 {
		return []any{nil}
	}
	return args
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// queryArg decodes a finder options map into a model.Query by re-encoding it
// through YAML, so unknown option names are rejected.
func queryArg(v any) (model.Query, error) {
	var q model.Query
	if v == nil {
		return q, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return q, fmt.Errorf("query options must be a map, got %T", v)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return q, fmt.Errorf("encoding query options: %w", err)
	}
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&q); err != nil {
		return q, fmt.Errorf("invalid query options: %w", err)
	}
	return q, nil
}

func mapArg(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("values must be a map, got %T", v)
	}
	return m, nil
}

func mapListArg(v any) ([]map[string]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("values must be a list of maps, got %T", v)
	}
	out := make([]map[string]any, len(list))
	for i, e := range list {
		m, err := mapArg(e)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}
