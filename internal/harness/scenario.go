package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ormock/internal/dberr"
	"github.com/roach88/ormock/internal/engine"
)

// DBTarget names the root database scope in setup, handler and assertion
// targets. Any other target is a model name.
const DBTarget = "db"

// Scenario defines a test scenario: models, canned results, a flow of calls
// and assertions over the resolution trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models lists CUE package directories holding model definitions.
	// Paths are relative to the scenario file location.
	Models []string `yaml:"models"`

	// Options configures the mock database.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Setup queues outcomes before the flow runs, in order.
	Setup []QueueStep `yaml:"setup,omitempty"`

	// Handlers registers static handlers before the flow runs.
	Handlers []HandlerStep `yaml:"handlers,omitempty"`

	// Flow contains the calls to make, each optionally checked.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and the final queue state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioOptions mirrors the database options. Unset fields keep the
// database defaults.
type ScenarioOptions struct {
	AutoQueryFallback *bool `yaml:"auto_query_fallback,omitempty"`
	StopPropagation   *bool `yaml:"stop_propagation,omitempty"`
}

// QueueStep queues one outcome on a scope.
type QueueStep struct {
	// Target is a model name or "db".
	Target string `yaml:"target"`

	// Result is queued as a success. Exactly one of Result and Failure is set.
	Result any `yaml:"result,omitempty"`

	// Failure is queued as a failure.
	Failure any `yaml:"failure,omitempty"`

	// ErrorKind turns Failure into an error of that kind, with Failure as the
	// message when it is a string (e.g. "unique_constraint").
	ErrorKind string `yaml:"error_kind,omitempty"`

	WasCreated *bool `yaml:"was_created,omitempty"`

	AffectedRows any `yaml:"affected_rows,omitempty"`

	// ConvertNonErrors defaults to true; false keeps non-error failures as
	// rejected values.
	ConvertNonErrors *bool `yaml:"convert_non_errors,omitempty"`

	hasResult  bool
	hasFailure bool
}

// UnmarshalYAML records which of result and failure were present, so a null
// result can still be queued.
func (q *QueueStep) UnmarshalYAML(node *yaml.Node) error {
	type plain QueueStep
	if err := node.Decode((*plain)(q)); err != nil {
		return err
	}
	keys, err := mappingKeys(node, queueStepFields)
	if err != nil {
		return err
	}
	q.hasResult, q.hasFailure = keys["result"], keys["failure"]
	return nil
}

// HandlerStep registers a static handler on a scope.
type HandlerStep struct {
	// Target is a model name or "db".
	Target string `yaml:"target"`

	// Operation limits the handler to one operation. Empty matches all.
	Operation string `yaml:"operation,omitempty"`

	Result    any    `yaml:"result,omitempty"`
	Failure   any    `yaml:"failure,omitempty"`
	ErrorKind string `yaml:"error_kind,omitempty"`

	hasResult  bool
	hasFailure bool
}

// UnmarshalYAML records which of result and failure were present.
func (h *HandlerStep) UnmarshalYAML(node *yaml.Node) error {
	type plain HandlerStep
	if err := node.Decode((*plain)(h)); err != nil {
		return err
	}
	keys, err := mappingKeys(node, handlerStepFields)
	if err != nil {
		return err
	}
	h.hasResult, h.hasFailure = keys["result"], keys["failure"]
	return nil
}

// FlowStep is one call in the main flow.
type FlowStep struct {
	// Call is "<model>.<operation>" or "query".
	Call string `yaml:"call"`

	// Args are the call's positional arguments.
	Args []any `yaml:"args,omitempty"`

	// Expect checks the call's outcome. If nil, failures are recorded in the
	// trace but do not fail the scenario.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected call behavior.
type ExpectClause struct {
	// Error is the expected error kind, as a key ("empty_query_queue") or an
	// ORM name ("SequelizeEmptyQueryQueueError"). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Created is the expected created flag (findOrCreate, upsert).
	Created *bool `yaml:"created,omitempty"`

	// Count is the expected count (findAll length, findAndCountAll count,
	// update and destroy affected rows).
	Count *int `yaml:"count,omitempty"`

	// Value is matched against the result as a subset: maps need only the
	// listed keys, lists must match in length.
	Value any `yaml:"value,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "strategy_count": resolutions settled by Strategy, exactly Count times
	// - "strategy_order": Strategies appear in this order (not necessarily adjacent)
	// - "resolution_count": resolutions, exactly Count times
	// - "queue_length": Target's queue holds exactly Count outcomes
	Type string `yaml:"type"`

	// Scope limits trace assertions to one scope (model name or "db").
	Scope string `yaml:"scope,omitempty"`

	// Operation limits resolution_count to one operation.
	Operation string `yaml:"operation,omitempty"`

	Strategy   string   `yaml:"strategy,omitempty"`
	Strategies []string `yaml:"strategies,omitempty"`
	Target     string   `yaml:"target,omitempty"`
	Count      int      `yaml:"count"`
}

// Assertion type constants.
const (
	AssertStrategyCount   = "strategy_count"
	AssertStrategyOrder   = "strategy_order"
	AssertResolutionCount = "resolution_count"
	AssertQueueLength     = "queue_length"
)

var strategies = []engine.Strategy{
	engine.StrategyHandler,
	engine.StrategyQueue,
	engine.StrategyParent,
	engine.StrategyFallback,
	engine.StrategyExhausted,
}

// LoadScenario reads and parses a scenario YAML file. Model directories are
// resolved relative to the file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, dir := range scenario.Models {
		if !filepath.IsAbs(dir) {
			scenario.Models[i] = filepath.Join(base, dir)
		}
	}
	for _, dir := range scenario.Models {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: models directory not found: %s", dir)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Target == "" {
			return fmt.Errorf("setup[%d]: target is required", i)
		}
		if step.hasResult == step.hasFailure {
			return fmt.Errorf("setup[%d]: exactly one of result and failure is required", i)
		}
		if err := validateErrorKind(step.ErrorKind, step.hasFailure); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, h := range s.Handlers {
		if h.Target == "" {
			return fmt.Errorf("handlers[%d]: target is required", i)
		}
		if h.hasResult == h.hasFailure {
			return fmt.Errorf("handlers[%d]: exactly one of result and failure is required", i)
		}
		if err := validateErrorKind(h.ErrorKind, h.hasFailure); err != nil {
			return fmt.Errorf("handlers[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if step.Call == "" {
			return fmt.Errorf("flow[%d]: call is required", i)
		}
		if step.Call != CallQuery && !strings.Contains(step.Call, ".") {
			return fmt.Errorf("flow[%d]: call must be <model>.<operation> or %q, got %q", i, CallQuery, step.Call)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if _, ok := dberr.ParseKind(step.Expect.Error); !ok {
				return fmt.Errorf("flow[%d].expect: unknown error kind %q", i, step.Expect.Error)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateErrorKind(kind string, hasFailure bool) error {
	if kind == "" {
		return nil
	}
	if !hasFailure {
		return fmt.Errorf("error_kind requires failure")
	}
	if _, ok := dberr.ParseKind(kind); !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertStrategyCount:
		if !validStrategy(a.Strategy) {
			return fmt.Errorf("assertions[%d]: unknown strategy %q for strategy_count", index, a.Strategy)
		}
	case AssertStrategyOrder:
		if len(a.Strategies) == 0 {
			return fmt.Errorf("assertions[%d]: strategies list is required for strategy_order", index)
		}
		for _, s := range a.Strategies {
			if !validStrategy(s) {
				return fmt.Errorf("assertions[%d]: unknown strategy %q for strategy_order", index, s)
			}
		}
	case AssertResolutionCount:
	case AssertQueueLength:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for queue_length", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validStrategy(s string) bool {
	for _, st := range strategies {
		if string(st) == s {
			return true
		}
	}
	return false
}

var (
	queueStepFields   = []string{"target", "result", "failure", "error_kind", "was_created", "affected_rows", "convert_non_errors"}
	handlerStepFields = []string{"target", "operation", "result", "failure", "error_kind"}
)

// mappingKeys returns the keys present in a mapping node. Node.Decode does not
// inherit the decoder's KnownFields setting, so unknown keys are rejected here.
func mappingKeys(node *yaml.Node, known []string) (map[string]bool, error) {
	keys := make(map[string]bool)
	if node.Kind != yaml.MappingNode {
		return keys, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(known, key.Value) {
			return nil, fmt.Errorf("line %d: field %s not found", key.Line, key.Value)
		}
		keys[key.Value] = true
	}
	return keys, nil
}
