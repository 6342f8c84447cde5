package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/ormock/internal/canon"
	"github.com/roach88/ormock/internal/dberr"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventResolution:
				fmt.Fprintf(&buf, "  [%d] %s.%s -> %s\n", event.Seq, event.Scope, event.Operation, event.Strategy)
			case EventClear:
				fmt.Fprintf(&buf, "  [%d] %s cleared %s\n", event.Seq, event.Scope, event.Target)
			}
		}
	}

	return buf.String()
}

// resolutions returns the resolution events, limited to scope when set.
func resolutions(trace []TraceEvent, scope string) []TraceEvent {
	var out []TraceEvent
	for _, event := range trace {
		if event.Type != EventResolution {
			continue
		}
		if scope != "" && event.Scope != scope {
			continue
		}
		out = append(out, event)
	}
	return out
}

// assertStrategyCount checks that exactly Count resolutions settled by Strategy.
func assertStrategyCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range resolutions(trace, assertion.Scope) {
		if event.Strategy == assertion.Strategy {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertStrategyCount,
			Expected: fmt.Sprintf("%d resolutions by %s%s", assertion.Count, assertion.Strategy, scopeSuffix(assertion.Scope)),
			Actual:   fmt.Sprintf("%d resolutions", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStrategyOrder checks that the strategies appear in order. Entries don't
// need to be adjacent (intervening resolutions are allowed).
func assertStrategyOrder(trace []TraceEvent, assertion Assertion) error {
	want := assertion.Strategies
	next := 0
	var seen []string
	for _, event := range resolutions(trace, assertion.Scope) {
		seen = append(seen, event.Strategy)
		if next < len(want) && event.Strategy == want[next] {
			next++
		}
	}

	if next < len(want) {
		return &AssertionError{
			Type:     AssertStrategyOrder,
			Expected: fmt.Sprintf("strategies in order %v%s", want, scopeSuffix(assertion.Scope)),
			Actual:   fmt.Sprintf("%v (matched %d of %d)", seen, next, len(want)),
			Trace:    trace,
		}
	}
	return nil
}

// assertResolutionCount checks the number of resolutions, optionally for one
// operation.
func assertResolutionCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range resolutions(trace, assertion.Scope) {
		if assertion.Operation == "" || event.Operation == assertion.Operation {
			count++
		}
	}

	if count != assertion.Count {
		what := "resolutions"
		if assertion.Operation != "" {
			what = assertion.Operation + " resolutions"
		}
		return &AssertionError{
			Type:     AssertResolutionCount,
			Expected: fmt.Sprintf("%d %s%s", assertion.Count, what, scopeSuffix(assertion.Scope)),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertQueueLength checks how many outcomes remain queued on a scope.
func assertQueueLength(actx *AssertionContext, assertion Assertion) error {
	n, err := actx.Queues(assertion.Target)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertQueueLength, err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertQueueLength,
			Expected: fmt.Sprintf("%d queued on %s", assertion.Count, assertion.Target),
			Actual:   fmt.Sprintf("%d queued", n),
		}
	}
	return nil
}

func scopeSuffix(scope string) string {
	if scope == "" {
		return ""
	}
	return " on " + scope
}

// checkExpect compares one call outcome with its expect clause and returns a
// message per mismatch.
func checkExpect(expect *ExpectClause, out callOutcome) []string {
	var msgs []string

	if expect.Error != "" {
		kind, _ := dberr.ParseKind(expect.Error)
		switch {
		case out.err == nil:
			msgs = append(msgs, fmt.Sprintf("expected error %s, got success", dberr.Name(kind)))
		case !dberr.IsKind(out.err, kind):
			msgs = append(msgs, fmt.Sprintf("expected error %s, got %s: %v", dberr.Name(kind), errorName(out.err), out.err))
		}
		return msgs
	}

	if out.err != nil {
		return append(msgs, fmt.Sprintf("unexpected error %s: %v", errorName(out.err), out.err))
	}

	if expect.Created != nil {
		switch {
		case out.created == nil:
			msgs = append(msgs, "created flag not reported by this call")
		case *out.created != *expect.Created:
			msgs = append(msgs, fmt.Sprintf("expected created=%t, got %t", *expect.Created, *out.created))
		}
	}

	if expect.Count != nil {
		switch {
		case out.count == nil:
			msgs = append(msgs, "count not reported by this call")
		case *out.count != *expect.Count:
			msgs = append(msgs, fmt.Sprintf("expected count %d, got %d", *expect.Count, *out.count))
		}
	}

	if expect.Value != nil {
		want, err := canon.Plain(expect.Value)
		if err != nil {
			return append(msgs, fmt.Sprintf("expected value: %v", err))
		}
		got, err := canon.Plain(out.value)
		if err != nil {
			return append(msgs, fmt.Sprintf("result value: %v", err))
		}
		if !matchValue(got, want) {
			msgs = append(msgs, fmt.Sprintf("value mismatch (-want +got):\n%s", cmp.Diff(want, got)))
		}
	}

	return msgs
}

// matchValue reports whether actual contains expected. Maps match when every
// expected key matches (extra keys in actual are OK); lists match element-wise
// and must have the same length; anything else must be equal.
func matchValue(actual, expected any) bool {
	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, expectedVal := range want {
			actualVal, exists := got[key]
			if !exists {
				return false // Required key missing
			}
			if !matchValue(actualVal, expectedVal) {
				return false
			}
		}
		return true
	case []any:
		got, ok := actual.([]any)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !matchValue(got[i], want[i]) {
				return false
			}
		}
		return true
	default:
		return cmp.Equal(actual, expected)
	}
}

// AssertionContext provides the final scope state for assertions.
type AssertionContext struct {
	// Queues reports the queue length of a target scope.
	Queues func(target string) (int, error)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides queue lengths for queue_length assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStrategyCount:
			err = assertStrategyCount(result.Trace, assertion)
		case AssertStrategyOrder:
			err = assertStrategyOrder(result.Trace, assertion)
		case AssertResolutionCount:
			err = assertResolutionCount(result.Trace, assertion)
		case AssertQueueLength:
			if actx == nil || actx.Queues == nil {
				err = fmt.Errorf("assertion[%d]: queue_length requires scope context", i)
			} else {
				err = assertQueueLength(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
