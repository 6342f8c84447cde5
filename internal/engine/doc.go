// Package engine implements the query-result resolution engine behind every
// mocked database call.
//
// Each Engine is one mock scope: the root database owns one, and every model
// defined on it owns a child whose parent is the root. A scope holds an ordered
// queue of canned outcomes and a list of handler functions.
//
// RESOLUTION ORDER:
//
// Resolve walks a fixed chain and stops at the first strategy that produces a
// defined value or a failure:
//
//  1. Handlers, in registration order. NoValue passes to the next handler.
//  2. The outcome queue, strictly FIFO across all operation names.
//  3. The parent scope, unless the scope or the request stops propagation.
//  4. The request fallback, else the scope fallback.
//  5. EmptyResolution.
//
// Handler results are an explicit three-way Result (Value, NoValue, Failure);
// a Pending result is awaited before the chain moves on, so each strategy is fully
// settled before the next one runs.
//
// CONCURRENCY:
//
// The queue is dequeued under the scope mutex at the moment a resolution reaches
// step 2, never earlier. Two overlapping resolutions therefore take outcomes in
// the order they reach the queue; a resolution suspended in a pending handler can
// be overtaken by one issued later.
package engine
