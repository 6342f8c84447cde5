// Package harness runs YAML test scenarios against the mock database.
//
// A scenario loads CUE model definitions, queues outcomes, registers
// handlers, makes a flow of calls and asserts over the resulting trace of
// resolutions and clears.
//
// # Scenario Format
//
//	name: find_or_create_created
//	description: "Queued findOrCreate reports the created flag"
//	models:
//	  - ../models
//	options:
//	  auto_query_fallback: false
//	setup:
//	  - target: user
//	    result: { name: ada }
//	    was_created: true
//	  - target: db
//	    failure: "duplicate"
//	    error_kind: unique_constraint
//	handlers:
//	  - target: post
//	    operation: findAll
//	    result: []
//	flow:
//	  - call: user.findOrCreate
//	    args: [{ where: { name: ada } }]
//	    expect:
//	      created: true
//	      value: { name: ada }
//	  - call: query
//	    args: ["SELECT 1"]
//	    expect:
//	      error: unique_constraint
//	assertions:
//	  - type: strategy_count
//	    strategy: queue
//	    count: 2
//	  - type: queue_length
//	    target: user
//	    count: 0
//
// # Assertion Types
//
//   - strategy_count: exactly N resolutions settled by a strategy
//   - strategy_order: strategies appear in order, not necessarily adjacent
//   - resolution_count: exactly N resolutions, optionally of one operation
//   - queue_length: a scope's queue holds exactly N outcomes after the flow
//
// Trace assertions accept scope to look at one model or at "db".
//
// # Deterministic Testing
//
// Every run uses a counter for primary keys, a fixed clock at testutil.Epoch
// and sequential UUIDs, so traces are identical across runs and can be
// compared against golden files.
package harness
