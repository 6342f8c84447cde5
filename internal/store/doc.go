// Package store is an SQLite journal of engine events, used by the ormock CLI to
// keep and inspect the resolution trace of scenario runs.
//
// The journal is append-only:
//   - runs: one row per scenario run, keyed by a UUIDv7
//   - resolutions: one row per Resolve call (engine.Resolution)
//   - clears: one row per queue or handler clear (engine.Clear)
//
// All reads order by seq, the engine's logical clock, so traces read back in
// the order the engine stamped them regardless of wall time. Values and
// arguments are stored as canonical JSON (package canon).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
