// Package store provides SQLite-backed state for the reference admin service.
//
// It holds three tables:
//   - snapshots: one row per (symbol, asof_date, focus, preset, role)
//   - outcomes: at most one resolved outcome per snapshot
//   - proposals: policy history entries in insertion order
//
// # Idempotency
//
// Snapshot and outcome writes use INSERT ... ON CONFLICT DO NOTHING keyed on
// the snapshot identity, so writing the same day twice reports every row as
// skipped instead of failing.
//
// # Deterministic Reads
//
// Every list query orders by the full snapshot key (or seq for proposals)
// with COLLATE BINARY, so repeated runs see identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (file databases)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Outcomes must reference an existing snapshot
//
// Digest and weight columns hold canonical JSON (internal/canonical).
package store
