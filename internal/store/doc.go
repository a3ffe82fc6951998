// Package store provides SQLite-backed durable storage for the
// medication schedule tracker.
//
// Two tables are persisted:
//   - prescription_drugs: mutable prescription records, including the
//     two derived columns isActive and hasReceivedToday
//   - time_terms: the static period-of-day lookup table, seeded with
//     nine fixed rows at first creation and read-only afterward
//
// # Critical Patterns
//
// Single writer
//   - The connection pool is capped at one connection, so every
//     mutation is serialized at the store regardless of how many
//     goroutines submit work above it.
//
// Deterministic presentation order
//   - The active list is always ordered by (term sortOrder ASC,
//     uid ASC). Every read path that renders the active set uses the
//     same query, so the live view and export agree byte for byte.
//
// Derived flags are batch-maintained
//   - isActive and hasReceivedToday are refreshed by a single atomic
//     UPDATE (RecomputeForToday). Readers see either the pre- or
//     post-recompute snapshot, never a mix of generations.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: timeTermId is delete-restrict
package store
