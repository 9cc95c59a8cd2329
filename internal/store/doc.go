// Package store provides the SQLite-backed journal for the ledger engine.
//
// The journal is append-only:
//   - Genesis: the singleton initial configuration
//   - Messages: every accepted request, stamped with its seq
//   - Results: the outcome of each message (reply, error, result hash)
//   - Notices: the outbound log, one row per emitted notice
//
// # Critical Patterns
//
// Logical Time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//
// Deterministic Query Results:
//   - Queries order by seq ASC, then id COLLATE BINARY (or notice index)
//   - Reads return empty slices, never nil
//
// Atomic Append:
//   - A message, its result and its notices are written in one transaction
//   - Re-appending an already journaled message ID is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Tags and replies are stored as RFC 8785 canonical JSON (internal/ir), so
// a journaled result hashes identically after a round trip.
package store
