// Package ir defines the wire-level records exchanged with the ledger:
// inbound messages, outbound replies and notices, and the per-message
// result that the journal persists.
//
// This package contains type definitions, canonical JSON and content
// hashing only. All other internal packages import ir; ir imports nothing
// internal.
//
// Key constraints:
//   - NO float types anywhere - amounts travel as base-10 strings
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
