// Package engine runs the token ledger behind a single-writer message loop.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every message is applied to the ledger from one goroutine. Callers hand
// messages to Submit from any goroutine; Run dequeues them one at a time.
// This gives:
// - A total order over all messages (the seq number)
// - No locking inside the ledger
// - A journal that replays to the same state
//
// Message Processing Flow:
// 1. Submit enqueues the message on an unbounded FIFO queue
// 2. Run dequeues it and stamps it with Clock.Next()
// 3. ledger.Handle produces an ir.Result (reply, notices or error)
// 4. Journal.AppendResult persists message, result and notices in one transaction
// 5. The result is handed back to the waiting Submit caller
//
// A message that has been dequeued always runs to completion. Cancelling the
// Submit context only stops the caller from waiting.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Messages are ordered by a monotonic seq counter, never by wall-clock time.
// On restart the clock resumes at Journal.LastSeq().
//
// Deterministic Replay:
// Replay rebuilds the ledger from the stored genesis and the journaled
// messages in seq order, re-deriving every result and comparing it with the
// journaled one by ir.ResultHash.
package engine
