// Package ledger implements the token ledger state machine.
//
// A Ledger holds balances, allowances, supply accounting and the
// owner/pause controls. It is mutated only through Handle, which dispatches
// one ir.Message by its Action to a handler and returns the ir.Result:
// a reply for read actions, an ordered notice list for mutations, or an
// error string.
//
// Handlers are all-or-nothing. Every precondition is checked before the
// first write, so a failed message leaves the ledger untouched.
//
// Thread-safety: a Ledger is NOT safe for concurrent use. The engine's
// single-writer loop is its only caller in production.
package ledger
