package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure of the engine itself, as opposed to a
// ledger rejection (which is a normal ir.Result with Error set).
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// MessageID and Seq identify the affected message, when there is one.
	MessageID string
	Seq       int64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEngineStopped indicates the engine no longer accepts messages.
	ErrCodeEngineStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeJournalWrite indicates a handled message could not be journaled.
	ErrCodeJournalWrite RuntimeErrorCode = "JOURNAL_WRITE"

	// ErrCodeReplayDiverged indicates replay produced a different result than
	// the journal recorded.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.MessageID != "" {
		msg = fmt.Sprintf("%s (message=%s, seq=%d)", msg, e.MessageID, e.Seq)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsStopped returns true if the error reports a stopped engine.
// Uses errors.As to handle wrapped errors.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeEngineStopped)
}

// IsJournalError returns true if the error reports a journal write failure.
func IsJournalError(err error) bool {
	return hasCode(err, ErrCodeJournalWrite)
}

// IsDiverged returns true if the error reports a replay divergence.
func IsDiverged(err error) bool {
	return hasCode(err, ErrCodeReplayDiverged)
}

// NewStoppedError creates a RuntimeError for a submit after Stop.
func NewStoppedError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEngineStopped,
		Message: "engine is stopped",
	}
}

// NewJournalError creates a RuntimeError for a failed journal append.
func NewJournalError(messageID string, seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeJournalWrite,
		Message:   "append result to journal",
		MessageID: messageID,
		Seq:       seq,
		Err:       err,
	}
}

// NewDivergedError creates a RuntimeError listing the seqs whose replayed
// result differs from the journal.
func NewDivergedError(seqs []int64) *RuntimeError {
	first := ""
	if len(seqs) > 0 {
		first = fmt.Sprintf("%d", seqs[0])
	}
	return &RuntimeError{
		Code:    ErrCodeReplayDiverged,
		Message: fmt.Sprintf("%d message(s) replayed differently", len(seqs)),
		Details: map[string]string{
			"diverged":  fmt.Sprintf("%d", len(seqs)),
			"first_seq": first,
		},
	}
}
