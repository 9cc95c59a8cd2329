package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ledger rejections.
type ErrorCode string

const (
	// CodeFieldMissing indicates a required tag is absent or empty.
	CodeFieldMissing ErrorCode = "FIELD_MISSING"

	// CodeFieldInvalid indicates a tag is present but fails parsing or a range check.
	CodeFieldInvalid ErrorCode = "FIELD_INVALID"

	// CodeUnauthorized indicates the caller lacks the owner role.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInsufficient indicates an allowance, balance or supply is too small.
	CodeInsufficient ErrorCode = "INSUFFICIENT"

	// CodeStateGate indicates a ledger-wide flag blocks the operation.
	CodeStateGate ErrorCode = "STATE_GATE"

	// CodeNotAllowed indicates a capability flag disables the operation.
	CodeNotAllowed ErrorCode = "NOT_ALLOWED"
)

// Rejection messages. These strings are part of the wire contract and are
// surfaced to callers verbatim.
const (
	MsgNotOwner            = "Sender must be Owner!"
	MsgPaused              = "Contract is paused!"
	MsgQuantityPositive    = "Quantity must be greater than zero!"
	MsgQuantityNonNegative = "Quantity must be greater than or equal to zero!"
	MsgExceedsAllowance    = "Quantity must be less than or equal to allowance!"
	MsgBalanceNotGreater   = "Balance must be greater than quantity!"
	MsgSupplyNotGreater    = "Total Supply must be greater than quantity!"
	MsgInsufficientBalance = "Insufficient Balance!"
	MsgNewOwnerMissing     = "NewOwner Tag must exist!"
	MsgMintingNotAllowed   = "Minting is not allowed!"
	MsgBurningNotAllowed   = "Burning is not allowed!"
	MsgPausingNotAllowed   = "Pausing is not allowed!"
	MsgPausedValueInvalid  = "Paused must be true or false!"
	msgUnknownActionFormat = "Unknown action: %s"
	msgRequiredFieldFormat = "%s is required!"
	msgNotNormalizedFormat = "%s must be NFC normalized!"
)

// Error is a typed ledger rejection. Error() returns Message unchanged so
// the text reaches the caller exactly as written.
type Error struct {
	Code    ErrorCode
	Message string

	// Field names the offending tag, when there is one.
	Field string
}

func (e *Error) Error() string {
	return e.Message
}

func missing(field string) *Error {
	return &Error{
		Code:    CodeFieldMissing,
		Message: fmt.Sprintf(msgRequiredFieldFormat, field),
		Field:   field,
	}
}

func invalid(field, message string) *Error {
	return &Error{Code: CodeFieldInvalid, Message: message, Field: field}
}

func insufficient(message string) *Error {
	return &Error{Code: CodeInsufficient, Message: message}
}

var (
	errNotOwner = &Error{Code: CodeUnauthorized, Message: MsgNotOwner}
	errPaused   = &Error{Code: CodeStateGate, Message: MsgPaused}
)

func notAllowed(message string) *Error {
	return &Error{Code: CodeNotAllowed, Message: message}
}

// CodeOf returns the ErrorCode of a ledger error, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsUnauthorized reports whether err is an owner-gate rejection.
func IsUnauthorized(err error) bool {
	return CodeOf(err) == CodeUnauthorized
}

// IsInsufficient reports whether err is an allowance/balance/supply rejection.
func IsInsufficient(err error) bool {
	return CodeOf(err) == CodeInsufficient
}
