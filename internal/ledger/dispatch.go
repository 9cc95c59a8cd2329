package ledger

import (
	"fmt"
	"slices"

	"github.com/roach88/ao20/internal/amount"
	"github.com/roach88/ao20/internal/ir"
)

// Actions accepted by Handle.
const (
	ActionInfo              = "Info"
	ActionTotalSupply       = "TotalSupply"
	ActionBalance           = "Balance"
	ActionBalances          = "Balances"
	ActionAllowance         = "Allowance"
	ActionAllowances        = "Allowances"
	ActionTransfer          = "Transfer"
	ActionApprove           = "Approve"
	ActionTransferFrom      = "TransferFrom"
	ActionMint              = "Mint"
	ActionBurn              = "Burn"
	ActionBurnFrom          = "BurnFrom"
	ActionPause             = "Pause"
	ActionRenounceOwnership = "RenounceOwnership"
	ActionTransferOwnership = "TransferOwnership"
)

// outcome is what a successful handler produces. Read handlers set reply;
// mutation handlers set notices.
type outcome struct {
	reply   *ir.Outbound
	notices []ir.Outbound
}

type handlerFunc func(l *Ledger, msg ir.Message) (outcome, error)

// handlers is the dispatch table. It is read-only after init.
var handlers = map[string]handlerFunc{
	ActionInfo:              (*Ledger).handleInfo,
	ActionTotalSupply:       (*Ledger).handleTotalSupply,
	ActionBalance:           (*Ledger).handleBalance,
	ActionBalances:          (*Ledger).handleBalances,
	ActionAllowance:         (*Ledger).handleAllowance,
	ActionAllowances:        (*Ledger).handleAllowances,
	ActionTransfer:          (*Ledger).handleTransfer,
	ActionApprove:           (*Ledger).handleApprove,
	ActionTransferFrom:      (*Ledger).handleTransferFrom,
	ActionMint:              (*Ledger).handleMint,
	ActionBurn:              (*Ledger).handleBurn,
	ActionBurnFrom:          (*Ledger).handleBurnFrom,
	ActionPause:             (*Ledger).handlePause,
	ActionRenounceOwnership: (*Ledger).handleRenounceOwnership,
	ActionTransferOwnership: (*Ledger).handleTransferOwnership,
}

// Actions returns every dispatchable action name, sorted.
func Actions() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the handler for msg.Action and returns its outcome or a
// typed *Error.
func (l *Ledger) Dispatch(msg ir.Message) (reply *ir.Outbound, notices []ir.Outbound, err error) {
	if msg.Action == "" {
		return nil, nil, missing(TagAction)
	}
	h, ok := handlers[msg.Action]
	if !ok {
		return nil, nil, invalid(TagAction, fmt.Sprintf(msgUnknownActionFormat, msg.Action))
	}
	if err := checkAddresses(msg); err != nil {
		return nil, nil, err
	}
	out, err := h(l, msg)
	if err != nil {
		return nil, nil, err
	}
	return out.reply, out.notices, nil
}

// Handle applies msg and packages the outcome as an ir.Result.
//
// Handle never fails: a rejection is reported in Result.Error with no
// reply and no notices, and the ledger is left unchanged.
func (l *Ledger) Handle(msg ir.Message) ir.Result {
	res := ir.Result{
		MessageID: msg.ID,
		Seq:       msg.Seq,
		From:      msg.From,
		Action:    msg.Action,
		Notices:   []ir.Outbound{},
	}

	reply, notices, err := l.Dispatch(msg)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Reply = reply
	if notices != nil {
		res.Notices = notices
	}
	return res
}

// positiveQuantity reads the Quantity tag and requires it to be > 0.
// Unparseable input gets the same message as zero or negative input.
func positiveQuantity(msg ir.Message) (amount.Amount, error) {
	raw, ok := msg.Tag(TagQuantity)
	if !ok {
		return amount.Zero, missing(TagQuantity)
	}
	q, err := amount.Parse(raw)
	if err != nil || q.Sign() <= 0 {
		return amount.Zero, invalid(TagQuantity, MsgQuantityPositive)
	}
	return q, nil
}

// nonNegativeQuantity reads the Quantity tag and requires it to be >= 0.
func nonNegativeQuantity(msg ir.Message) (amount.Amount, error) {
	raw, ok := msg.Tag(TagQuantity)
	if !ok {
		return amount.Zero, missing(TagQuantity)
	}
	q, err := amount.Parse(raw)
	if err != nil || q.Sign() < 0 {
		return amount.Zero, invalid(TagQuantity, MsgQuantityNonNegative)
	}
	return q, nil
}

// requiredTag reads a tag that must be present and non-empty.
func requiredTag(msg ir.Message, name string) (string, error) {
	v, ok := msg.Tag(name)
	if !ok {
		return "", missing(name)
	}
	return v, nil
}

func (l *Ledger) requireOwner(caller string) error {
	if !l.isOwner(caller) {
		return errNotOwner
	}
	return nil
}
