package ledger

import "github.com/roach88/ao20/internal/ir"

func (l *Ledger) handlePause(msg ir.Message) (outcome, error) {
	if err := l.requireOwner(msg.From); err != nil {
		return outcome{}, err
	}
	if !l.pausable {
		return outcome{}, notAllowed(MsgPausingNotAllowed)
	}
	raw, err := requiredTag(msg, TagPaused)
	if err != nil {
		return outcome{}, err
	}
	var paused bool
	switch raw {
	case "true":
		paused = true
	case "false":
		paused = false
	default:
		return outcome{}, invalid(TagPaused, MsgPausedValueInvalid)
	}

	l.paused = paused

	return outcome{notices: []ir.Outbound{
		pauseNotice(msg.From, l.process, paused),
	}}, nil
}

// handleRenounceOwnership clears the owner permanently. Every owner-gated
// action fails afterwards.
func (l *Ledger) handleRenounceOwnership(msg ir.Message) (outcome, error) {
	if err := l.requireOwner(msg.From); err != nil {
		return outcome{}, err
	}

	l.owner = nil

	return outcome{notices: []ir.Outbound{
		renounceOwnershipNotice(msg.From, l.process),
	}}, nil
}

func (l *Ledger) handleTransferOwnership(msg ir.Message) (outcome, error) {
	if err := l.requireOwner(msg.From); err != nil {
		return outcome{}, err
	}
	newOwner, ok := msg.Tag(TagNewOwner)
	if !ok {
		return outcome{}, &Error{Code: CodeFieldMissing, Message: MsgNewOwnerMissing, Field: TagNewOwner}
	}

	oldOwner := msg.From
	l.owner = &newOwner

	return outcome{notices: []ir.Outbound{
		newOwnershipNotice(l.process, oldOwner, newOwner),
		transferOwnershipNotice(l.process, oldOwner, newOwner),
	}}, nil
}
