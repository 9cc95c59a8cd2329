package ledger

import "github.com/roach88/ao20/internal/ir"

// handleTransfer moves the caller's own funds to Recipient.
// The pause gate is checked before any field so a paused ledger rejects
// every transfer the same way.
//
// The ledger process moves the funds as the caller's spender, so the caller
// must first Approve the process for at least Quantity. The transfer spends
// that allowance.
func (l *Ledger) handleTransfer(msg ir.Message) (outcome, error) {
	if l.paused {
		return outcome{}, errPaused
	}
	recipient, err := requiredTag(msg, TagRecipient)
	if err != nil {
		return outcome{}, err
	}
	q, err := positiveQuantity(msg)
	if err != nil {
		return outcome{}, err
	}
	if q.Cmp(l.AllowanceOf(msg.From, l.process)) > 0 {
		return outcome{}, insufficient(MsgExceedsAllowance)
	}
	if l.BalanceOf(msg.From).Cmp(q) < 0 {
		return outcome{}, insufficient(MsgInsufficientBalance)
	}

	l.spendAllowance(msg.From, l.process, q)
	l.debit(msg.From, q)
	l.credit(recipient, q)

	return outcome{notices: []ir.Outbound{
		debitNotice(msg.From, msg.From, recipient, q),
		creditNotice(recipient, msg.From, msg.From, q),
	}}, nil
}

// handleApprove sets allowances[caller][Spender] to Quantity. The value is
// replaced, never accumulated, and zero is a valid way to revoke.
func (l *Ledger) handleApprove(msg ir.Message) (outcome, error) {
	spender, err := requiredTag(msg, TagSpender)
	if err != nil {
		return outcome{}, err
	}
	q, err := nonNegativeQuantity(msg)
	if err != nil {
		return outcome{}, err
	}

	l.allowances[allowanceKey{Owner: msg.From, Spender: spender}] = q

	return outcome{notices: []ir.Outbound{
		approveNotice(msg.From, spender, q),
		approvalNotice(msg.From, spender, q),
	}}, nil
}

// handleTransferFrom lets the caller spend Sender's funds within the
// allowance Sender granted it.
func (l *Ledger) handleTransferFrom(msg ir.Message) (outcome, error) {
	if l.paused {
		return outcome{}, errPaused
	}
	sender, err := requiredTag(msg, TagSender)
	if err != nil {
		return outcome{}, err
	}
	recipient, err := requiredTag(msg, TagRecipient)
	if err != nil {
		return outcome{}, err
	}
	q, err := positiveQuantity(msg)
	if err != nil {
		return outcome{}, err
	}
	if q.Cmp(l.AllowanceOf(sender, msg.From)) > 0 {
		return outcome{}, insufficient(MsgExceedsAllowance)
	}
	if l.BalanceOf(sender).Cmp(q) < 0 {
		return outcome{}, insufficient(MsgInsufficientBalance)
	}

	l.spendAllowance(sender, msg.From, q)
	l.debit(sender, q)
	l.credit(recipient, q)

	return outcome{notices: []ir.Outbound{
		transferNotice(sender, msg.From, sender, recipient, q),
		debitNotice(sender, msg.From, recipient, q),
		creditNotice(recipient, msg.From, sender, q),
	}}, nil
}
