package ledger

import "github.com/roach88/ao20/internal/ir"

// handleMint creates Quantity new tokens for Recipient, which defaults to
// the process itself. Minted funds come from NilAddress, so there is no
// debit side. The recipient's Credit-Notice goes out before the caller's
// Transfer-Notice.
func (l *Ledger) handleMint(msg ir.Message) (outcome, error) {
	if err := l.requireOwner(msg.From); err != nil {
		return outcome{}, err
	}
	q, err := positiveQuantity(msg)
	if err != nil {
		return outcome{}, err
	}
	if !l.mintable {
		return outcome{}, notAllowed(MsgMintingNotAllowed)
	}
	recipient, ok := msg.Tag(TagRecipient)
	if !ok {
		recipient = l.process
	}

	l.totalSupply = l.totalSupply.Add(q)
	l.credit(recipient, q)

	return outcome{notices: []ir.Outbound{
		creditNotice(recipient, msg.From, NilAddress, q),
		transferNotice(msg.From, msg.From, NilAddress, recipient, q),
	}}, nil
}

// handleBurn destroys Quantity of the owner's own balance.
//
// Both bounds are strict: burning the entire supply or the entire balance
// is rejected.
func (l *Ledger) handleBurn(msg ir.Message) (outcome, error) {
	if err := l.requireOwner(msg.From); err != nil {
		return outcome{}, err
	}
	q, err := positiveQuantity(msg)
	if err != nil {
		return outcome{}, err
	}
	if !l.burnable {
		return outcome{}, notAllowed(MsgBurningNotAllowed)
	}
	if q.Cmp(l.totalSupply) >= 0 {
		return outcome{}, insufficient(MsgSupplyNotGreater)
	}
	if q.Cmp(l.BalanceOf(msg.From)) >= 0 {
		return outcome{}, insufficient(MsgBalanceNotGreater)
	}

	l.totalSupply = l.totalSupply.Sub(q)
	l.debit(msg.From, q)

	return outcome{notices: []ir.Outbound{
		debitNotice(msg.From, msg.From, NilAddress, q),
	}}, nil
}

// handleBurnFrom destroys Quantity of Sender's balance using the allowance
// Sender granted the caller. It is not owner-gated.
func (l *Ledger) handleBurnFrom(msg ir.Message) (outcome, error) {
	sender, err := requiredTag(msg, TagSender)
	if err != nil {
		return outcome{}, err
	}
	q, err := positiveQuantity(msg)
	if err != nil {
		return outcome{}, err
	}
	if !l.burnable {
		return outcome{}, notAllowed(MsgBurningNotAllowed)
	}
	if q.Cmp(l.AllowanceOf(sender, msg.From)) > 0 {
		return outcome{}, insufficient(MsgExceedsAllowance)
	}
	if q.Cmp(l.totalSupply) >= 0 {
		return outcome{}, insufficient(MsgSupplyNotGreater)
	}
	if q.Cmp(l.BalanceOf(sender)) >= 0 {
		return outcome{}, insufficient(MsgBalanceNotGreater)
	}

	l.spendAllowance(sender, msg.From, q)
	l.totalSupply = l.totalSupply.Sub(q)
	l.debit(sender, q)

	return outcome{notices: []ir.Outbound{
		debitNotice(sender, msg.From, NilAddress, q),
		transferNotice(msg.From, msg.From, sender, NilAddress, q),
	}}, nil
}
