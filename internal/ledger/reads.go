package ledger

import (
	"fmt"
	"strconv"

	"github.com/roach88/ao20/internal/ir"
)

func (l *Ledger) reply(msg ir.Message, data string, tags ir.Tags) outcome {
	return outcome{reply: &ir.Outbound{Target: msg.From, Tags: tags, Data: data}}
}

func (l *Ledger) handleInfo(msg ir.Message) (outcome, error) {
	owner, ok := l.Owner()
	if !ok {
		owner = NilAddress
	}
	return l.reply(msg, "", ir.Tags{
		TagName:         l.name,
		TagTicker:       l.ticker,
		TagDenomination: strconv.Itoa(l.denomination),
		TagLogo:         l.logo,
		TagBurnable:     formatBool(l.burnable),
		TagMintable:     formatBool(l.mintable),
		TagPausable:     formatBool(l.pausable),
		TagPaused:       formatBool(l.paused),
		TagOwner:        owner,
	}), nil
}

func (l *Ledger) handleTotalSupply(msg ir.Message) (outcome, error) {
	supply := l.totalSupply.String()
	return l.reply(msg, supply, ir.Tags{
		TagTotalSupply: supply,
		TagTicker:      l.ticker,
	}), nil
}

// handleBalance reports Target's balance, or the caller's when Target is
// absent. The reply always goes to the caller.
func (l *Ledger) handleBalance(msg ir.Message) (outcome, error) {
	account, ok := msg.Tag(TagTarget)
	if !ok {
		account = msg.From
	}
	bal := l.BalanceOf(account).String()
	return l.reply(msg, bal, ir.Tags{
		TagAccount: account,
		TagBalance: bal,
		TagTicker:  l.ticker,
	}), nil
}

func (l *Ledger) handleBalances(msg ir.Message) (outcome, error) {
	data, err := ir.MarshalCanonical(l.Balances())
	if err != nil {
		return outcome{}, fmt.Errorf("encode balances: %w", err)
	}
	return l.reply(msg, string(data), ir.Tags{}), nil
}

// handleAllowance reports allowances[Target][Spender]. Target defaults to
// the caller.
func (l *Ledger) handleAllowance(msg ir.Message) (outcome, error) {
	spender, err := requiredTag(msg, TagSpender)
	if err != nil {
		return outcome{}, err
	}
	account, ok := msg.Tag(TagTarget)
	if !ok {
		account = msg.From
	}
	allowance := l.AllowanceOf(account, spender).String()
	return l.reply(msg, allowance, ir.Tags{
		TagAccount:   account,
		TagSpender:   spender,
		TagAllowance: allowance,
		TagTicker:    l.ticker,
	}), nil
}

func (l *Ledger) handleAllowances(msg ir.Message) (outcome, error) {
	data, err := ir.MarshalCanonical(l.Allowances())
	if err != nil {
		return outcome{}, fmt.Errorf("encode allowances: %w", err)
	}
	return l.reply(msg, string(data), ir.Tags{}), nil
}
