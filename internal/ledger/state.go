package ledger

import (
	"fmt"
	"maps"

	"github.com/roach88/ao20/internal/amount"
	"github.com/roach88/ao20/internal/ir"
)

// NilAddress is the wire spelling of "no address": a renounced owner, the
// mint source and the burn sink.
const NilAddress = "nil"

// allowanceKey addresses one (owner, spender) allowance. A flat map avoids
// empty inner maps after allowances are spent.
type allowanceKey struct {
	Owner   string
	Spender string
}

// Ledger is the token contract state.
type Ledger struct {
	process      string
	name         string
	ticker       string
	logo         string
	denomination int

	totalSupply amount.Amount
	balances    map[string]amount.Amount
	allowances  map[allowanceKey]amount.Amount

	owner    *string // nil once renounced
	paused   bool
	burnable bool
	mintable bool
	pausable bool
}

// Process returns the ledger's own address.
func (l *Ledger) Process() string { return l.process }

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Ticker returns the token ticker.
func (l *Ledger) Ticker() string { return l.ticker }

// Denomination returns the power-of-ten scale of all amounts.
func (l *Ledger) Denomination() int { return l.denomination }

// TotalSupply returns the current supply.
func (l *Ledger) TotalSupply() amount.Amount { return l.totalSupply }

// Paused reports whether transfers are blocked.
func (l *Ledger) Paused() bool { return l.paused }

// Owner returns the owner address, or ok=false once renounced.
func (l *Ledger) Owner() (string, bool) {
	if l.owner == nil {
		return "", false
	}
	return *l.owner, true
}

// BalanceOf returns the balance of addr. Unknown addresses hold zero.
func (l *Ledger) BalanceOf(addr string) amount.Amount {
	return l.balances[addr]
}

// AllowanceOf returns what spender may move out of owner's balance.
func (l *Ledger) AllowanceOf(owner, spender string) amount.Amount {
	return l.allowances[allowanceKey{Owner: owner, Spender: spender}]
}

// Balances returns every stored balance as base-10 strings, including
// entries debited down to zero.
func (l *Ledger) Balances() map[string]string {
	out := make(map[string]string, len(l.balances))
	for addr, bal := range l.balances {
		out[addr] = bal.String()
	}
	return out
}

// Allowances returns nonzero allowances as owner -> spender -> amount.
func (l *Ledger) Allowances() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for key, a := range l.allowances {
		if a.IsZero() {
			continue
		}
		inner, ok := out[key.Owner]
		if !ok {
			inner = make(map[string]string)
			out[key.Owner] = inner
		}
		inner[key.Spender] = a.String()
	}
	return out
}

// CheckSupply verifies sum(balances) == totalSupply and that no balance or
// allowance is negative.
func (l *Ledger) CheckSupply() error {
	sum := amount.Zero
	for addr, bal := range l.balances {
		if bal.Sign() < 0 {
			return fmt.Errorf("negative balance for %s: %s", addr, bal)
		}
		sum = sum.Add(bal)
	}
	for key, a := range l.allowances {
		if a.Sign() < 0 {
			return fmt.Errorf("negative allowance %s->%s: %s", key.Owner, key.Spender, a)
		}
	}
	if sum.Cmp(l.totalSupply) != 0 {
		return fmt.Errorf("supply mismatch: sum(balances)=%s totalSupply=%s", sum, l.totalSupply)
	}
	return nil
}

// Clone returns an independent copy of the ledger. Amounts are immutable,
// so copying the maps is enough.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.balances = maps.Clone(l.balances)
	c.allowances = maps.Clone(l.allowances)
	if l.owner != nil {
		owner := *l.owner
		c.owner = &owner
	}
	return &c
}

// isOwner reports whether caller currently owns the ledger.
func (l *Ledger) isOwner(caller string) bool {
	return l.owner != nil && *l.owner == caller
}

func (l *Ledger) credit(addr string, q amount.Amount) {
	l.balances[addr] = l.balances[addr].Add(q)
}

// debit assumes the caller already checked the balance covers q.
func (l *Ledger) debit(addr string, q amount.Amount) {
	l.balances[addr] = l.balances[addr].Sub(q)
}

func (l *Ledger) spendAllowance(owner, spender string, q amount.Amount) {
	key := allowanceKey{Owner: owner, Spender: spender}
	l.allowances[key] = l.allowances[key].Sub(q)
}

// Snapshot is a point-in-time copy of the mutable state.
type Snapshot struct {
	TotalSupply string                       `json:"total_supply"`
	Balances    map[string]string            `json:"balances"`
	Allowances  map[string]map[string]string `json:"allowances"`
	Owner       string                       `json:"owner"`
	Paused      bool                         `json:"paused"`
}

// Snapshot captures the mutable state. A renounced owner reads as NilAddress.
func (l *Ledger) Snapshot() Snapshot {
	owner, ok := l.Owner()
	if !ok {
		owner = NilAddress
	}
	return Snapshot{
		TotalSupply: l.totalSupply.String(),
		Balances:    l.Balances(),
		Allowances:  l.Allowances(),
		Owner:       owner,
		Paused:      l.paused,
	}
}

// StateHash fingerprints the mutable state via canonical JSON, so two
// ledgers that reached the same state by different histories hash equal.
func (l *Ledger) StateHash() (string, error) {
	s := l.Snapshot()
	canonical, err := ir.MarshalCanonical(map[string]any{
		"total_supply": s.TotalSupply,
		"balances":     s.Balances,
		"allowances":   s.Allowances,
		"owner":        s.Owner,
		"paused":       s.Paused,
	})
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return ir.StateHash(canonical), nil
}
