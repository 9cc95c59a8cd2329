package ledger

import (
	"fmt"
	"log/slog"

	"github.com/roach88/ao20/internal/amount"
)

// Genesis is the initial ledger configuration.
//
// JSON tags match the genesis document schema in internal/config.
type Genesis struct {
	Process      string            `json:"process"`
	Name         string            `json:"name"`
	Ticker       string            `json:"ticker"`
	Denomination int               `json:"denomination"`
	Logo         string            `json:"logo"`
	Owner        *string           `json:"owner,omitempty"`
	Balances     map[string]string `json:"balances"`

	// TotalSupply is advisory. The ledger always starts with
	// sum(Balances); a disagreeing value is logged and ignored.
	TotalSupply string `json:"total_supply,omitempty"`

	Burnable bool `json:"burnable"`
	Mintable bool `json:"mintable"`
	Pausable bool `json:"pausable"`
	Paused   bool `json:"paused"`
}

// New builds a ledger from g.
//
// Returns an error if the process address is empty, the denomination is
// negative, or any balance is not a non-negative base-10 integer.
func New(g Genesis) (*Ledger, error) {
	if g.Process == "" {
		return nil, fmt.Errorf("genesis: process is required")
	}
	if !isNormalAddress(g.Process) {
		return nil, fmt.Errorf("genesis: process %q is not NFC normalized", g.Process)
	}
	if g.Owner != nil && !isNormalAddress(*g.Owner) {
		return nil, fmt.Errorf("genesis: owner %q is not NFC normalized", *g.Owner)
	}
	if g.Denomination < 0 {
		return nil, fmt.Errorf("genesis: denomination must be >= 0, got %d", g.Denomination)
	}

	l := &Ledger{
		process:      g.Process,
		name:         g.Name,
		ticker:       g.Ticker,
		logo:         g.Logo,
		denomination: g.Denomination,
		balances:     make(map[string]amount.Amount, len(g.Balances)),
		allowances:   make(map[allowanceKey]amount.Amount),
		paused:       g.Paused,
		burnable:     g.Burnable,
		mintable:     g.Mintable,
		pausable:     g.Pausable,
	}
	if g.Owner != nil && *g.Owner != "" && *g.Owner != NilAddress {
		owner := *g.Owner
		l.owner = &owner
	}

	supply := amount.Zero
	for addr, raw := range g.Balances {
		if !isNormalAddress(addr) {
			return nil, fmt.Errorf("genesis: balance address %q is not NFC normalized", addr)
		}
		bal, err := amount.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis: balance for %s: %w", addr, err)
		}
		if bal.Sign() < 0 {
			return nil, fmt.Errorf("genesis: balance for %s is negative: %s", addr, raw)
		}
		l.balances[addr] = bal
		supply = supply.Add(bal)
	}
	l.totalSupply = supply

	if g.TotalSupply != "" {
		declared, err := amount.Parse(g.TotalSupply)
		if err != nil {
			return nil, fmt.Errorf("genesis: total_supply: %w", err)
		}
		if declared.Cmp(supply) != 0 {
			slog.Warn("genesis total_supply disagrees with balances; using sum of balances",
				"process", g.Process,
				"declared", declared.String(),
				"sum", supply.String(),
			)
		}
	}

	return l, nil
}
