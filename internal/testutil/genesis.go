package testutil

import (
	"github.com/roach88/ao20/internal/amount"
	"github.com/roach88/ao20/internal/ledger"
)

// Addresses used by the reference deployment's test suite.
const (
	ProcessID = "StuERWgMgDvCdo73c7Ncq1R2HoUhbSs2h5sJ0tKZobQ"
	Wallet    = "XkVOo16KMIHK-zqlR67cuNY0ayXIkPWODWw_HXAE20I"
	Wallet2   = "m6W6wreOSejTb2WRHoALM6M7mw3H8D2KmFVBYC1l0O0"
)

// Denomination of the fixture token.
const Denomination = 10

// Units scales whole tokens by the fixture denomination.
func Units(n int64) string {
	return amount.FromUnits(n, Denomination).String()
}

// Genesis returns the fixture token: "My Coin" owned by Wallet, with 100
// units held by the process, 300 by Wallet and 100 by Wallet2.
//
// The declared total supply of 400 units is deliberately stale; the ledger
// starts at 500, the sum of balances.
func Genesis() ledger.Genesis {
	owner := Wallet
	return ledger.Genesis{
		Process:      ProcessID,
		Name:         "My Coin",
		Ticker:       "COIN",
		Denomination: Denomination,
		Logo:         "TXID of logo image",
		Owner:        &owner,
		Balances: map[string]string{
			ProcessID: Units(100),
			Wallet:    Units(300),
			Wallet2:   Units(100),
		},
		TotalSupply: Units(400),
		Burnable:    true,
		Mintable:    true,
		Pausable:    true,
	}
}
