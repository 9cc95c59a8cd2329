package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Notices  []ir.Outbound // Notice log for context (notice_order only)
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)

	if len(e.Notices) > 0 {
		fmt.Fprintf(&buf, "\n\nNotice log:")
		for i, n := range e.Notices {
			fmt.Fprintf(&buf, "\n  [%d] %s -> %s", i+1, n.Action(), n.Target)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the final ledger and the
// scenario's notice log. Returns one message per failed assertion.
//
// CRITICAL: l must only be read on the engine's Run goroutine; Run calls
// this from Engine.Inspect.
func EvaluateAssertions(l *ledger.Ledger, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(l, result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(l *ledger.Ledger, result *Result, a Assertion) error {
	switch a.Type {
	case AssertBalance:
		return assertEquals(a.Type, "balance of "+a.Account, a.Equals, l.BalanceOf(a.Account).String())
	case AssertTotalSupply:
		return assertEquals(a.Type, "total supply", a.Equals, l.TotalSupply().String())
	case AssertSupplyInvariant:
		if err := l.CheckSupply(); err != nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: "sum(balances) == total supply, nothing negative",
				Actual:   err.Error(),
			}
		}
		return nil
	case AssertAllowance:
		return assertEquals(a.Type,
			fmt.Sprintf("allowance %s -> %s", a.Account, a.Spender),
			a.Equals, l.AllowanceOf(a.Account, a.Spender).String())
	case AssertOwner:
		owner, ok := l.Owner()
		if !ok {
			owner = ledger.NilAddress
		}
		return assertEquals(a.Type, "owner", a.Equals, owner)
	case AssertPaused:
		return assertEquals(a.Type, "paused", a.Equals, fmt.Sprintf("%t", l.Paused()))
	case AssertNoticeOrder:
		return assertNoticeOrder(result.Notices(), a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertEquals(kind, what, want, got string) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s = %s", what, want),
		Actual:   got,
	}
}

// assertNoticeOrder checks that the listed notice actions occur in order.
// Other notices may appear in between.
func assertNoticeOrder(notices []ir.Outbound, a Assertion) error {
	var log []ir.Outbound
	for _, n := range notices {
		if a.Target == "" || n.Target == a.Target {
			log = append(log, n)
		}
	}

	next := 0
	for _, n := range log {
		if next < len(a.Actions) && n.Action() == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}

	expected := fmt.Sprintf("notices in order: %v", a.Actions)
	if a.Target != "" {
		expected += " to " + a.Target
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%s not found after %v", a.Actions[next], a.Actions[:next]),
		Notices:  log,
	}
}
