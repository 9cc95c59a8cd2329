package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one ledger contract test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Addresses maps symbolic names to account addresses.
	Addresses map[string]string `yaml:"addresses"`

	// Genesis is an inline genesis document, validated with the same
	// schema as genesis files.
	Genesis map[string]any `yaml:"genesis"`

	// Steps are submitted to the engine in order.
	Steps []Step `yaml:"steps"`

	// Assertions run against the final ledger state and notice log.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one message sent to the ledger.
type Step struct {
	From   string            `yaml:"from"`
	Action string            `yaml:"action"`
	Tags   map[string]string `yaml:"tags,omitempty"`
	Data   string            `yaml:"data,omitempty"`

	// Expect is optional; without it the step may succeed or fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected result of one step.
type Expect struct {
	// Error, when set, is the exact rejection message.
	Error string `yaml:"error,omitempty"`

	// Reply matches the reply to the caller.
	Reply *ExpectOutbound `yaml:"reply,omitempty"`

	// Notices, when present, must match the emitted notices in length and
	// order. An empty list asserts that nothing was emitted.
	Notices []ExpectOutbound `yaml:"notices,omitempty"`
}

// ExpectOutbound matches a reply or notice. Empty fields are not checked;
// Tags is a subset match.
type ExpectOutbound struct {
	Action string            `yaml:"action,omitempty"`
	Target string            `yaml:"target,omitempty"`
	Data   *string           `yaml:"data,omitempty"`
	Tags   map[string]string `yaml:"tags,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	Type    string   `yaml:"type"`
	Account string   `yaml:"account,omitempty"`
	Spender string   `yaml:"spender,omitempty"`
	Equals  string   `yaml:"equals,omitempty"`
	Target  string   `yaml:"target,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance         = "balance"
	AssertTotalSupply     = "total_supply"
	AssertSupplyInvariant = "supply_invariant"
	AssertAllowance       = "allowance"
	AssertOwner           = "owner"
	AssertPaused          = "paused"
	AssertNoticeOrder     = "notice_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Genesis) == 0 {
		return fmt.Errorf("genesis is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name, addr := range s.Addresses {
		if !validName.MatchString(name) {
			return fmt.Errorf("addresses: invalid name %q", name)
		}
		if addr == "" {
			return fmt.Errorf("addresses: %s is empty", name)
		}
	}

	for i, step := range s.Steps {
		if step.From == "" {
			return fmt.Errorf("steps[%d]: from is required", i)
		}
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" &&
			(step.Expect.Reply != nil || len(step.Expect.Notices) > 0) {
			return fmt.Errorf("steps[%d].expect: a rejected step has no reply or notices", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBalance:
		if a.Account == "" || a.Equals == "" {
			return fmt.Errorf("assertions[%d]: account and equals are required for balance", index)
		}
	case AssertTotalSupply, AssertOwner:
		if a.Equals == "" {
			return fmt.Errorf("assertions[%d]: equals is required for %s", index, a.Type)
		}
	case AssertSupplyInvariant:
	case AssertAllowance:
		if a.Account == "" || a.Spender == "" || a.Equals == "" {
			return fmt.Errorf("assertions[%d]: account, spender and equals are required for allowance", index)
		}
	case AssertPaused:
		if a.Equals != "true" && a.Equals != "false" {
			return fmt.Errorf("assertions[%d]: equals must be \"true\" or \"false\" for paused", index)
		}
	case AssertNoticeOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for notice_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
