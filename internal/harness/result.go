package harness

import (
	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// StepResult pairs a submitted message, as stamped by the engine, with its
// result.
type StepResult struct {
	Message ir.Message `json:"message"`
	Result  ir.Result  `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Final is the ledger state after the last step.
	Final ledger.Snapshot `json:"final"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notices returns every emitted notice in emission order.
func (r *Result) Notices() []ir.Outbound {
	var out []ir.Outbound
	for _, s := range r.Steps {
		out = append(out, s.Result.Notices...)
	}
	return out
}
