package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ao20/internal/ir"
)

// GoldenDir is the fixture directory, relative to the scenario files.
const GoldenDir = "golden"

// Trace renders the result as canonical JSON with addresses folded back to
// their ${name} form. Equal runs produce byte-identical traces.
func (r *Result) Trace(scenario *Scenario) ([]byte, error) {
	sym := newSymbolizer(scenario.Addresses)

	steps := make([]any, len(r.Steps))
	for i, s := range r.Steps {
		step := map[string]any{
			"seq":     s.Result.Seq,
			"id":      s.Result.MessageID,
			"from":    sym.str(s.Message.From),
			"action":  s.Message.Action,
			"tags":    sym.tags(s.Message.Tags),
			"notices": outboundList(sym, s.Result.Notices),
		}
		if s.Message.Data != "" {
			step["data"] = sym.str(s.Message.Data)
		}
		if s.Result.Error != "" {
			step["error"] = sym.str(s.Result.Error)
		}
		if s.Result.Reply != nil {
			step["reply"] = outboundMap(sym, *s.Result.Reply)
		}
		steps[i] = step
	}

	allowances := make(map[string]any, len(r.Final.Allowances))
	for owner, inner := range r.Final.Allowances {
		allowances[sym.str(owner)] = sym.tags(inner)
	}
	final := map[string]any{
		"total_supply": r.Final.TotalSupply,
		"balances":     sym.tags(r.Final.Balances),
		"allowances":   allowances,
		"owner":        sym.str(r.Final.Owner),
		"paused":       r.Final.Paused,
	}

	data, err := ir.MarshalCanonical(map[string]any{
		"scenario": scenario.Name,
		"steps":    steps,
		"final":    final,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return data, nil
}

func outboundMap(sym symbolizer, o ir.Outbound) map[string]any {
	return map[string]any{
		"target": sym.str(o.Target),
		"tags":   sym.tags(o.Tags),
		"data":   sym.str(o.Data),
	}
}

func outboundList(sym symbolizer, list []ir.Outbound) []any {
	out := make([]any, len(list))
	for i, o := range list {
		out[i] = outboundMap(sym, o)
	}
	return out
}

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<scenario name>.golden.
func GoldenPath(scenarioFile string, scenario *Scenario) string {
	return filepath.Join(filepath.Dir(scenarioFile), GoldenDir, scenario.Name+".golden")
}

// WriteGolden writes the trace as the scenario's golden file.
func WriteGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, trace, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether trace matches the golden file at path.
// Trailing whitespace in the file is ignored so editors may add a newline.
func CompareGolden(path string, trace []byte) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(bytes.TrimRight(golden, " \t\r\n"), trace), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. Expectation and
// assertion failures fail t directly.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%s", scenario.Name, strings.Join(result.Errors, "\n"))
	}

	return result, AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	trace, err := result.Trace(scenario)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, trace)
	return nil
}
