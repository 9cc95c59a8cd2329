package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ao20/internal/config"
	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
	"github.com/roach88/ao20/internal/store"
	"github.com/roach88/ao20/internal/testutil"
)

// StepIDPrefix prefixes the sequential message IDs assigned to steps.
const StepIDPrefix = "step"

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal, so scenarios are
// isolated and traces are reproducible.
//
// Execution flow:
//  1. Expand placeholders and validate the inline genesis
//  2. Initialize the journal and open an engine over it
//  3. Submit each step and check its expect clause
//  4. Evaluate assertions against the final ledger
//  5. Replay the journal and fail on any divergence
//
// A returned error means the scenario could not be executed at all;
// expectation and assertion failures are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	sub := substituter{addresses: scenario.Addresses}

	genesis, err := resolveGenesis(scenario, sub)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := engine.Initialize(ctx, st, genesis); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	eng, err := engine.Open(ctx, st,
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(StepIDPrefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		eng.Stop()
		cancel()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		msg, err := buildMessage(step, sub)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		res, err := eng.Submit(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("step %d: submit %s: %w", i, msg.Action, err)
		}
		msg.ID = res.MessageID
		msg.Seq = res.Seq
		result.Steps = append(result.Steps, StepResult{Message: msg, Result: res})

		if step.Expect != nil {
			expect, err := expandExpect(*step.Expect, sub)
			if err != nil {
				return nil, fmt.Errorf("step %d: expect: %w", i, err)
			}
			for _, e := range checkExpect(expect, res) {
				result.AddError(fmt.Sprintf("step %d (%s): %s", i, msg.Action, e))
			}
		}

		slog.Debug("scenario step completed",
			"scenario", scenario.Name,
			"step", i,
			"action", msg.Action,
			"id", res.MessageID,
			"error", res.Error,
		)
	}

	assertions, err := expandAssertions(scenario.Assertions, sub)
	if err != nil {
		return nil, err
	}
	err = eng.Inspect(ctx, func(l *ledger.Ledger) {
		result.Final = l.Snapshot()
		for _, msg := range EvaluateAssertions(l, result, assertions) {
			result.AddError(msg)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect ledger: %w", err)
	}

	report, err := engine.Replay(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	if !report.OK() {
		result.AddError(fmt.Sprintf("replay diverged at seq %v", report.Diverged))
	}

	return result, nil
}

func resolveGenesis(scenario *Scenario, sub substituter) (ledger.Genesis, error) {
	doc, err := sub.expandValue(scenario.Genesis)
	if err != nil {
		return ledger.Genesis{}, fmt.Errorf("genesis: %w", err)
	}
	g, err := config.GenesisFromValue(scenario.Name+" genesis", doc)
	if err != nil {
		return ledger.Genesis{}, err
	}
	return g, nil
}

func buildMessage(step Step, sub substituter) (ir.Message, error) {
	from, err := sub.expand(step.From)
	if err != nil {
		return ir.Message{}, fmt.Errorf("from: %w", err)
	}
	tags, err := sub.expandTags(step.Tags)
	if err != nil {
		return ir.Message{}, err
	}
	data, err := sub.expand(step.Data)
	if err != nil {
		return ir.Message{}, fmt.Errorf("data: %w", err)
	}
	return ir.Message{
		From:   from,
		Action: step.Action,
		Tags:   ir.Tags(tags),
		Data:   data,
	}, nil
}

func expandExpect(e Expect, sub substituter) (Expect, error) {
	out := Expect{Error: e.Error}
	if e.Reply != nil {
		r, err := expandOutbound(*e.Reply, sub)
		if err != nil {
			return Expect{}, fmt.Errorf("reply: %w", err)
		}
		out.Reply = &r
	}
	if e.Notices != nil {
		out.Notices = make([]ExpectOutbound, len(e.Notices))
		for i, n := range e.Notices {
			en, err := expandOutbound(n, sub)
			if err != nil {
				return Expect{}, fmt.Errorf("notices[%d]: %w", i, err)
			}
			out.Notices[i] = en
		}
	}
	return out, nil
}

func expandOutbound(o ExpectOutbound, sub substituter) (ExpectOutbound, error) {
	target, err := sub.expand(o.Target)
	if err != nil {
		return ExpectOutbound{}, err
	}
	tags, err := sub.expandTags(o.Tags)
	if err != nil {
		return ExpectOutbound{}, err
	}
	out := ExpectOutbound{Action: o.Action, Target: target, Tags: tags}
	if o.Data != nil {
		data, err := sub.expand(*o.Data)
		if err != nil {
			return ExpectOutbound{}, err
		}
		out.Data = &data
	}
	return out, nil
}

func expandAssertions(in []Assertion, sub substituter) ([]Assertion, error) {
	out := make([]Assertion, len(in))
	for i, a := range in {
		var err error
		if a.Account, err = sub.expand(a.Account); err != nil {
			return nil, fmt.Errorf("assertions[%d]: account: %w", i, err)
		}
		if a.Spender, err = sub.expand(a.Spender); err != nil {
			return nil, fmt.Errorf("assertions[%d]: spender: %w", i, err)
		}
		if a.Equals, err = sub.expand(a.Equals); err != nil {
			return nil, fmt.Errorf("assertions[%d]: equals: %w", i, err)
		}
		if a.Target, err = sub.expand(a.Target); err != nil {
			return nil, fmt.Errorf("assertions[%d]: target: %w", i, err)
		}
		out[i] = a
	}
	return out, nil
}

// checkExpect compares one step result against its expect clause.
func checkExpect(e Expect, res ir.Result) []string {
	var errs []string

	if e.Error != "" {
		if res.Error != e.Error {
			errs = append(errs, fmt.Sprintf("expected error %q, got %q", e.Error, res.Error))
		}
		return errs
	}
	if res.Failed() {
		return append(errs, fmt.Sprintf("expected success, got error %q", res.Error))
	}

	if e.Reply != nil {
		if res.Reply == nil {
			errs = append(errs, "expected a reply, got none")
		} else {
			errs = append(errs, matchOutbound("reply", *e.Reply, *res.Reply)...)
		}
	}

	if e.Notices != nil {
		if len(e.Notices) != len(res.Notices) {
			errs = append(errs, fmt.Sprintf("expected %d notices %v, got %d %v",
				len(e.Notices), expectedActions(e.Notices), len(res.Notices), res.NoticeActions()))
			return errs
		}
		for i := range e.Notices {
			errs = append(errs, matchOutbound(fmt.Sprintf("notice %d", i), e.Notices[i], res.Notices[i])...)
		}
	}
	return errs
}

func matchOutbound(label string, want ExpectOutbound, got ir.Outbound) []string {
	var errs []string
	if want.Action != "" && got.Action() != want.Action {
		errs = append(errs, fmt.Sprintf("%s: expected action %q, got %q", label, want.Action, got.Action()))
	}
	if want.Target != "" && got.Target != want.Target {
		errs = append(errs, fmt.Sprintf("%s: expected target %q, got %q", label, want.Target, got.Target))
	}
	if want.Data != nil && got.Data != *want.Data {
		errs = append(errs, fmt.Sprintf("%s: expected data %q, got %q", label, *want.Data, got.Data))
	}
	for _, k := range sortedKeys(want.Tags) {
		v, ok := got.Tags[k]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: missing tag %s", label, k))
			continue
		}
		if v != want.Tags[k] {
			errs = append(errs, fmt.Sprintf("%s: tag %s: expected %q, got %q", label, k, want.Tags[k], v))
		}
	}
	return errs
}

func expectedActions(ns []ExpectOutbound) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Action
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	return ir.Tags(m).SortedKeys()
}
