// Package gate implements the shared rule evaluation kernel used by the four
// decision gates. A gate hands the kernel an ordered list of named rules;
// the kernel evaluates them under one of two reduction policies and returns a
// Decision carrying the full evidence trail, so rule order, precedence and
// audit evidence behave the same way in every gate.
package gate

import (
	"fmt"
	"strings"
	"time"
)

// Class is the severity classification a firing rule assigns to its outcome.
type Class string

const (
	ClassBlock     Class = "BLOCK"
	ClassWarn      Class = "WARN"
	ClassLog       Class = "LOG"
	ClassEliminate Class = "ELIMINATE"
	ClassSkip      Class = "SKIP"
	ClassHold      Class = "HOLD"
	ClassEscalate  Class = "ESCALATE"
)

// Outcome is the result of evaluating a single rule.
type Outcome struct {
	Rule      string         `json:"rule"`
	Evaluated bool           `json:"evaluated"`
	Fired     bool           `json:"fired"`
	Class     Class          `json:"class,omitempty"`
	Verdict   string         `json:"verdict,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Evidence  map[string]any `json:"evidence,omitempty"`
}

// Abstain returns a non-firing outcome for the named rule.
func Abstain(rule string) Outcome {
	return Outcome{Rule: rule, Evaluated: true}
}

// Fire returns a firing outcome with the given class, gate verdict and reason.
func Fire(rule string, class Class, verdict, reason string, evidence map[string]any) Outcome {
	return Outcome{
		Rule:      rule,
		Evaluated: true,
		Fired:     true,
		Class:     class,
		Verdict:   verdict,
		Reason:    reason,
		Evidence:  evidence,
	}
}

// Note returns a LOG-class outcome that is not part of the rule list, used
// for evidence such as malformed history records skipped during windowing.
func Note(rule, reason string, evidence map[string]any) Outcome {
	return Outcome{
		Rule:      rule,
		Evaluated: true,
		Fired:     true,
		Class:     ClassLog,
		Reason:    reason,
		Evidence:  evidence,
	}
}

// Rule is a named, ordered predicate. Eval must be a pure function over the
// request/history/state the gate closed over: no mutation, no I/O, no clock.
type Rule struct {
	Name string
	Eval func() Outcome
}

// Decision is the final output of one gate invocation.
type Decision struct {
	Gate      string    `json:"gate"`
	Verdict   string    `json:"verdict"`
	Rule      string    `json:"rule"` // triggering rule, or "" for the default pass
	Reason    string    `json:"reason"`
	Outcomes  []Outcome `json:"outcomes"`
	DecidedAt time.Time `json:"decided_at"`
}

// FirstMatch evaluates rules in order and stops at the first firing rule,
// whose verdict and reason become the decision. Rules after the match are
// recorded in the evidence trail as not evaluated. If no rule fires the
// default verdict applies.
func FirstMatch(gateName string, at time.Time, defaultVerdict, defaultReason string, rules []Rule) Decision {
	d := Decision{
		Gate:      gateName,
		Verdict:   defaultVerdict,
		Reason:    defaultReason,
		Outcomes:  make([]Outcome, 0, len(rules)),
		DecidedAt: at.UTC(),
	}

	matched := false
	for _, r := range rules {
		if matched {
			d.Outcomes = append(d.Outcomes, Outcome{Rule: r.Name})
			continue
		}
		out := r.Eval()
		out.Rule = r.Name
		d.Outcomes = append(d.Outcomes, out)
		if out.Fired {
			matched = true
			d.Verdict = out.Verdict
			d.Rule = out.Rule
			d.Reason = out.Reason
		}
	}

	return d
}

// BySeverity evaluates every rule (no short-circuit) and reduces the firing
// outcomes under the precedence BLOCK > WARN > LOG. LOG-class outcomes are
// kept as evidence but never decide. The decision reason names every firing
// rule of the winning class, not just the first.
func BySeverity(gateName string, at time.Time, defaultVerdict, defaultReason string, rules []Rule) Decision {
	d := Decision{
		Gate:      gateName,
		Verdict:   defaultVerdict,
		Reason:    defaultReason,
		Outcomes:  make([]Outcome, 0, len(rules)),
		DecidedAt: at.UTC(),
	}

	for _, r := range rules {
		out := r.Eval()
		out.Rule = r.Name
		d.Outcomes = append(d.Outcomes, out)
	}

	winning := ClassLog
	for _, out := range d.Outcomes {
		if out.Fired && severityRank(out.Class) > severityRank(winning) {
			winning = out.Class
		}
	}
	if severityRank(winning) <= severityRank(ClassLog) {
		return d
	}

	var reasons []string
	for _, out := range d.Outcomes {
		if !out.Fired || out.Class != winning {
			continue
		}
		if d.Rule == "" {
			d.Rule = out.Rule
			d.Verdict = out.Verdict
		}
		reasons = append(reasons, out.Reason)
	}

	label := "BLOCKED"
	if winning == ClassWarn {
		label = "WARNING"
	}
	d.Reason = fmt.Sprintf("%s: %d rule(s) triggered. %s", label, len(reasons), strings.Join(reasons, " | "))

	return d
}

func severityRank(c Class) int {
	switch c {
	case ClassBlock:
		return 3
	case ClassWarn:
		return 2
	case ClassLog:
		return 1
	default:
		return 0
	}
}
