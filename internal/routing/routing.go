// Package routing implements the message routing gate. Every inter-agent
// message passes through here before delivery; eight ordered rules decide
// whether to route it immediately, hold it, or escalate to a human. The
// designated validation agent is a safety gate: while it is DEAD or ERROR no
// submission-type message routes, regardless of priority.
package routing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/models"
)

// GateName identifies this gate in decisions and audit records.
const GateName = "message_routing"

// Decision vocabulary for this gate.
const (
	DecisionRoute        = "ROUTE_IMMEDIATELY"
	DecisionHoldInput    = "HOLD_PENDING_INPUT"
	DecisionHoldCapacity = "HOLD_PENDING_CAPACITY"
	DecisionEscalate     = "ESCALATE_TO_HUMAN"
)

// Message types and priorities with routing significance.
const (
	TypeSubmissionRequest = "SUBMISSION_REQUEST"
	TypeAlert             = "ALERT"

	PriorityUrgent = "URGENT"
	PriorityHigh   = "HIGH"
	PriorityNormal = "NORMAL"
)

var (
	ErrMissingTarget    = errors.New("message envelope has no target agent")
	ErrMissingTimestamp = errors.New("message envelope has no timestamp")
)

// Envelope is one inter-agent message as presented to the router. Immutable.
type Envelope struct {
	From      string    `json:"from"`
	To        string    `json:"to" binding:"required"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Severity  string    `json:"severity"` // for ALERT messages
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentSnapshot is the per-agent slice of the state snapshot.
type AgentSnapshot struct {
	Name           string            `json:"name"`
	State          models.AgentState `json:"state"`
	LastActivity   time.Time         `json:"last_activity"`
	QueueDepth     int               `json:"queue_depth"`
	DataAgeMinutes int               `json:"data_age_minutes"`
}

// Snapshot is an immutable copy of system state taken before evaluation.
// The router never refreshes or mutates it; the heartbeat collaborator owns
// the live state.
type Snapshot struct {
	Agents  map[string]AgentSnapshot `json:"agents"`
	TakenAt time.Time                `json:"taken_at"`
}

// Healthy reports whether the agent is responsive: known, not ERROR/DEAD,
// and active within the liveness threshold measured from the envelope
// timestamp.
func (s Snapshot) Healthy(name string, livenessMinutes int, at time.Time) bool {
	a, ok := s.Agents[name]
	if !ok {
		return false
	}
	if a.State == models.AgentStateError || a.State == models.AgentStateDead {
		return false
	}
	if a.LastActivity.IsZero() {
		return false
	}
	return at.Sub(a.LastActivity) <= time.Duration(livenessMinutes)*time.Minute
}

// Decision is the routing gate's output: the kernel decision plus delivery
// metadata consumed by the broker and the escalation sink.
type Decision struct {
	gate.Decision
	Target   string `json:"target"`
	SLA      string `json:"sla,omitempty"`
	Severity string `json:"severity,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// Route evaluates the envelope against the rules and state snapshot under
// first-match-wins. It returns exactly one Decision; errors occur only for
// envelopes malformed beyond evaluation.
func Route(env Envelope, state Snapshot, rules *Rules) (Decision, error) {
	if env.To == "" {
		return Decision{}, ErrMissingTarget
	}
	if env.Timestamp.IsZero() {
		return Decision{}, ErrMissingTimestamp
	}

	ordered := []gate.Rule{
		{Name: "SAFETY_GATE", Eval: func() gate.Outcome { return safetyGate(env, state, rules) }},
		{Name: "URGENT_PRIORITY", Eval: func() gate.Outcome { return urgentPriority(env, state, rules) }},
		{Name: "CRITICAL_ALERT", Eval: func() gate.Outcome { return criticalAlert(env) }},
		{Name: "TARGET_HEALTH", Eval: func() gate.Outcome { return targetHealth(env, state, rules) }},
		{Name: "DEPENDENCY_GRAPH", Eval: func() gate.Outcome { return dependencyGraph(env, state, rules) }},
		{Name: "CAPACITY", Eval: func() gate.Outcome { return capacity(env, state, rules) }},
		{Name: "DATA_FRESHNESS", Eval: func() gate.Outcome { return dataFreshness(env, state, rules) }},
	}

	defaultReason := fmt.Sprintf("All checks passed. Route %s to %s", env.From, env.To)
	kd := gate.FirstMatch(GateName, env.Timestamp, DecisionRoute, defaultReason, ordered)

	d := Decision{Decision: kd, Target: env.To}
	switch kd.Verdict {
	case DecisionRoute:
		d.SLA = slaFor(env.Priority)
	case DecisionEscalate:
		d.Target = "human"
		d.Severity = escalationSeverity(kd, env)
		d.Channel = rules.AlertChannel
	}

	return d, nil
}

// safetyGate: no submission-type message may route while the validation
// agent is DEAD or ERROR. Evaluated first so not even URGENT bypasses it.
func safetyGate(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	if env.Type != TypeSubmissionRequest {
		return gate.Abstain("")
	}
	z, ok := state.Agents[rules.ValidationAgent]
	if ok && z.State != models.AgentStateDead && z.State != models.AgentStateError {
		return gate.Abstain("")
	}

	zState := string(models.AgentStateDead)
	if ok {
		zState = string(z.State)
	}
	reason := fmt.Sprintf("%s is in %s state. Cannot route submissions without the data validation gate.",
		rules.ValidationAgent, zState)
	return gate.Fire("", gate.ClassEscalate, DecisionEscalate, reason, map[string]any{
		"validation_agent": rules.ValidationAgent,
		"agent_state":      zState,
	})
}

// urgentPriority: URGENT routes immediately to a healthy target and
// escalates otherwise. Fires either way, ahead of every later check.
func urgentPriority(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	if env.Priority != PriorityUrgent {
		return gate.Abstain("")
	}
	if state.Healthy(env.To, rules.LivenessMinutes, env.Timestamp) {
		reason := fmt.Sprintf("URGENT message from %s and target %s is healthy", env.From, env.To)
		return gate.Fire("", gate.ClassLog, DecisionRoute, reason, nil)
	}
	reason := fmt.Sprintf("URGENT message to %s but target is not healthy", env.To)
	return gate.Fire("", gate.ClassEscalate, DecisionEscalate, reason, nil)
}

// criticalAlert: CRITICAL/HIGH alerts bypass the broker and go straight to
// the human channel with their severity attached.
func criticalAlert(env Envelope) gate.Outcome {
	if env.Type != TypeAlert {
		return gate.Abstain("")
	}
	if env.Severity != "CRITICAL" && env.Severity != "HIGH" {
		return gate.Abstain("")
	}
	reason := fmt.Sprintf("%s severity alert from %s", env.Severity, env.From)
	return gate.Fire("", gate.ClassEscalate, DecisionEscalate, reason, map[string]any{"severity": env.Severity})
}

// targetHealth: an unhealthy target cannot receive anything; a person has to
// look at it.
func targetHealth(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	if state.Healthy(env.To, rules.LivenessMinutes, env.Timestamp) {
		return gate.Abstain("")
	}

	ev := map[string]any{}
	if a, ok := state.Agents[env.To]; ok {
		ev["agent_state"] = a.State
		ev["last_activity"] = a.LastActivity.UTC().Format(time.RFC3339)
	}
	reason := fmt.Sprintf("Target agent %s is not healthy", env.To)
	return gate.Fire("", gate.ClassEscalate, DecisionEscalate, reason, ev)
}

// dependencyGraph: the target must be known, accept the message type, and —
// for types needing upstream approval — have a healthy upstream. Failing any
// of these is a hold, not an error.
func dependencyGraph(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	agent, ok := rules.Agent(env.To)
	if !ok {
		reason := fmt.Sprintf("Unknown target agent: %s", env.To)
		return gate.Fire("", gate.ClassHold, DecisionHoldInput, reason, nil)
	}
	if !agent.acceptsType(env.Type) {
		reason := fmt.Sprintf("Agent %s does not accept %s messages", env.To, env.Type)
		return gate.Fire("", gate.ClassHold, DecisionHoldInput, reason, map[string]any{"accepts": agent.Accepts})
	}
	if upstream, needs := agent.RequiresApproval[env.Type]; needs {
		if !state.Healthy(upstream, rules.LivenessMinutes, env.Timestamp) {
			reason := fmt.Sprintf("%s requires approval from %s for %s messages, but %s is unavailable",
				env.To, upstream, env.Type, upstream)
			return gate.Fire("", gate.ClassHold, DecisionHoldInput, reason, map[string]any{"upstream": upstream})
		}
	}
	return gate.Abstain("")
}

// capacity: hold when the target queue is deeper than its configured limit.
func capacity(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	agent, ok := rules.Agent(env.To)
	if !ok || agent.MaxQueueDepth <= 0 {
		return gate.Abstain("")
	}
	a, ok := state.Agents[env.To]
	if !ok || a.QueueDepth <= agent.MaxQueueDepth {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("%s queue depth (%d) exceeds threshold (%d)", env.To, a.QueueDepth, agent.MaxQueueDepth)
	return gate.Fire("", gate.ClassHold, DecisionHoldCapacity, reason, map[string]any{
		"queue_depth": a.QueueDepth,
		"threshold":   agent.MaxQueueDepth,
	})
}

// dataFreshness: submissions to the validation agent hold until its upstream
// data is recent enough to validate against.
func dataFreshness(env Envelope, state Snapshot, rules *Rules) gate.Outcome {
	if env.Type != TypeSubmissionRequest || env.To != rules.ValidationAgent {
		return gate.Abstain("")
	}
	a, ok := state.Agents[env.To]
	if !ok || a.DataAgeMinutes <= rules.FreshnessMinutes {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("%s data is too old (%d min). Hold until fresh data is available.", env.To, a.DataAgeMinutes)
	return gate.Fire("", gate.ClassHold, DecisionHoldInput, reason, map[string]any{
		"data_age_minutes": a.DataAgeMinutes,
		"max_age_minutes":  rules.FreshnessMinutes,
	})
}

func slaFor(priority string) string {
	switch priority {
	case PriorityUrgent:
		return "Response within 15 minutes"
	case PriorityHigh:
		return "Response within 30 minutes"
	default:
		return "Response within 4 hours"
	}
}

func escalationSeverity(kd gate.Decision, env Envelope) string {
	switch kd.Rule {
	case "SAFETY_GATE", "URGENT_PRIORITY":
		return "CRITICAL"
	case "CRITICAL_ALERT":
		return env.Severity
	default:
		return "HIGH"
	}
}
