package services

import (
	"fmt"

	"github.com/ogtalent/dispatch/internal/metrics"
	"github.com/ogtalent/dispatch/internal/routing"
)

// RoutingService runs the message routing gate against a snapshot of agent
// state and fans escalations out to the alert sinks.
type RoutingService struct {
	rules  *routing.Rules
	agents *AgentService
	audit  *AuditService
	alerts *AlertService
}

func NewRoutingService(rules *routing.Rules, agents *AgentService, audit *AuditService, alerts *AlertService) *RoutingService {
	return &RoutingService{rules: rules, agents: agents, audit: audit, alerts: alerts}
}

// RoutingResult is the gate decision plus, for escalations, the delivery
// outcome of the human-channel alert.
type RoutingResult struct {
	routing.Decision
	Escalation *DispatchResult `json:"escalation,omitempty"`
}

// Decide routes one envelope. The snapshot is taken once, before evaluation;
// heartbeats arriving mid-decision do not change the verdict.
func (s *RoutingService) Decide(env routing.Envelope) (RoutingResult, error) {
	state, err := s.agents.Snapshot()
	if err != nil {
		return RoutingResult{}, err
	}

	d, err := routing.Route(env, state, s.rules)
	if err != nil {
		return RoutingResult{}, err
	}

	if _, err := s.audit.Record("routing_decision", d.Decision, env.From, env.To); err != nil {
		return RoutingResult{}, err
	}
	metrics.IncDecision(d.Gate, d.Verdict)

	result := RoutingResult{Decision: d}
	if d.Verdict == routing.DecisionEscalate {
		title := fmt.Sprintf("Routing escalation for message from %s to %s", env.From, env.To)
		dr, err := s.alerts.Escalate(d.Severity, d.Channel, title, d.Reason)
		if err != nil {
			return RoutingResult{}, err
		}
		result.Escalation = &dr
	}
	return result, nil
}

// Rules exposes the validated routing configuration, read-only.
func (s *RoutingService) Rules() *routing.Rules {
	return s.rules
}
