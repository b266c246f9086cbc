package routing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogtalent/dispatch/internal/models"
)

func testRules(t *testing.T) *Rules {
	t.Helper()
	rules := &Rules{
		Version:         "1.0",
		ValidationAgent: "agent_z",
		DependencyGraph: map[string]AgentRules{
			"agent_z": {Accepts: []string{TypeSubmissionRequest}, MaxQueueDepth: 10},
			"agent_b": {
				Accepts:          []string{TypeSubmissionRequest, TypeAlert},
				RequiresApproval: map[string]string{TypeSubmissionRequest: "agent_z"},
				MaxQueueDepth:    5,
			},
			"agent_c": {},
		},
	}
	require.NoError(t, rules.Validate())
	return rules
}

func testSnapshot(at time.Time) Snapshot {
	return Snapshot{
		TakenAt: at,
		Agents: map[string]AgentSnapshot{
			"agent_z": {Name: "agent_z", State: models.AgentStateActive, LastActivity: at.Add(-5 * time.Minute), DataAgeMinutes: 10},
			"agent_b": {Name: "agent_b", State: models.AgentStateActive, LastActivity: at.Add(-2 * time.Minute), QueueDepth: 3},
			"agent_c": {Name: "agent_c", State: models.AgentStateIdle, LastActivity: at.Add(-1 * time.Minute)},
		},
	}
}

func envelope(to, msgType, priority string, at time.Time) Envelope {
	return Envelope{From: "agent_a", To: to, Type: msgType, Priority: priority, Timestamp: at}
}

func TestRoute_HealthyTargetRoutes(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)

	d, err := Route(envelope("agent_b", TypeSubmissionRequest, PriorityNormal, at), testSnapshot(at), rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionRoute, d.Verdict)
	assert.Equal(t, "agent_b", d.Target)
	assert.Equal(t, "Response within 4 hours", d.SLA)
}

func TestRoute_MalformedEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)

	_, err := Route(Envelope{Timestamp: at}, testSnapshot(at), rules)
	assert.ErrorIs(t, err, ErrMissingTarget)

	_, err = Route(Envelope{To: "agent_b"}, testSnapshot(at), rules)
	assert.ErrorIs(t, err, ErrMissingTimestamp)
}

func TestRoute_SafetyGateBeatsEveryPriority(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	z := state.Agents["agent_z"]
	z.State = models.AgentStateDead
	state.Agents["agent_z"] = z

	for _, priority := range []string{PriorityUrgent, PriorityHigh, PriorityNormal} {
		d, err := Route(envelope("agent_b", TypeSubmissionRequest, priority, at), state, rules)
		require.NoError(t, err)

		assert.Equal(t, DecisionEscalate, d.Verdict, priority)
		assert.Equal(t, "SAFETY_GATE", d.Rule, priority)
		assert.Equal(t, "human", d.Target)
		assert.Equal(t, "CRITICAL", d.Severity)
		assert.Equal(t, DefaultAlertChannel, d.Channel)
		assert.Contains(t, d.Reason, "Cannot route submissions without the data validation gate")
	}
}

func TestRoute_SafetyGateUnknownValidationAgent(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	delete(state.Agents, "agent_z")

	d, err := Route(envelope("agent_b", TypeSubmissionRequest, PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionEscalate, d.Verdict)
	assert.Equal(t, "SAFETY_GATE", d.Rule, "an absent validation agent is treated as DEAD")
}

func TestRoute_SafetyGateIgnoresNonSubmissionTypes(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	z := state.Agents["agent_z"]
	z.State = models.AgentStateError
	state.Agents["agent_z"] = z

	d, err := Route(envelope("agent_c", "STATUS_UPDATE", PriorityNormal, at), state, rules)
	require.NoError(t, err)
	assert.Equal(t, DecisionRoute, d.Verdict)
}

func TestRoute_UrgentToHealthyTarget(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)

	d, err := Route(envelope("agent_b", "STATUS_UPDATE", PriorityUrgent, at), testSnapshot(at), rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionRoute, d.Verdict)
	assert.Equal(t, "URGENT_PRIORITY", d.Rule)
	assert.Equal(t, "Response within 15 minutes", d.SLA)
}

func TestRoute_UrgentToUnhealthyTargetEscalates(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	b := state.Agents["agent_b"]
	b.LastActivity = at.Add(-2 * time.Hour)
	state.Agents["agent_b"] = b

	d, err := Route(envelope("agent_b", "STATUS_UPDATE", PriorityUrgent, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionEscalate, d.Verdict)
	assert.Equal(t, "URGENT_PRIORITY", d.Rule)
	assert.Equal(t, "CRITICAL", d.Severity)
}

func TestRoute_CriticalAlertEscalatesWithOwnSeverity(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)

	env := envelope("agent_b", TypeAlert, PriorityNormal, at)
	env.Severity = "CRITICAL"
	d, err := Route(env, testSnapshot(at), rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionEscalate, d.Verdict)
	assert.Equal(t, "CRITICAL_ALERT", d.Rule)
	assert.Equal(t, "CRITICAL", d.Severity)

	env.Severity = "MEDIUM"
	d, err = Route(env, testSnapshot(at), rules)
	require.NoError(t, err)
	assert.Equal(t, DecisionRoute, d.Verdict, "medium alerts go through the normal path")
}

func TestRoute_UnhealthyTargetEscalates(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	delete(state.Agents, "agent_c")

	d, err := Route(envelope("agent_c", "STATUS_UPDATE", PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionEscalate, d.Verdict)
	assert.Equal(t, "TARGET_HEALTH", d.Rule)
	assert.Equal(t, "HIGH", d.Severity)
}

func TestRoute_UnknownAgentHolds(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	state.Agents["agent_x"] = AgentSnapshot{Name: "agent_x", State: models.AgentStateActive, LastActivity: at}

	d, err := Route(envelope("agent_x", "STATUS_UPDATE", PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionHoldInput, d.Verdict, "an agent outside the dependency graph holds, it does not error")
	assert.Equal(t, "DEPENDENCY_GRAPH", d.Rule)
}

func TestRoute_TypeNotAcceptedHolds(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)

	d, err := Route(envelope("agent_z", TypeAlert, PriorityNormal, at), testSnapshot(at), rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionHoldInput, d.Verdict)
	assert.Contains(t, d.Reason, "does not accept ALERT")
}

func TestRoute_ApprovalUpstreamUnhealthyHolds(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	z := state.Agents["agent_z"]
	z.State = models.AgentStateSlow
	z.LastActivity = at.Add(-45 * time.Minute)
	state.Agents["agent_z"] = z

	// agent_z is stale but not DEAD/ERROR, so the safety gate abstains and
	// the approval requirement is what holds the message.
	d, err := Route(envelope("agent_b", TypeSubmissionRequest, PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionHoldInput, d.Verdict)
	assert.Equal(t, "DEPENDENCY_GRAPH", d.Rule)
	assert.Contains(t, d.Reason, "requires approval from agent_z")
}

func TestRoute_QueueOverCapacityHolds(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	b := state.Agents["agent_b"]
	b.QueueDepth = 6
	state.Agents["agent_b"] = b

	d, err := Route(envelope("agent_b", TypeAlert, PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionHoldCapacity, d.Verdict)
	assert.Equal(t, "CAPACITY", d.Rule)
	assert.Contains(t, d.Reason, "queue depth (6) exceeds threshold (5)")
}

func TestRoute_StaleValidationDataHolds(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	z := state.Agents["agent_z"]
	z.DataAgeMinutes = 300
	state.Agents["agent_z"] = z

	d, err := Route(envelope("agent_z", TypeSubmissionRequest, PriorityNormal, at), state, rules)
	require.NoError(t, err)

	assert.Equal(t, DecisionHoldInput, d.Verdict)
	assert.Equal(t, "DATA_FRESHNESS", d.Rule)
}

func TestRoute_FirstMatchSkipsLaterRules(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rules := testRules(t)
	state := testSnapshot(at)
	z := state.Agents["agent_z"]
	z.State = models.AgentStateDead
	state.Agents["agent_z"] = z

	d, err := Route(envelope("agent_b", TypeSubmissionRequest, PriorityNormal, at), state, rules)
	require.NoError(t, err)

	require.Len(t, d.Outcomes, 7)
	assert.True(t, d.Outcomes[0].Fired)
	for _, o := range d.Outcomes[1:] {
		assert.False(t, o.Evaluated, o.Rule)
	}
}

func TestSnapshot_Healthy(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Snapshot{Agents: map[string]AgentSnapshot{
		"fresh": {State: models.AgentStateActive, LastActivity: at.Add(-29 * time.Minute)},
		"stale": {State: models.AgentStateActive, LastActivity: at.Add(-31 * time.Minute)},
		"err":   {State: models.AgentStateError, LastActivity: at},
	}}

	assert.True(t, s.Healthy("fresh", 30, at))
	assert.False(t, s.Healthy("stale", 30, at))
	assert.False(t, s.Healthy("err", 30, at))
	assert.False(t, s.Healthy("unknown", 30, at))
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing_rules.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRules_AppliesDefaults(t *testing.T) {
	path := writeRules(t, `{
		"version": "1.0",
		"validation_agent": "agent_z",
		"dependency_graph": {"agent_z": {}}
	}`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLivenessMinutes, rules.LivenessMinutes)
	assert.Equal(t, DefaultFreshnessMinutes, rules.FreshnessMinutes)
	assert.Equal(t, DefaultAlertChannel, rules.AlertChannel)
}

func TestLoadRules_FailFast(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrRulesNotFound)

	_, err = LoadRules(writeRules(t, `{"version": "1.0",`))
	assert.ErrorIs(t, err, ErrRulesMalformed)

	_, err = LoadRules(writeRules(t, `{"version": "1.0", "unknown_field": true, "validation_agent": "z", "dependency_graph": {"z": {}}}`))
	assert.ErrorIs(t, err, ErrRulesMalformed, "unknown fields are rejected, not ignored")

	_, err = LoadRules(writeRules(t, `{"version": "1.0", "validation_agent": "ghost", "dependency_graph": {"agent_z": {}}}`))
	assert.ErrorIs(t, err, ErrRulesMalformed)

	_, err = LoadRules(writeRules(t, `{
		"version": "1.0",
		"validation_agent": "agent_z",
		"dependency_graph": {"agent_b": {"requires_approval": {"SUBMISSION_REQUEST": "ghost"}}, "agent_z": {}}
	}`))
	assert.ErrorIs(t, err, ErrRulesMalformed, "approval upstreams must exist in the graph")
}
