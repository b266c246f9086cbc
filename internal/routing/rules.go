package routing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Documented threshold defaults, applied only when the rules file omits the
// field entirely.
const (
	DefaultLivenessMinutes  = 30
	DefaultFreshnessMinutes = 240
	DefaultAlertChannel     = "#alerts"
)

var (
	ErrRulesNotFound  = errors.New("routing rules file not found")
	ErrRulesMalformed = errors.New("routing rules file malformed")
)

// AgentRules declares what one agent accepts and which upstream approvals a
// message type needs before it may be delivered.
type AgentRules struct {
	// Accepts lists the message types the agent consumes. Empty means the
	// agent accepts any type.
	Accepts []string `json:"accepts"`
	// RequiresApproval maps a message type to the upstream agent that must
	// be healthy before a message of that type can be delivered here.
	RequiresApproval map[string]string `json:"requires_approval"`
	// MaxQueueDepth holds messages once the agent's queue is deeper than
	// this. Zero means no capacity limit.
	MaxQueueDepth int `json:"max_queue_depth"`
}

// Rules is the versioned routing configuration. It is parsed and validated
// once at startup; the router refuses to run on a missing or malformed file
// rather than weakening any blocking rule with a guessed default.
type Rules struct {
	Version          string                `json:"version"`
	ValidationAgent  string                `json:"validation_agent"`
	AlertChannel     string                `json:"alert_channel"`
	LivenessMinutes  int                   `json:"liveness_minutes"`
	FreshnessMinutes int                   `json:"freshness_minutes"`
	DependencyGraph  map[string]AgentRules `json:"dependency_graph"`
}

// LoadRules reads and validates the routing rules file. Any problem is fatal
// to the caller: a gate without valid rules must not produce decisions.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRulesNotFound, path)
		}
		return nil, fmt.Errorf("read routing rules: %w", err)
	}

	var rules Rules
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesMalformed, err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate applies defaults for omitted thresholds and rejects configs that
// cannot support the safety gate.
func (r *Rules) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("%w: missing version", ErrRulesMalformed)
	}
	if len(r.DependencyGraph) == 0 {
		return fmt.Errorf("%w: empty dependency graph", ErrRulesMalformed)
	}
	if r.ValidationAgent == "" {
		return fmt.Errorf("%w: missing validation agent", ErrRulesMalformed)
	}
	if _, ok := r.DependencyGraph[r.ValidationAgent]; !ok {
		return fmt.Errorf("%w: validation agent %q not in dependency graph", ErrRulesMalformed, r.ValidationAgent)
	}
	if r.LivenessMinutes < 0 || r.FreshnessMinutes < 0 {
		return fmt.Errorf("%w: negative threshold", ErrRulesMalformed)
	}
	for name, agent := range r.DependencyGraph {
		for msgType, upstream := range agent.RequiresApproval {
			if _, ok := r.DependencyGraph[upstream]; !ok {
				return fmt.Errorf("%w: %s requires approval for %s from unknown agent %q",
					ErrRulesMalformed, name, msgType, upstream)
			}
		}
	}

	if r.LivenessMinutes == 0 {
		r.LivenessMinutes = DefaultLivenessMinutes
	}
	if r.FreshnessMinutes == 0 {
		r.FreshnessMinutes = DefaultFreshnessMinutes
	}
	if r.AlertChannel == "" {
		r.AlertChannel = DefaultAlertChannel
	}
	return nil
}

// Agent looks up the declared rules for an agent.
func (r *Rules) Agent(name string) (AgentRules, bool) {
	a, ok := r.DependencyGraph[name]
	return a, ok
}

func (a AgentRules) acceptsType(msgType string) bool {
	if len(a.Accepts) == 0 {
		return true
	}
	for _, t := range a.Accepts {
		if t == msgType {
			return true
		}
	}
	return false
}
