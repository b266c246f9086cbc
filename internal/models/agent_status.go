package models

import (
	"time"
)

// AgentState is the liveness classification of an autonomous agent.
type AgentState string

const (
	AgentStateActive AgentState = "ACTIVE"
	AgentStateIdle   AgentState = "IDLE"
	AgentStateSlow   AgentState = "SLOW"
	AgentStateError  AgentState = "ERROR"
	AgentStateDead   AgentState = "DEAD"
)

// AgentStatus is the last known health snapshot for one agent, refreshed by
// heartbeat ingest and the periodic sweep. The routing gate only ever reads
// an immutable copy of these rows.
type AgentStatus struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"uniqueIndex"`
	State          AgentState `json:"state"`
	LastActivity   time.Time  `json:"last_activity"`
	QueueDepth     int        `json:"queue_depth"`
	CurrentTask    string     `json:"current_task"`
	DataAgeMinutes int        `json:"data_age_minutes"`
	LastError      string     `json:"last_error,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
