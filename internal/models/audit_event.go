package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent stores one gate invocation so decisions can be audited and
// surfaced in the UI. Exactly one row per gate call, whatever the outcome.
type AuditEvent struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UUID          string    `json:"uuid" gorm:"uniqueIndex"`
	EventType     string    `json:"event_type"` // e.g. routing_decision, duplicate_check
	Gate          string    `json:"gate"`
	SubjectID     string    `json:"subject_id" gorm:"index"`
	TargetID      string    `json:"target_id"`
	DecisionClass string    `json:"decision_class"`
	RuleTriggered string    `json:"rule_triggered"`
	Reason        string    `json:"reason"`
	Evidence      string    `json:"evidence" gorm:"type:text"` // full rule-outcome list, JSON
	DecidedAt     time.Time `json:"decided_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a *AuditEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	return
}
