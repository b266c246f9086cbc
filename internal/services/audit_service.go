package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/models"
)

var ErrAuditEventNotFound = errors.New("audit event not found")

// AuditService persists one record per gate invocation, twice: a queryable
// row in the database and an append-only JSONL line on disk. A decision that
// cannot be recorded is returned as an error to the caller; gates must not
// hand out unaudited verdicts.
type AuditService struct {
	db   *gorm.DB
	path string

	mu sync.Mutex // serializes JSONL appends
}

func NewAuditService(db *gorm.DB, path string) *AuditService {
	return &AuditService{db: db, path: path}
}

// auditLine is the JSONL representation of one gate invocation.
type auditLine struct {
	UUID      string         `json:"uuid"`
	EventType string         `json:"event_type"`
	Gate      string         `json:"gate"`
	SubjectID string         `json:"subject_id"`
	TargetID  string         `json:"target_id,omitempty"`
	Verdict   string         `json:"verdict"`
	Rule      string         `json:"rule,omitempty"`
	Reason    string         `json:"reason"`
	Outcomes  []gate.Outcome `json:"outcomes"`
	DecidedAt time.Time      `json:"decided_at"`
	WrittenAt time.Time      `json:"written_at"`
}

// Record writes the decision to both stores and returns the stored event.
// Evidence is the gate's full outcome trail, serialized as JSON.
func (s *AuditService) Record(eventType string, d gate.Decision, subjectID, targetID string) (*models.AuditEvent, error) {
	evidence, err := json.Marshal(d.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("serialize audit evidence: %w", err)
	}

	event := &models.AuditEvent{
		EventType:     eventType,
		Gate:          d.Gate,
		SubjectID:     subjectID,
		TargetID:      targetID,
		DecisionClass: d.Verdict,
		RuleTriggered: d.Rule,
		Reason:        d.Reason,
		Evidence:      string(evidence),
		DecidedAt:     d.DecidedAt,
	}
	if err := s.db.Create(event).Error; err != nil {
		return nil, fmt.Errorf("store audit event: %w", err)
	}

	if err := s.appendLine(event, d); err != nil {
		return nil, fmt.Errorf("append audit log: %w", err)
	}
	return event, nil
}

func (s *AuditService) appendLine(event *models.AuditEvent, d gate.Decision) error {
	line, err := json.Marshal(auditLine{
		UUID:      event.UUID,
		EventType: event.EventType,
		Gate:      d.Gate,
		SubjectID: event.SubjectID,
		TargetID:  event.TargetID,
		Verdict:   d.Verdict,
		Rule:      d.Rule,
		Reason:    d.Reason,
		Outcomes:  d.Outcomes,
		DecidedAt: d.DecidedAt,
		WrittenAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// Recent returns the newest events, most recent first.
func (s *AuditService) Recent(limit int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []models.AuditEvent
	err := s.db.Order("id desc").Limit(limit).Find(&events).Error
	return events, err
}

// ForSubject returns every event recorded for the subject, newest first.
func (s *AuditService) ForSubject(subjectID string) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := s.db.Where("subject_id = ?", subjectID).Order("id desc").Find(&events).Error
	return events, err
}

// Get looks up a single event by its UUID.
func (s *AuditService) Get(uuid string) (*models.AuditEvent, error) {
	var event models.AuditEvent
	if err := s.db.Where("uuid = ?", uuid).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuditEventNotFound
		}
		return nil, err
	}
	return &event, nil
}
