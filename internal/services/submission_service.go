package services

import (
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/conflict"
	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/history"
	"github.com/ogtalent/dispatch/internal/metrics"
	"github.com/ogtalent/dispatch/internal/models"
)

// SubmissionService runs the duplicate-submission gate over recorded history
// and owns the append-only submission log. Check-and-record is serialized
// per consultant/client pair so two concurrent requests for the same pair
// cannot both observe an empty window and both record.
type SubmissionService struct {
	db    *gorm.DB
	audit *AuditService
	dns   *DNSService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSubmissionService(db *gorm.DB, audit *AuditService, dns *DNSService) *SubmissionService {
	return &SubmissionService{db: db, audit: audit, dns: dns, locks: make(map[string]*sync.Mutex)}
}

// CheckResult pairs the gate decision with the record appended by a
// favourable check-and-record call.
type CheckResult struct {
	Decision gate.Decision      `json:"decision"`
	Recorded *models.Submission `json:"recorded,omitempty"`
}

// Check runs the duplicate gate for the request without recording anything.
func (s *SubmissionService) Check(req conflict.Request) (gate.Decision, error) {
	ix, dns, err := s.load(req)
	if err != nil {
		return gate.Decision{}, err
	}

	d, err := conflict.Check(req, ix, dns)
	if err != nil {
		return gate.Decision{}, err
	}

	if _, err := s.audit.Record("duplicate_check", d, req.ConsultantID, req.EndClient); err != nil {
		return gate.Decision{}, err
	}
	metrics.IncDecision(d.Gate, d.Verdict)
	return d, nil
}

// CheckAndRecord runs the gate and, unless it blocks, appends the submission
// to history in the same critical section.
func (s *SubmissionService) CheckAndRecord(req conflict.Request) (CheckResult, error) {
	lock := s.pairLock(req.ConsultantID, req.EndClient)
	lock.Lock()
	defer lock.Unlock()

	d, err := s.Check(req)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{Decision: d}
	if d.Verdict == conflict.DecisionBlock {
		return result, nil
	}

	record := &models.Submission{
		ConsultantID: req.ConsultantID,
		EndClient:    req.EndClient,
		VendorName:   req.VendorName,
		JobPostingID: req.JobPostingID,
		SubmittedAt:  req.SubmittedAt,
	}
	if err := s.db.Create(record).Error; err != nil {
		return CheckResult{}, fmt.Errorf("record submission: %w", err)
	}
	result.Recorded = record
	return result, nil
}

// Record appends a submission without running the gate, for imports and
// corrections made by an operator.
func (s *SubmissionService) Record(record *models.Submission) error {
	if record.ConsultantID == "" || record.SubmittedAt.IsZero() {
		return conflict.ErrMissingConsultant
	}
	return s.db.Create(record).Error
}

// History returns the consultant's recorded submissions, oldest first.
func (s *SubmissionService) History(consultantID string) ([]models.Submission, error) {
	var records []models.Submission
	err := s.db.Where("consultant_id = ?", consultantID).Order("submitted_at").Find(&records).Error
	return records, err
}

// Index builds a temporal index over the consultant's history.
func (s *SubmissionService) Index(consultantID string) (*history.Index, error) {
	records, err := s.History(consultantID)
	if err != nil {
		return nil, fmt.Errorf("load submission history: %w", err)
	}
	return history.New(records), nil
}

func (s *SubmissionService) load(req conflict.Request) (*history.Index, []models.DNSEntry, error) {
	ix, err := s.Index(req.ConsultantID)
	if err != nil {
		return nil, nil, err
	}
	dns, err := s.dns.ActiveFor(req.ConsultantID, req.SubmittedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("load do-not-submit list: %w", err)
	}
	return ix, dns, nil
}

// pairLock returns the mutex serializing one consultant/client pair. Locks
// are never evicted; the key space is bounded by the active roster.
func (s *SubmissionService) pairLock(consultantID, client string) *sync.Mutex {
	key := consultantID + "\x00" + strings.ToLower(strings.TrimSpace(client))

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
