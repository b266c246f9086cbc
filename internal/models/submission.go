package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus tracks the lifecycle of a recorded submission.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "PENDING"
	SubmissionStatusRejected SubmissionStatus = "REJECTED"
	SubmissionStatusAccepted SubmissionStatus = "ACCEPTED"
	SubmissionStatusPlaced   SubmissionStatus = "PLACED"
)

// Submission is a historical record of a candidate being put forward for a
// job. Records are append-only: gates read them, callers append them after a
// favourable decision, nothing edits them.
type Submission struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	UUID         string           `json:"uuid" gorm:"uniqueIndex"`
	ConsultantID string           `json:"consultant_id" gorm:"index"`
	ProfileID    string           `json:"profile_id" gorm:"index"`
	EndClient    string           `json:"end_client" gorm:"index"`
	VendorName   string           `json:"vendor_name"`
	JobPostingID string           `json:"job_posting_id" gorm:"index"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = SubmissionStatusPending
	}
	return
}
