package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DNSEntry is a do-not-submit record: the consultant must not be proposed to
// the company. An entry with an empty Vendor is company-wide; a vendor-scoped
// entry only applies when the submission goes through that vendor.
type DNSEntry struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UUID         string     `json:"uuid" gorm:"uniqueIndex"`
	ConsultantID string     `json:"consultant_id" gorm:"index"`
	Company      string     `json:"company"`
	Vendor       string     `json:"vendor"`
	Reason       string     `json:"reason"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (d *DNSEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	return
}

// Expired reports whether the entry no longer applies at the given time.
// Entries without an expiry never expire.
func (d *DNSEntry) Expired(at time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(at)
}

// Matches reports whether the entry applies to a proposed submission.
// Company comparison is case-insensitive and whitespace-trimmed. A
// vendor-scoped entry matches only its vendor — except when the request
// carries no vendor at all, in which case the scope cannot be ruled out and
// the entry matches (prefer blocking over silently allowing).
func (d *DNSEntry) Matches(company, vendor string, at time.Time) bool {
	if d.Expired(at) {
		return false
	}
	if !EqualFold(d.Company, company) {
		return false
	}
	if d.Vendor == "" || vendor == "" {
		return true
	}
	return EqualFold(d.Vendor, vendor)
}

// EqualFold compares organization names case-insensitively after trimming
// surrounding whitespace. Empty names never match anything.
func EqualFold(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
