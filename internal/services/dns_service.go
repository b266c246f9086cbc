package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/models"
)

var (
	ErrDNSEntryNotFound = errors.New("do-not-submit entry not found")
	ErrDNSEntryInvalid  = errors.New("do-not-submit entry needs a consultant and a company")
)

// DNSService manages the do-not-submit list the gates consult. Expired
// entries stay in the table for the audit trail; gates only ever see the
// active set.
type DNSService struct {
	db *gorm.DB
}

func NewDNSService(db *gorm.DB) *DNSService {
	return &DNSService{db: db}
}

// Create validates and stores a new entry.
func (s *DNSService) Create(entry *models.DNSEntry) error {
	if entry.ConsultantID == "" || entry.Company == "" {
		return ErrDNSEntryInvalid
	}
	return s.db.Create(entry).Error
}

// List returns every entry, active or not, newest first.
func (s *DNSService) List() ([]models.DNSEntry, error) {
	var entries []models.DNSEntry
	return entries, s.db.Order("id desc").Find(&entries).Error
}

// ActiveFor returns the consultant's unexpired entries as of the given time.
func (s *DNSService) ActiveFor(consultantID string, at time.Time) ([]models.DNSEntry, error) {
	var entries []models.DNSEntry
	if err := s.db.Where("consultant_id = ?", consultantID).Find(&entries).Error; err != nil {
		return nil, err
	}

	active := entries[:0]
	for _, e := range entries {
		if !e.Expired(at) {
			active = append(active, e)
		}
	}
	return active, nil
}

// Delete removes an entry by its UUID.
func (s *DNSService) Delete(uuid string) error {
	result := s.db.Where("uuid = ?", uuid).Delete(&models.DNSEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDNSEntryNotFound
	}
	return nil
}
