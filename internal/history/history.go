// Package history answers temporal questions over an ordered collection of
// past submission records: which records for an entity fall within N whole
// calendar days of a request timestamp, with the boundary day inclusive. It
// is a pure query layer; nothing here mutates the records.
package history

import (
	"fmt"
	"time"

	"github.com/ogtalent/dispatch/internal/models"
)

// Skip notes a historical record that could not be used for windowing.
type Skip struct {
	RecordUUID string `json:"record_uuid"`
	Reason     string `json:"reason"`
}

// Index wraps a snapshot of submission history. Records missing a consultant
// id or a usable timestamp are set aside at construction; gates surface them
// as LOG-class evidence instead of failing the whole decision.
type Index struct {
	records []models.Submission
	skips   []Skip
}

// New validates the snapshot and builds an index over the usable records.
func New(records []models.Submission) *Index {
	ix := &Index{records: make([]models.Submission, 0, len(records))}
	for i, r := range records {
		if r.ConsultantID == "" {
			ix.skips = append(ix.skips, Skip{RecordUUID: r.UUID, Reason: fmt.Sprintf("record %d has no consultant id", i)})
			continue
		}
		if r.SubmittedAt.IsZero() {
			ix.skips = append(ix.skips, Skip{RecordUUID: r.UUID, Reason: fmt.Sprintf("record %d has no submission timestamp", i)})
			continue
		}
		ix.records = append(ix.records, r)
	}
	return ix
}

// Skips returns the records excluded at construction time.
func (ix *Index) Skips() []Skip { return ix.skips }

// Len returns the number of usable records.
func (ix *Index) Len() int { return len(ix.records) }

// ForConsultant returns every usable record for the consultant.
func (ix *Index) ForConsultant(id string) []models.Submission {
	var out []models.Submission
	for _, r := range ix.records {
		if r.ConsultantID == id {
			out = append(out, r)
		}
	}
	return out
}

// PostingDuplicates returns records where the consultant was already
// submitted to the exact job posting, regardless of date.
func (ix *Index) PostingDuplicates(consultantID, jobPostingID string) []models.Submission {
	var out []models.Submission
	if jobPostingID == "" {
		return out
	}
	for _, r := range ix.records {
		if r.ConsultantID == consultantID && r.JobPostingID == jobPostingID {
			out = append(out, r)
		}
	}
	return out
}

// ClientSubmissionsWithin returns the consultant's submissions to the client
// within the trailing window, boundary day inclusive.
func (ix *Index) ClientSubmissionsWithin(consultantID, client string, at time.Time, days int) []models.Submission {
	var out []models.Submission
	for _, r := range ix.records {
		if r.ConsultantID != consultantID {
			continue
		}
		if !models.EqualFold(r.EndClient, client) {
			continue
		}
		if WithinDays(r.SubmittedAt, at, days) {
			out = append(out, r)
		}
	}
	return out
}

// ClientSubmissions returns the consultant's submissions to the client over
// all time.
func (ix *Index) ClientSubmissions(consultantID, client string) []models.Submission {
	var out []models.Submission
	for _, r := range ix.records {
		if r.ConsultantID == consultantID && models.EqualFold(r.EndClient, client) {
			out = append(out, r)
		}
	}
	return out
}

// VendorClientWithin narrows ClientSubmissionsWithin to a single vendor.
func (ix *Index) VendorClientWithin(consultantID, client, vendor string, at time.Time, days int) []models.Submission {
	var out []models.Submission
	for _, r := range ix.ClientSubmissionsWithin(consultantID, client, at, days) {
		if models.EqualFold(r.VendorName, vendor) {
			out = append(out, r)
		}
	}
	return out
}

// ClientCountOn counts the consultant's submissions to the client on the
// calendar day of the given timestamp.
func (ix *Index) ClientCountOn(consultantID, client string, day time.Time) int {
	n := 0
	for _, r := range ix.records {
		if r.ConsultantID == consultantID && models.EqualFold(r.EndClient, client) && SameDay(r.SubmittedAt, day) {
			n++
		}
	}
	return n
}

// ProfileCountOn counts submissions recorded against the profile on the
// calendar day of the given timestamp.
func (ix *Index) ProfileCountOn(profileID string, day time.Time) int {
	if profileID == "" {
		return 0
	}
	n := 0
	for _, r := range ix.records {
		if r.ProfileID == profileID && SameDay(r.SubmittedAt, day) {
			n++
		}
	}
	return n
}

// PostingVendorPeers returns records where a different consultant was
// submitted to the same posting via the same vendor.
func (ix *Index) PostingVendorPeers(consultantID, jobPostingID, vendor string) []models.Submission {
	var out []models.Submission
	if jobPostingID == "" {
		return out
	}
	for _, r := range ix.records {
		if r.ConsultantID == consultantID {
			continue
		}
		if r.JobPostingID == jobPostingID && models.EqualFold(r.VendorName, vendor) {
			out = append(out, r)
		}
	}
	return out
}

// dayUTC truncates a timestamp to its UTC calendar day.
func dayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WithinDays reports whether record falls inside the trailing window of
// whole calendar days measured back from at. The boundary day counts: a
// record exactly `days` days old is inside the window, one day older is not.
// Records dated after at's day are never inside (gates read history up to
// "now" only).
func WithinDays(record, at time.Time, days int) bool {
	rd := dayUTC(record)
	ad := dayUTC(at)
	cutoff := ad.AddDate(0, 0, -days)
	return !rd.Before(cutoff) && !rd.After(ad)
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return dayUTC(a).Equal(dayUTC(b))
}

// DaysBetween returns the whole-calendar-day distance from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	return int(dayUTC(later).Sub(dayUTC(earlier)) / (24 * time.Hour))
}
