// Package filters implements the hard-filter gate: pre-scoring elimination
// of a candidate/job pairing. Five ordered rules run first-match-wins; four
// of them ELIMINATE the pairing permanently, the daily-cap rule only SKIPs
// it for a later cycle.
package filters

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/history"
	"github.com/ogtalent/dispatch/internal/models"
)

// GateName identifies this gate in decisions and audit records.
const GateName = "hard_filter"

// Decision vocabulary for this gate.
const (
	DecisionPass      = "PASS"
	DecisionEliminate = "ELIMINATE"
	DecisionSkip      = "SKIP"
)

// DefaultDailyCap is the number of submissions one profile may make per day.
const DefaultDailyCap = 5

const recentClientWindowDays = 90

var (
	ErrMissingCandidate = errors.New("screening request has no candidate id")
	ErrMissingTimestamp = errors.New("screening request has no timestamp")
)

// Candidate describes the consultant being screened.
type Candidate struct {
	CandidateID string   `json:"candidate_id" binding:"required"`
	Name        string   `json:"name"`
	Skills      []string `json:"skills"`
	VisaStatus  string   `json:"visa_status"`
	ProfileID   string   `json:"profile_id"`
}

// Job describes the posting the candidate would be screened against.
type Job struct {
	JobID           string   `json:"job_id"`
	ClientName      string   `json:"client_name"`
	RequiredSkills  []string `json:"required_skills"`
	VisaRequirement string   `json:"visa_requirement"`
	Vendor          string   `json:"vendor"`
}

// Screen runs the hard filters for the pairing at the given time. dailyCap
// of zero or less means DefaultDailyCap.
func Screen(c Candidate, j Job, at time.Time, ix *history.Index, dns []models.DNSEntry, dailyCap int) (gate.Decision, error) {
	if c.CandidateID == "" {
		return gate.Decision{}, ErrMissingCandidate
	}
	if at.IsZero() {
		return gate.Decision{}, ErrMissingTimestamp
	}
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}

	rules := []gate.Rule{
		{Name: "DNS_LIST_CONFLICT", Eval: func() gate.Outcome { return dnsConflict(c, j, at, dns) }},
		{Name: "CATEGORY_MISMATCH", Eval: func() gate.Outcome { return categoryMismatch(c, j) }},
		{Name: "VISA_HARD_BLOCK", Eval: func() gate.Outcome { return visaHardBlock(c, j) }},
		{Name: "ALREADY_SUBMITTED", Eval: func() gate.Outcome { return alreadySubmitted(c, j, at, ix) }},
		{Name: "DAILY_LIMIT_REACHED", Eval: func() gate.Outcome { return dailyLimit(c, at, ix, dailyCap) }},
	}

	d := gate.FirstMatch(GateName, at, DecisionPass, "Candidate passed all hard filters.", rules)

	for _, skip := range ix.Skips() {
		d.Outcomes = append(d.Outcomes, gate.Note("HISTORY_RECORD_SKIPPED", skip.Reason,
			map[string]any{"record_uuid": skip.RecordUUID}))
	}

	return d, nil
}

func dnsConflict(c Candidate, j Job, at time.Time, dns []models.DNSEntry) gate.Outcome {
	for _, entry := range dns {
		if entry.ConsultantID != c.CandidateID {
			continue
		}
		if !entry.Matches(j.ClientName, j.Vendor, at) {
			continue
		}
		reason := fmt.Sprintf("Candidate on DNS list for client %s: %s", entry.Company, entry.Reason)
		return gate.Fire("", gate.ClassEliminate, DecisionEliminate, reason, map[string]any{
			"dns_uuid": entry.UUID,
			"company":  entry.Company,
			"vendor":   entry.Vendor,
		})
	}
	return gate.Abstain("")
}

// categoryMismatch eliminates on zero overlap with the required skill set.
// A job that lists no required skills never triggers this rule.
func categoryMismatch(c Candidate, j Job) gate.Outcome {
	if len(j.RequiredSkills) == 0 {
		return gate.Abstain("")
	}

	have := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}
	overlap := 0
	for _, req := range j.RequiredSkills {
		if have[strings.ToLower(strings.TrimSpace(req))] {
			overlap++
		}
	}
	if overlap > 0 {
		return gate.Abstain("")
	}

	return gate.Fire("", gate.ClassEliminate, DecisionEliminate,
		"Category mismatch: zero overlap with required skills", map[string]any{
			"candidate_skills": c.Skills,
			"required_skills":  j.RequiredSkills,
			"overlap_count":    0,
		})
}

// visaHardBlock eliminates when the job's visa requirement explicitly
// excludes the candidate's status, e.g. "no H1B" or "exclude OPT".
func visaHardBlock(c Candidate, j Job) gate.Outcome {
	visa := strings.ToLower(strings.TrimSpace(c.VisaStatus))
	req := strings.ToLower(strings.TrimSpace(j.VisaRequirement))
	if visa == "" || req == "" || req == "any" || req == "unknown" {
		return gate.Abstain("")
	}

	if excludesVisa(req, visa) {
		reason := fmt.Sprintf("Job explicitly excludes %s visa status", c.VisaStatus)
		return gate.Fire("", gate.ClassEliminate, DecisionEliminate, reason, map[string]any{
			"candidate_visa":  c.VisaStatus,
			"job_requirement": j.VisaRequirement,
		})
	}
	return gate.Abstain("")
}

// excludesVisa parses exclusion phrasing ("no X", "exclude X", "not X") out
// of free-text visa requirements.
func excludesVisa(requirement, visa string) bool {
	for _, phrase := range []string{"no ", "exclude ", "not "} {
		rest := requirement
		for {
			idx := strings.Index(rest, phrase)
			if idx < 0 {
				break
			}
			tail := rest[idx+len(phrase):]
			fields := strings.Fields(tail)
			if len(fields) > 0 && strings.TrimRight(fields[0], ",.;") == visa {
				return true
			}
			rest = tail
		}
	}
	return strings.Contains(requirement, "no "+visa)
}

// alreadySubmitted eliminates on an exact posting duplicate or any
// submission to the same client within the trailing 90 days.
func alreadySubmitted(c Candidate, j Job, at time.Time, ix *history.Index) gate.Outcome {
	if dups := ix.PostingDuplicates(c.CandidateID, j.JobID); len(dups) > 0 {
		reason := fmt.Sprintf("Exact duplicate: already submitted to posting %s on %s",
			j.JobID, dups[0].SubmittedAt.UTC().Format("2006-01-02"))
		return gate.Fire("", gate.ClassEliminate, DecisionEliminate, reason, map[string]any{
			"record_uuid": dups[0].UUID,
			"status":      dups[0].Status,
		})
	}

	if recent := ix.ClientSubmissionsWithin(c.CandidateID, j.ClientName, at, recentClientWindowDays); len(recent) > 0 {
		reason := fmt.Sprintf("Recent submission to %s within %d days (%s)",
			j.ClientName, recentClientWindowDays, recent[0].SubmittedAt.UTC().Format("2006-01-02"))
		return gate.Fire("", gate.ClassEliminate, DecisionEliminate, reason, map[string]any{
			"record_uuid": recent[0].UUID,
			"days_ago":    history.DaysBetween(recent[0].SubmittedAt, at),
			"status":      recent[0].Status,
		})
	}

	return gate.Abstain("")
}

// dailyLimit defers the pairing when the candidate's profile already hit its
// daily cap. SKIP, not ELIMINATE: the pairing stays viable tomorrow.
func dailyLimit(c Candidate, at time.Time, ix *history.Index, limit int) gate.Outcome {
	profileID := c.ProfileID
	if profileID == "" {
		profileID = c.CandidateID
	}

	today := ix.ProfileCountOn(profileID, at)
	if today < limit {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("Profile %s reached its daily submission cap (%d). Defer to a later cycle.", profileID, limit)
	return gate.Fire("", gate.ClassSkip, DecisionSkip, reason, map[string]any{
		"profile_id":         profileID,
		"applications_today": today,
		"daily_cap":          limit,
	})
}
