// Package cannibal implements the anti-cannibalization gate: it stops one
// recruiting agent's own submissions from competing with each other for the
// same opportunity. Four ordered rules run first-match-wins; any firing rule
// blocks the proposed application.
package cannibal

import (
	"errors"
	"fmt"
	"time"

	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/history"
)

// GateName identifies this gate in decisions and audit records.
const GateName = "anti_cannibalization"

// Decision vocabulary for this gate.
const (
	DecisionAllow = "ALLOW"
	DecisionBlock = "BLOCK"
)

const (
	// vendorRepeatWindowDays is the cool-off for the same candidate, client
	// and vendor combination.
	vendorRepeatWindowDays = 7
	// dailyClientLimit is how many same-day submissions to one client a
	// candidate may accumulate before further ones are blocked.
	dailyClientLimit = 3
)

var (
	ErrMissingCandidate = errors.New("application has no candidate id")
	ErrMissingTimestamp = errors.New("application has no timestamp")
)

// Application is the proposed submission under review.
type Application struct {
	CandidateID string    `json:"candidate_id" binding:"required"`
	ProfileID   string    `json:"profile_id"`
	JobID       string    `json:"job_id"`
	ClientName  string    `json:"client_name"`
	VendorName  string    `json:"vendor_name"`
	Timestamp   time.Time `json:"timestamp"`
}

// Check evaluates the four anti-cannibalization rules for the application
// against the agent's own submission history.
func Check(app Application, ix *history.Index) (gate.Decision, error) {
	if app.CandidateID == "" {
		return gate.Decision{}, ErrMissingCandidate
	}
	if app.Timestamp.IsZero() {
		return gate.Decision{}, ErrMissingTimestamp
	}

	rules := []gate.Rule{
		{Name: "ONE_CANDIDATE_PER_JOB", Eval: func() gate.Outcome { return oneCandidatePerJob(app, ix) }},
		{Name: "ONE_CANDIDATE_PER_CLIENT_PER_VENDOR_PER_WEEK", Eval: func() gate.Outcome { return vendorRepeat(app, ix) }},
		{Name: "ONE_PROFILE_PER_CLIENT_EVER", Eval: func() gate.Outcome { return profileConsistency(app, ix) }},
		{Name: "DIVERSIFY_ACROSS_CLIENTS", Eval: func() gate.Outcome { return diversifyClients(app, ix) }},
	}

	d := gate.FirstMatch(GateName, app.Timestamp, DecisionAllow,
		"Application does not cannibalize recent submissions.", rules)

	for _, skip := range ix.Skips() {
		d.Outcomes = append(d.Outcomes, gate.Note("HISTORY_RECORD_SKIPPED", skip.Reason,
			map[string]any{"record_uuid": skip.RecordUUID}))
	}

	return d, nil
}

// oneCandidatePerJob: the same candidate never goes to the same posting
// twice, whatever the vendor or profile.
func oneCandidatePerJob(app Application, ix *history.Index) gate.Outcome {
	dups := ix.PostingDuplicates(app.CandidateID, app.JobID)
	if len(dups) == 0 {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("Candidate %s already submitted to job %s", app.CandidateID, app.JobID)
	return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, map[string]any{
		"record_uuid":        dups[0].UUID,
		"previous_profile":   dups[0].ProfileID,
		"previous_submitted": dups[0].SubmittedAt.UTC().Format(time.RFC3339),
	})
}

// vendorRepeat: the same candidate/client/vendor combination must not repeat
// within a week; back-to-back submissions from one agency read as spam.
func vendorRepeat(app Application, ix *history.Index) gate.Outcome {
	repeats := ix.VendorClientWithin(app.CandidateID, app.ClientName, app.VendorName, app.Timestamp, vendorRepeatWindowDays)
	if len(repeats) == 0 {
		return gate.Abstain("")
	}

	daysAgo := history.DaysBetween(repeats[0].SubmittedAt, app.Timestamp)
	reason := fmt.Sprintf("Competing submission from %s to %s %d days ago", app.VendorName, app.ClientName, daysAgo)
	return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, map[string]any{
		"record_uuid": repeats[0].UUID,
		"days_ago":    daysAgo,
		"window_days": vendorRepeatWindowDays,
	})
}

// profileConsistency: once a client has seen a profile for this candidate,
// every later submission to that client must use the same profile.
func profileConsistency(app Application, ix *history.Index) gate.Outcome {
	if app.ProfileID == "" {
		return gate.Abstain("")
	}
	for _, r := range ix.ClientSubmissions(app.CandidateID, app.ClientName) {
		if r.ProfileID == "" || r.ProfileID == app.ProfileID {
			continue
		}
		reason := fmt.Sprintf("Candidate %s already presented to %s under profile %s; proposed profile %s breaks consistency",
			app.CandidateID, app.ClientName, r.ProfileID, app.ProfileID)
		return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, map[string]any{
			"record_uuid":      r.UUID,
			"previous_profile": r.ProfileID,
			"proposed_profile": app.ProfileID,
		})
	}
	return gate.Abstain("")
}

// diversifyClients: three same-day submissions to one client is the ceiling;
// the rest of the day's capacity has to spread across other clients.
func diversifyClients(app Application, ix *history.Index) gate.Outcome {
	today := ix.ClientCountOn(app.CandidateID, app.ClientName, app.Timestamp)
	if today < dailyClientLimit {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("Already %d applications to %s today. Diversify across clients.", today, app.ClientName)
	return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, map[string]any{
		"applications_today": today,
		"limit":              dailyClientLimit,
	})
}
