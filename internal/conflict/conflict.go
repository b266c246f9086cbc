// Package conflict implements the duplicate-submission gate: five ordered
// rules over a proposed submission, the consultant's submission history and
// the do-not-submit list. Every rule is evaluated (no short-circuit) and the
// outcomes reduce under BLOCK > WARN > LOG, so the audit trail always shows
// the full picture even when an early rule already blocks.
package conflict

import (
	"errors"
	"fmt"
	"time"

	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/history"
	"github.com/ogtalent/dispatch/internal/models"
)

// GateName identifies this gate in decisions and audit records.
const GateName = "duplicate_submission"

// Decision vocabulary for this gate.
const (
	DecisionAllow = "ALLOW"
	DecisionBlock = "BLOCK"
	DecisionWarn  = "WARN"
)

// Trailing windows, in whole calendar days.
const (
	sameClientWindowDays  = 90
	crossVendorWindowDays = 30
)

var (
	ErrMissingConsultant = errors.New("submission request has no consultant id")
	ErrMissingTimestamp  = errors.New("submission request has no timestamp")
)

// Request is a proposed submission. Immutable once constructed; the gate
// never writes it anywhere.
type Request struct {
	ConsultantID string    `json:"consultant_id" binding:"required"`
	EndClient    string    `json:"end_client"`
	VendorName   string    `json:"vendor_name"`
	JobPostingID string    `json:"job_posting_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Check evaluates the five duplicate rules for the request against history
// and the DNS list. It returns exactly one Decision; the only errors are for
// requests malformed beyond evaluation (no consultant, no timestamp).
func Check(req Request, ix *history.Index, dns []models.DNSEntry) (gate.Decision, error) {
	if req.ConsultantID == "" {
		return gate.Decision{}, ErrMissingConsultant
	}
	if req.SubmittedAt.IsZero() {
		return gate.Decision{}, ErrMissingTimestamp
	}

	rules := []gate.Rule{
		{Name: "R1_SAME_CLIENT_90D", Eval: func() gate.Outcome { return sameClientRecently(req, ix) }},
		{Name: "R2_EXACT_POSTING_DUPLICATE", Eval: func() gate.Outcome { return exactPostingDuplicate(req, ix) }},
		{Name: "R3_CROSS_VENDOR_30D", Eval: func() gate.Outcome { return crossVendorRecently(req, ix) }},
		{Name: "R4_PEER_SAME_POSTING", Eval: func() gate.Outcome { return peerOnSamePosting(req, ix) }},
		{Name: "R5_DO_NOT_SUBMIT", Eval: func() gate.Outcome { return doNotSubmit(req, dns) }},
	}

	d := gate.BySeverity(GateName, req.SubmittedAt, DecisionAllow, "No conflicts detected. Submission cleared.", rules)

	for _, skip := range ix.Skips() {
		d.Outcomes = append(d.Outcomes, gate.Note("HISTORY_RECORD_SKIPPED", skip.Reason,
			map[string]any{"record_uuid": skip.RecordUUID}))
	}

	return d, nil
}

// sameClientRecently (R1): same consultant and end client within the last 90
// days blocks, whatever the vendor — right-to-represent exposure. Records
// matching the exact posting are left to R2 so one prior submission is not
// counted twice.
func sameClientRecently(req Request, ix *history.Index) gate.Outcome {
	var conflicts []models.Submission
	for _, r := range ix.ClientSubmissionsWithin(req.ConsultantID, req.EndClient, req.SubmittedAt, sameClientWindowDays) {
		if req.JobPostingID != "" && r.JobPostingID == req.JobPostingID {
			continue
		}
		conflicts = append(conflicts, r)
	}
	if len(conflicts) == 0 {
		return gate.Abstain("")
	}

	first := conflicts[0]
	reason := fmt.Sprintf("submitted to %s on %s via %s (%d days ago)",
		first.EndClient, first.SubmittedAt.UTC().Format("2006-01-02"), first.VendorName,
		history.DaysBetween(first.SubmittedAt, req.SubmittedAt))
	return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, conflictEvidence(conflicts))
}

// exactPostingDuplicate (R2): same consultant and identical posting id is an
// exact duplicate on any date.
func exactPostingDuplicate(req Request, ix *history.Index) gate.Outcome {
	conflicts := ix.PostingDuplicates(req.ConsultantID, req.JobPostingID)
	if len(conflicts) == 0 {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("already submitted to posting %s on %s (exact duplicate)",
		req.JobPostingID, conflicts[0].SubmittedAt.UTC().Format("2006-01-02"))
	return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, conflictEvidence(conflicts))
}

// crossVendorRecently (R3): same consultant and client through a different
// vendor within 30 days warns of a vendor dispute. Whenever the client
// matches, R1's 90-day window is a strict superset of this one, so R3 cannot
// decide on its own against valid history; it is kept for its evidence value
// and the overlap is called out here rather than silently removed.
func crossVendorRecently(req Request, ix *history.Index) gate.Outcome {
	var conflicts []models.Submission
	for _, r := range ix.ClientSubmissionsWithin(req.ConsultantID, req.EndClient, req.SubmittedAt, crossVendorWindowDays) {
		if models.EqualFold(r.VendorName, req.VendorName) {
			continue
		}
		conflicts = append(conflicts, r)
	}
	if len(conflicts) == 0 {
		return gate.Abstain("")
	}

	first := conflicts[0]
	reason := fmt.Sprintf("submitted to %s via %s on %s; current request via %s",
		first.EndClient, first.VendorName, first.SubmittedAt.UTC().Format("2006-01-02"), req.VendorName)
	ev := conflictEvidence(conflicts)
	ev["shadowed_by"] = "R1_SAME_CLIENT_90D"
	return gate.Fire("", gate.ClassWarn, DecisionWarn, reason, ev)
}

// peerOnSamePosting (R4): a different consultant already went to this posting
// through the same vendor. Recorded for visibility, never decides.
func peerOnSamePosting(req Request, ix *history.Index) gate.Outcome {
	peers := ix.PostingVendorPeers(req.ConsultantID, req.JobPostingID, req.VendorName)
	if len(peers) == 0 {
		return gate.Abstain("")
	}

	reason := fmt.Sprintf("consultant %s already submitted to posting %s via %s",
		peers[0].ConsultantID, req.JobPostingID, peers[0].VendorName)
	return gate.Fire("", gate.ClassLog, DecisionAllow, reason, conflictEvidence(peers))
}

// doNotSubmit (R5): the consultant is on the DNS list for this client.
// Vendor-scoped entries block only their vendor, except that a request with
// no vendor is treated as matching every scope.
func doNotSubmit(req Request, dns []models.DNSEntry) gate.Outcome {
	for _, entry := range dns {
		if entry.ConsultantID != req.ConsultantID {
			continue
		}
		if !entry.Matches(req.EndClient, req.VendorName, req.SubmittedAt) {
			continue
		}

		scope := "company-wide"
		if entry.Vendor != "" {
			scope = "vendor: " + entry.Vendor
		}
		reason := fmt.Sprintf("consultant on do-not-submit list for %s (%s), reason: %s",
			entry.Company, scope, entry.Reason)
		return gate.Fire("", gate.ClassBlock, DecisionBlock, reason, map[string]any{
			"dns_uuid": entry.UUID,
			"company":  entry.Company,
			"vendor":   entry.Vendor,
		})
	}
	return gate.Abstain("")
}

func conflictEvidence(records []models.Submission) map[string]any {
	refs := make([]map[string]any, 0, len(records))
	for _, r := range records {
		refs = append(refs, map[string]any{
			"record_uuid":    r.UUID,
			"end_client":     r.EndClient,
			"vendor_name":    r.VendorName,
			"job_posting_id": r.JobPostingID,
			"submitted_at":   r.SubmittedAt.UTC().Format(time.RFC3339),
			"status":         r.Status,
		})
	}
	return map[string]any{"conflicts": refs}
}
