package services

import (
	"time"

	"github.com/ogtalent/dispatch/internal/cannibal"
	"github.com/ogtalent/dispatch/internal/filters"
	"github.com/ogtalent/dispatch/internal/gate"
	"github.com/ogtalent/dispatch/internal/metrics"
)

// ScreeningService runs the pre-scoring gates, hard filters and
// anti-cannibalization, over recorded history.
type ScreeningService struct {
	submissions *SubmissionService
	audit       *AuditService
	dns         *DNSService
	dailyCap    int
}

// NewScreeningService wires the screening gates. dailyCap of zero means the
// built-in default.
func NewScreeningService(submissions *SubmissionService, audit *AuditService, dns *DNSService, dailyCap int) *ScreeningService {
	return &ScreeningService{submissions: submissions, audit: audit, dns: dns, dailyCap: dailyCap}
}

// Screen runs the hard filters for a candidate/job pairing at the given time.
func (s *ScreeningService) Screen(c filters.Candidate, j filters.Job, at time.Time) (gate.Decision, error) {
	ix, err := s.submissions.Index(c.CandidateID)
	if err != nil {
		return gate.Decision{}, err
	}
	dns, err := s.dns.ActiveFor(c.CandidateID, at)
	if err != nil {
		return gate.Decision{}, err
	}

	d, err := filters.Screen(c, j, at, ix, dns, s.dailyCap)
	if err != nil {
		return gate.Decision{}, err
	}

	if _, err := s.audit.Record("hard_filter_screen", d, c.CandidateID, j.JobID); err != nil {
		return gate.Decision{}, err
	}
	metrics.IncDecision(d.Gate, d.Verdict)
	return d, nil
}

// CheckCannibalization runs the anti-cannibalization gate for a proposed
// application.
func (s *ScreeningService) CheckCannibalization(app cannibal.Application) (gate.Decision, error) {
	ix, err := s.submissions.Index(app.CandidateID)
	if err != nil {
		return gate.Decision{}, err
	}

	d, err := cannibal.Check(app, ix)
	if err != nil {
		return gate.Decision{}, err
	}

	if _, err := s.audit.Record("cannibalization_check", d, app.CandidateID, app.JobID); err != nil {
		return gate.Decision{}, err
	}
	metrics.IncDecision(d.Gate, d.Verdict)
	return d, nil
}
