package cannibal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogtalent/dispatch/internal/history"
	"github.com/ogtalent/dispatch/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func application(at time.Time) Application {
	return Application{
		CandidateID: "C-042",
		ProfileID:   "P-7",
		JobID:       "JOB-1",
		ClientName:  "Acme",
		VendorName:  "TrueNorth",
		Timestamp:   at,
	}
}

func TestCheck_EmptyHistoryAllows(t *testing.T) {
	d, err := Check(application(day(2026, 3, 1)), history.New(nil))
	require.NoError(t, err)

	assert.Equal(t, GateName, d.Gate)
	assert.Equal(t, DecisionAllow, d.Verdict)
}

func TestCheck_MalformedApplication(t *testing.T) {
	_, err := Check(Application{Timestamp: day(2026, 3, 1)}, history.New(nil))
	assert.ErrorIs(t, err, ErrMissingCandidate)

	_, err = Check(Application{CandidateID: "C-042"}, history.New(nil))
	assert.ErrorIs(t, err, ErrMissingTimestamp)
}

func TestCheck_SameJobTwiceBlocks(t *testing.T) {
	at := day(2026, 3, 1)
	ix := history.New([]models.Submission{{
		UUID: "sub-1", ConsultantID: "C-042", ProfileID: "P-7", EndClient: "Acme",
		VendorName: "Infosys", JobPostingID: "JOB-1", SubmittedAt: at.AddDate(0, -6, 0),
	}})

	d, err := Check(application(at), ix)
	require.NoError(t, err)

	assert.Equal(t, DecisionBlock, d.Verdict)
	assert.Equal(t, "ONE_CANDIDATE_PER_JOB", d.Rule, "the job rule ignores vendor and recency")
}

func TestCheck_VendorRepeatWithinWeekBlocks(t *testing.T) {
	at := day(2026, 3, 10)
	mk := func(daysAgo int) *history.Index {
		return history.New([]models.Submission{{
			UUID: "sub-1", ConsultantID: "C-042", ProfileID: "P-7", EndClient: "Acme",
			VendorName: "TrueNorth", JobPostingID: "JOB-9", SubmittedAt: at.AddDate(0, 0, -daysAgo),
		}})
	}

	d, err := Check(application(at), mk(5))
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d.Verdict)
	assert.Equal(t, "ONE_CANDIDATE_PER_CLIENT_PER_VENDOR_PER_WEEK", d.Rule)
	assert.Contains(t, d.Reason, "5 days ago")

	d, err = Check(application(at), mk(7))
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d.Verdict, "day 7 is inside the cool-off")

	d, err = Check(application(at), mk(8))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict, "day 8 is outside the cool-off")
}

func TestCheck_DifferentVendorEscapesWeeklyRule(t *testing.T) {
	at := day(2026, 3, 10)
	ix := history.New([]models.Submission{{
		UUID: "sub-1", ConsultantID: "C-042", ProfileID: "P-7", EndClient: "Acme",
		VendorName: "Infosys", JobPostingID: "JOB-9", SubmittedAt: at.AddDate(0, 0, -2),
	}})

	d, err := Check(application(at), ix)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict, "the weekly rule is scoped to one vendor")
}

func TestCheck_ProfileSwitchForKnownClientBlocks(t *testing.T) {
	at := day(2026, 3, 10)
	ix := history.New([]models.Submission{{
		UUID: "sub-1", ConsultantID: "C-042", ProfileID: "P-2", EndClient: "ACME",
		VendorName: "Infosys", JobPostingID: "JOB-9", SubmittedAt: day(2024, 1, 1),
	}})

	d, err := Check(application(at), ix)
	require.NoError(t, err)

	assert.Equal(t, DecisionBlock, d.Verdict)
	assert.Equal(t, "ONE_PROFILE_PER_CLIENT_EVER", d.Rule, "profile consistency has no time window")
	assert.Contains(t, d.Reason, "under profile P-2")
}

func TestCheck_ProfileRuleAbstainsWithoutProfiles(t *testing.T) {
	at := day(2026, 3, 10)
	ix := history.New([]models.Submission{{
		UUID: "sub-1", ConsultantID: "C-042", EndClient: "Acme",
		VendorName: "Infosys", JobPostingID: "JOB-9", SubmittedAt: day(2024, 1, 1),
	}})

	app := application(at)
	d, err := Check(app, ix)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict, "a record without a profile cannot conflict")

	app.ProfileID = ""
	d, err = Check(app, ix)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict, "an application without a profile cannot conflict")
}

func TestCheck_ThirdSameDayAllowedFourthBlocked(t *testing.T) {
	at := day(2026, 3, 10)
	sameDay := func(n int) []models.Submission {
		var out []models.Submission
		for i := 0; i < n; i++ {
			out = append(out, models.Submission{
				UUID: fmt.Sprintf("sub-%d", i), ConsultantID: "C-042", ProfileID: "P-7",
				EndClient: "Acme", VendorName: fmt.Sprintf("V-%d", i),
				JobPostingID: fmt.Sprintf("JOB-%d", 100+i), SubmittedAt: at.Add(time.Duration(i) * time.Hour),
			})
		}
		return out
	}

	d, err := Check(application(at), history.New(sameDay(2)))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict, "the third same-day submission is still allowed")

	d, err = Check(application(at), history.New(sameDay(3)))
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, d.Verdict)
	assert.Equal(t, "DIVERSIFY_ACROSS_CLIENTS", d.Rule)
	assert.Contains(t, d.Reason, "Already 3 applications to Acme today")
}

func TestCheck_YesterdayDoesNotCountTowardDailyLimit(t *testing.T) {
	at := day(2026, 3, 10)
	var records []models.Submission
	for i := 0; i < 3; i++ {
		records = append(records, models.Submission{
			UUID: fmt.Sprintf("sub-%d", i), ConsultantID: "C-042", ProfileID: "P-7",
			EndClient: "Acme", VendorName: fmt.Sprintf("V-%d", i),
			JobPostingID: fmt.Sprintf("JOB-%d", 100+i), SubmittedAt: at.AddDate(0, 0, -1),
		})
	}

	d, err := Check(application(at), history.New(records))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, d.Verdict)
}

func TestCheck_FirstMatchOrder(t *testing.T) {
	// History that would fire both the job rule and the weekly vendor rule;
	// only the first is evaluated.
	at := day(2026, 3, 10)
	ix := history.New([]models.Submission{{
		UUID: "sub-1", ConsultantID: "C-042", ProfileID: "P-7", EndClient: "Acme",
		VendorName: "TrueNorth", JobPostingID: "JOB-1", SubmittedAt: at.AddDate(0, 0, -2),
	}})

	d, err := Check(application(at), ix)
	require.NoError(t, err)

	assert.Equal(t, "ONE_CANDIDATE_PER_JOB", d.Rule)
	require.Len(t, d.Outcomes, 4)
	assert.False(t, d.Outcomes[1].Evaluated)
}
