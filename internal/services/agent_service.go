package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/logger"
	"github.com/ogtalent/dispatch/internal/models"
	"github.com/ogtalent/dispatch/internal/routing"
)

var (
	ErrAgentNotFound    = errors.New("agent not found")
	ErrInvalidHeartbeat = errors.New("heartbeat missing agent name")
)

// AgentService tracks agent health from heartbeats and a periodic sweep.
// The routing gate never reads these rows directly; it gets an immutable
// Snapshot taken before evaluation starts.
type AgentService struct {
	db     *gorm.DB
	alerts *AlertService
}

func NewAgentService(db *gorm.DB, alerts *AlertService) *AgentService {
	return &AgentService{db: db, alerts: alerts}
}

// Heartbeat is one agent's self-report.
type Heartbeat struct {
	Name           string            `json:"name"`
	State          models.AgentState `json:"state"`
	QueueDepth     int               `json:"queue_depth"`
	CurrentTask    string            `json:"current_task"`
	DataAgeMinutes int               `json:"data_age_minutes"`
	LastError      string            `json:"last_error"`
	At             time.Time         `json:"at"`
}

// Ingest upserts the agent's status row from a heartbeat. A heartbeat with
// no state means the agent is alive but idle.
func (s *AgentService) Ingest(hb Heartbeat) (*models.AgentStatus, error) {
	if hb.Name == "" {
		return nil, ErrInvalidHeartbeat
	}
	if hb.State == "" {
		hb.State = models.AgentStateIdle
	}
	if hb.At.IsZero() {
		hb.At = time.Now().UTC()
	}

	var status models.AgentStatus
	err := s.db.Where("name = ?", hb.Name).First(&status).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status.Name = hb.Name
	status.State = hb.State
	status.LastActivity = hb.At
	status.QueueDepth = hb.QueueDepth
	status.CurrentTask = hb.CurrentTask
	status.DataAgeMinutes = hb.DataAgeMinutes
	status.LastError = hb.LastError

	if err := s.db.Save(&status).Error; err != nil {
		return nil, fmt.Errorf("save agent status: %w", err)
	}
	return &status, nil
}

// Get returns a single agent's status.
func (s *AgentService) Get(name string) (*models.AgentStatus, error) {
	var status models.AgentStatus
	if err := s.db.Where("name = ?", name).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &status, nil
}

// List returns every tracked agent.
func (s *AgentService) List() ([]models.AgentStatus, error) {
	var statuses []models.AgentStatus
	return statuses, s.db.Order("name").Find(&statuses).Error
}

// Snapshot copies the current rows into the immutable view the routing gate
// evaluates against. Later heartbeats do not affect decisions in flight.
func (s *AgentService) Snapshot() (routing.Snapshot, error) {
	statuses, err := s.List()
	if err != nil {
		return routing.Snapshot{}, fmt.Errorf("snapshot agent state: %w", err)
	}

	snap := routing.Snapshot{
		Agents:  make(map[string]routing.AgentSnapshot, len(statuses)),
		TakenAt: time.Now().UTC(),
	}
	for _, st := range statuses {
		snap.Agents[st.Name] = routing.AgentSnapshot{
			Name:           st.Name,
			State:          st.State,
			LastActivity:   st.LastActivity,
			QueueDepth:     st.QueueDepth,
			DataAgeMinutes: st.DataAgeMinutes,
		}
	}
	return snap, nil
}

// Sweep marks agents silent past the liveness threshold as DEAD and raises
// an alert for each transition. Runs on the cron schedule.
func (s *AgentService) Sweep(livenessMinutes int, now time.Time) (int, error) {
	statuses, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-time.Duration(livenessMinutes) * time.Minute)
	marked := 0
	for _, st := range statuses {
		if st.State == models.AgentStateDead || st.LastActivity.After(cutoff) {
			continue
		}

		previous := st.State
		st.State = models.AgentStateDead
		if err := s.db.Save(&st).Error; err != nil {
			return marked, fmt.Errorf("mark agent %s dead: %w", st.Name, err)
		}
		marked++

		logger.WithFields(map[string]interface{}{
			"agent":          st.Name,
			"previous_state": previous,
			"last_activity":  st.LastActivity.UTC().Format(time.RFC3339),
		}).Warn("agent marked DEAD by liveness sweep")

		if s.alerts != nil {
			title := fmt.Sprintf("Agent %s is unresponsive", st.Name)
			msg := fmt.Sprintf("No heartbeat since %s (threshold %d min). Marked DEAD.",
				st.LastActivity.UTC().Format(time.RFC3339), livenessMinutes)
			if _, err := s.alerts.Escalate("HIGH", "", title, msg); err != nil {
				logger.Log().WithError(err).Error("failed to record dead-agent escalation")
			}
		}
	}
	return marked, nil
}
