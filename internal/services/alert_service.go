package services

import (
	"fmt"
	"strings"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/logger"
	"github.com/ogtalent/dispatch/internal/metrics"
	"github.com/ogtalent/dispatch/internal/models"
)

// AlertService owns the operator notification feed and delivery to external
// escalation sinks. Delivery failure never fails the decision that caused
// the alert; the feed row is the durable record, the push is best effort.
type AlertService struct {
	db     *gorm.DB
	sender *router.ServiceRouter
	urls   []string
}

// NewAlertService builds the service from comma-separated shoutrrr URLs.
// An empty list is valid: escalations then land in the feed only.
func NewAlertService(db *gorm.DB, escalationURLs string) *AlertService {
	s := &AlertService{db: db}
	for _, u := range strings.Split(escalationURLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			s.urls = append(s.urls, u)
		}
	}
	if len(s.urls) > 0 {
		sender, err := shoutrrr.CreateSender(s.urls...)
		if err != nil {
			logger.Log().WithError(err).Error("invalid escalation URLs, external delivery disabled")
		} else {
			s.sender = sender
		}
	}
	return s
}

// DispatchResult separates the durable part of an escalation from the best
// effort part: the feed row either exists or the whole call errored, while
// external delivery may fail per-sink without affecting the decision.
type DispatchResult struct {
	NotificationID string   `json:"notification_id"`
	Delivered      bool     `json:"delivered"`
	SinkErrors     []string `json:"sink_errors,omitempty"`
}

// Escalate records a human-attention alert in the feed and pushes it to the
// configured sinks. Severity maps onto the feed's type vocabulary.
func (s *AlertService) Escalate(severity, channel, title, message string) (DispatchResult, error) {
	n := &models.Notification{
		Type:    typeForSeverity(severity),
		Title:   title,
		Message: message,
		Channel: channel,
	}
	if err := s.db.Create(n).Error; err != nil {
		return DispatchResult{}, fmt.Errorf("store escalation: %w", err)
	}
	metrics.IncEscalation()

	result := DispatchResult{NotificationID: n.ID, Delivered: true}
	if s.sender == nil {
		result.Delivered = len(s.urls) == 0
		if !result.Delivered {
			result.SinkErrors = []string{"escalation sinks misconfigured"}
			metrics.IncAlertSendFailure()
		}
		return result, nil
	}

	body := fmt.Sprintf("[%s] %s\n%s", severity, title, message)
	for _, err := range s.sender.Send(body, nil) {
		if err == nil {
			continue
		}
		result.Delivered = false
		result.SinkErrors = append(result.SinkErrors, err.Error())
		metrics.IncAlertSendFailure()
		logger.Log().WithError(err).WithField("channel", channel).Error("escalation delivery failed")
	}
	return result, nil
}

// Notify records a feed-only entry without touching the external sinks.
func (s *AlertService) Notify(nType models.NotificationType, title, message string) (*models.Notification, error) {
	n := &models.Notification{Type: nType, Title: title, Message: message}
	if err := s.db.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// List returns feed entries, newest first.
func (s *AlertService) List(unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.db.Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	return notifications, query.Find(&notifications).Error
}

func (s *AlertService) MarkAsRead(id string) error {
	return s.db.Model(&models.Notification{}).Where("id = ?", id).Update("read", true).Error
}

func (s *AlertService) MarkAllAsRead() error {
	return s.db.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

func typeForSeverity(severity string) models.NotificationType {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return models.NotificationTypeCritical
	case "HIGH":
		return models.NotificationTypeError
	case "MEDIUM":
		return models.NotificationTypeWarning
	default:
		return models.NotificationTypeInfo
	}
}
