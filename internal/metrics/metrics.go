package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_gate_decisions_total",
		Help: "Total number of gate decisions, labelled by gate and decision class",
	}, []string{"gate", "decision"})
	escalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_escalations_total",
		Help: "Total number of decisions escalated to a human channel",
	})
	alertSendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_alert_send_failures_total",
		Help: "Total number of failed deliveries to external escalation sinks",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(decisionsTotal, escalationsTotal, alertSendFailures)
}

// IncDecision increments the decision counter for a gate/class pair.
func IncDecision(gate, decision string) { decisionsTotal.WithLabelValues(gate, decision).Inc() }

// IncEscalation increments the escalation counter.
func IncEscalation() { escalationsTotal.Inc() }

// IncAlertSendFailure increments the failed-delivery counter.
func IncAlertSendFailure() { alertSendFailures.Inc() }
