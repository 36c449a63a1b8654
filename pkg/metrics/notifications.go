package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks the notifications worker.
type NotificationMetrics struct {
	processed        *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_processed_total",
		Help:      "Events handled by the notifications worker, by result.",
	}, []string{"event_type", "result"})
	dispatchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_dispatch_failures_total",
		Help:      "Outbound notification deliveries that failed.",
	}, []string{"channel"})
	reg.MustRegister(processed, dispatchFailures)
	return &NotificationMetrics{processed: processed, dispatchFailures: dispatchFailures}
}

// IncProcessed counts a handled event; result is created, duplicate, skipped or error.
func (m *NotificationMetrics) IncProcessed(eventType, result string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *NotificationMetrics) IncDispatchFailure(channel string) {
	if m == nil || m.dispatchFailures == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(normalizeLabel(channel)).Inc()
}
