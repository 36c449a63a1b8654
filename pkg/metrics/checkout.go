package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts supplier group outcomes and times whole submissions.
type CheckoutMetrics struct {
	groups   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	groups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_groups_total",
		Help:      "Supplier groups processed by checkout, by final state and error code.",
	}, []string{"state", "error_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout submissions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(groups, duration)
	return &CheckoutMetrics{groups: groups, duration: duration}
}

// ObserveGroup records one group's terminal state. errorCode is empty on success.
func (m *CheckoutMetrics) ObserveGroup(state, errorCode string) {
	if m == nil || m.groups == nil {
		return
	}
	if errorCode == "" {
		errorCode = "none"
	}
	m.groups.WithLabelValues(normalizeLabel(state), errorCode).Inc()
}

// ObserveCheckout records a submission's duration under outcome
// (complete, partial or failed).
func (m *CheckoutMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}
