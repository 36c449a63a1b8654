// Package metrics holds the Prometheus collectors exported on /metrics.
// Every constructor accepts a nil Registerer and then returns a no-op value.
package metrics

const namespace = "procurement"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
