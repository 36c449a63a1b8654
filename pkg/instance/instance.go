package instance

import "os"

// GetID returns the process instance identifier used for lock ownership and
// log correlation. Falls back to the hostname, then a fixed default.
func GetID() string {
	for _, key := range []string{"PROCUREMENT_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
