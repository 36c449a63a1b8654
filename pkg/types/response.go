// Package types holds the JSON envelopes every HTTP response is wrapped in.
package types

// SuccessEnvelope is {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PageEnvelope is one page of a cursor-paginated list. Totals carries counts
// over the whole collection, such as unread notifications.
type PageEnvelope struct {
	Data       any              `json:"data"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
	Totals     map[string]int64 `json:"totals,omitempty"`
}

// APIError is the public face of a pkg/errors.Error.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
