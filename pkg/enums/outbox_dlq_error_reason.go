package enums

// OutboxDLQErrorReason captures why an outbox row was moved to the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

var outboxDLQErrorReasons = newValueSet("dlq error reason",
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonMaxAttempts,
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool { return outboxDLQErrorReasons.has(r) }

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return outboxDLQErrorReasons.parse(value)
}
