package enums

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventPurchaseOrderCreated OutboxEventType = "purchase_order.created"
	EventInvoiceIssued        OutboxEventType = "invoice.issued"
)

var outboxEventTypes = newValueSet("event type",
	EventPurchaseOrderCreated,
	EventInvoiceIssued,
)

func (o OutboxEventType) String() string { return string(o) }

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool { return outboxEventTypes.has(o) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return outboxEventTypes.parse(value)
}
