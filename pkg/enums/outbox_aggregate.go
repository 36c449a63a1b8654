package enums

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateInvoice       OutboxAggregateType = "invoice"
)

var outboxAggregateTypes = newValueSet("aggregate type",
	AggregatePurchaseOrder,
	AggregateInvoice,
)

func (o OutboxAggregateType) String() string { return string(o) }

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool { return outboxAggregateTypes.has(o) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return outboxAggregateTypes.parse(value)
}
