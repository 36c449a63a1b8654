package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypePurchaseOrderReceived NotificationType = "purchase_order_received"
	NotificationTypeInvoiceIssued         NotificationType = "invoice_issued"
	NotificationTypeSystem                NotificationType = "system"
)

var notificationTypes = newValueSet("notification type",
	NotificationTypePurchaseOrderReceived,
	NotificationTypeInvoiceIssued,
	NotificationTypeSystem,
)

func (n NotificationType) String() string { return string(n) }

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
