package enums

// PurchaseOrderStatus maps to the purchase_orders.status column.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusSubmitted PurchaseOrderStatus = "submitted"
	PurchaseOrderStatusInvoiced  PurchaseOrderStatus = "invoiced"
	PurchaseOrderStatusPaid      PurchaseOrderStatus = "paid"
)

var purchaseOrderStatuses = newValueSet("purchase order status",
	PurchaseOrderStatusSubmitted,
	PurchaseOrderStatusInvoiced,
	PurchaseOrderStatusPaid,
)

func (p PurchaseOrderStatus) String() string { return string(p) }

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (p PurchaseOrderStatus) IsValid() bool { return purchaseOrderStatuses.has(p) }

func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	return purchaseOrderStatuses.parse(value)
}
