package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// PurchaseOrderCreatedEvent is emitted once per supplier group that was
// persisted during checkout.
type PurchaseOrderCreatedEvent struct {
	PurchaseOrderID    uuid.UUID            `json:"purchase_order_id"`
	POID               string               `json:"po_id"`
	CheckoutID         uuid.UUID            `json:"checkout_id"`
	CompanyID          int64                `json:"company_id"`
	SupplierID         int64                `json:"supplier_id"`
	PlacedByUserID     uuid.UUID            `json:"placed_by_user_id"`
	DeliveryMethod     enums.DeliveryMethod `json:"delivery_method"`
	PaymentMethod      enums.PaymentTerms   `json:"payment_method"`
	LineCount          int                  `json:"line_count"`
	SubtotalWithoutVAT decimal.Decimal      `json:"subtotal_without_vat"`
	SubtotalWithVAT    decimal.Decimal      `json:"subtotal_with_vat"`
}

// InvoiceIssuedEvent is emitted when a supplier invoices a purchase order.
type InvoiceIssuedEvent struct {
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	POID            string          `json:"po_id"`
	CompanyID       int64           `json:"company_id"`
	SupplierID      int64           `json:"supplier_id"`
	TotalWithVAT    decimal.Decimal `json:"total_with_vat"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
}
