package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// OrderFilters describe the inputs supported by both order lists.
type OrderFilters struct {
	Status   *enums.PurchaseOrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderSummary is one row of a purchase order list.
type OrderSummary struct {
	ID                 uuid.UUID                 `json:"id"`
	POID               string                    `json:"po_id"`
	CheckoutID         uuid.UUID                 `json:"checkout_id"`
	CompanyID          int64                     `json:"company_id"`
	CompanyName        string                    `json:"company_name,omitempty"`
	SupplierID         int64                     `json:"supplier_id"`
	SupplierName       string                    `json:"supplier_name,omitempty"`
	DeliveryMethod     enums.DeliveryMethod      `json:"delivery_method"`
	PaymentMethod      enums.PaymentTerms        `json:"payment_method"`
	Status             enums.PurchaseOrderStatus `json:"status"`
	SubtotalWithoutVAT decimal.Decimal           `json:"subtotal_without_vat"`
	SubtotalWithVAT    decimal.Decimal           `json:"subtotal_with_vat"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is a header with its lines and delivery details.
type OrderDetail struct {
	OrderSummary
	PlacedByUserID uuid.UUID           `json:"placed_by_user_id"`
	ContactName    string              `json:"contact_name"`
	PhoneNumber    string              `json:"phone_number"`
	Address        types.PostalAddress `json:"address"`
	AddressSource  enums.AddressSource `json:"address_source"`
	Lines          []LineDTO           `json:"lines"`
}

type LineDTO struct {
	ID                  uuid.UUID       `json:"id"`
	ProductID           int64           `json:"product_id"`
	ProductName         string          `json:"product_name"`
	Quantity            int             `json:"quantity"`
	PriceWithoutVAT     decimal.Decimal `json:"price_without_vat"`
	PriceWithVAT        decimal.Decimal `json:"price_with_vat"`
	LineTotalWithoutVAT decimal.Decimal `json:"line_total_without_vat"`
	LineTotalWithVAT    decimal.Decimal `json:"line_total_with_vat"`
}

func newSummary(order models.PurchaseOrder) OrderSummary {
	return OrderSummary{
		ID:                 order.ID,
		POID:               order.POID,
		CheckoutID:         order.CheckoutID,
		CompanyID:          order.CompanyID,
		SupplierID:         order.SupplierID,
		DeliveryMethod:     order.DeliveryMethod,
		PaymentMethod:      order.PaymentMethod,
		Status:             order.Status,
		SubtotalWithoutVAT: order.SubtotalWithoutVAT,
		SubtotalWithVAT:    order.SubtotalWithVAT,
		CreatedAt:          order.CreatedAt,
	}
}

func newDetail(order models.PurchaseOrder) *OrderDetail {
	detail := &OrderDetail{
		OrderSummary:   newSummary(order),
		PlacedByUserID: order.PlacedByUserID,
		ContactName:    order.ContactName,
		PhoneNumber:    order.PhoneNumber,
		Address:        order.Address,
		AddressSource:  order.AddressSource,
		Lines:          make([]LineDTO, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		detail.Lines = append(detail.Lines, LineDTO{
			ID:                  line.ID,
			ProductID:           line.ProductID,
			ProductName:         line.ProductName,
			Quantity:            line.Quantity,
			PriceWithoutVAT:     line.PriceWithoutVAT,
			PriceWithVAT:        line.PriceWithVAT,
			LineTotalWithoutVAT: line.LineTotalWithoutVAT,
			LineTotalWithVAT:    line.LineTotalWithVAT,
		})
	}
	return detail
}
