package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// PurchaseOrder is the header written once per supplier group per checkout.
// POID is the human readable identifier and is unique.
type PurchaseOrder struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	POID               string                    `gorm:"column:po_id;not null"`
	CheckoutID         uuid.UUID                 `gorm:"column:checkout_id;type:uuid;not null"`
	CompanyID          int64                     `gorm:"column:company_id;not null"`
	SupplierID         int64                     `gorm:"column:supplier_id;not null"`
	PlacedByUserID     uuid.UUID                 `gorm:"column:placed_by_user_id;type:uuid;not null"`
	DeliveryMethod     enums.DeliveryMethod      `gorm:"column:delivery_method;type:text;not null"`
	PaymentMethod      enums.PaymentTerms        `gorm:"column:payment_method;type:text;not null"`
	ContactName        string                    `gorm:"column:contact_name;not null"`
	PhoneNumber        string                    `gorm:"column:phone_number;not null"`
	Address            types.PostalAddress       `gorm:"embedded"`
	AddressSource      enums.AddressSource       `gorm:"column:address_source;type:text;not null"`
	SubtotalWithoutVAT decimal.Decimal           `gorm:"column:subtotal_without_vat;type:numeric(12,2);not null"`
	SubtotalWithVAT    decimal.Decimal           `gorm:"column:subtotal_with_vat;type:numeric(12,2);not null"`
	Status             enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'submitted'"`
	Lines              []PurchaseOrderLine       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

func (p *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PurchaseOrderLine mirrors one cart line at submission time.
type PurchaseOrderLine struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID     uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null"`
	POID                string          `gorm:"column:po_id;not null"`
	ProductID           int64           `gorm:"column:product_id;not null"`
	ProductName         string          `gorm:"column:product_name;not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	PriceWithoutVAT     decimal.Decimal `gorm:"column:price_without_vat;type:numeric(12,2);not null"`
	PriceWithVAT        decimal.Decimal `gorm:"column:price_with_vat;type:numeric(12,2);not null"`
	LineTotalWithoutVAT decimal.Decimal `gorm:"column:line_total_without_vat;type:numeric(12,2);not null"`
	LineTotalWithVAT    decimal.Decimal `gorm:"column:line_total_with_vat;type:numeric(12,2);not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PurchaseOrderLine) TableName() string { return "purchase_order_lines" }

func (l *PurchaseOrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
