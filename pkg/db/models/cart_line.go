package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// CartLine is one product in a company's cart. Supplier and prices are
// snapshotted when the line is added. At most one of DeliveryLocationID,
// PickupLocationID and CustomAddress is meaningful at a time.
type CartLine struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID           int64                `gorm:"column:company_id;not null"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	ProductID           int64                `gorm:"column:product_id;not null"`
	ProductName         string               `gorm:"column:product_name;not null"`
	SupplierID          int64                `gorm:"column:supplier_id;not null"`
	SupplierName        string               `gorm:"column:supplier_name;not null"`
	Quantity            int                  `gorm:"column:quantity;not null"`
	UnitPriceWithoutVAT decimal.Decimal      `gorm:"column:unit_price_without_vat;type:numeric(12,2);not null"`
	UnitPriceWithVAT    decimal.Decimal      `gorm:"column:unit_price_with_vat;type:numeric(12,2);not null"`
	DeliveryMethod      enums.DeliveryMethod `gorm:"column:delivery_method;type:text;not null;default:'shipping'"`
	PaymentTerms        enums.PaymentTerms   `gorm:"column:payment_terms;type:text;not null;default:'prepayment'"`
	DeliveryLocationID  *int64               `gorm:"column:delivery_location_id"`
	PickupLocationID    *int64               `gorm:"column:pickup_location_id"`
	CustomAddress       types.PostalAddress  `gorm:"embedded;embeddedPrefix:custom_"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLine) TableName() string { return "cart_lines" }

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
