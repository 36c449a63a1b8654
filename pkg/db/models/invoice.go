package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// Invoice bills exactly one purchase order.
type Invoice struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber      string              `gorm:"column:invoice_number;not null"`
	PurchaseOrderID    uuid.UUID           `gorm:"column:purchase_order_id;type:uuid;not null"`
	POID               string              `gorm:"column:po_id;not null"`
	SupplierID         int64               `gorm:"column:supplier_id;not null"`
	CompanyID          int64               `gorm:"column:company_id;not null"`
	SubtotalWithoutVAT decimal.Decimal     `gorm:"column:subtotal_without_vat;type:numeric(12,2);not null"`
	VATAmount          decimal.Decimal     `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	TotalWithVAT       decimal.Decimal     `gorm:"column:total_with_vat;type:numeric(12,2);not null"`
	Status             enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'issued'"`
	IssuedAt           time.Time           `gorm:"column:issued_at;not null"`
	DueAt              time.Time           `gorm:"column:due_at;not null"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
