package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by one supplier. Prices are per unit.
type Product struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SupplierID      int64           `gorm:"column:supplier_id;not null"`
	Supplier        *Supplier       `gorm:"foreignKey:SupplierID"`
	SKU             string          `gorm:"column:sku;not null"`
	Name            string          `gorm:"column:name;not null"`
	Description     *string         `gorm:"column:description"`
	ImageURL        *string         `gorm:"column:image_url"`
	Unit            string          `gorm:"column:unit;not null;default:'pcs'"`
	PriceWithoutVAT decimal.Decimal `gorm:"column:price_without_vat;type:numeric(12,2);not null"`
	PriceWithVAT    decimal.Decimal `gorm:"column:price_with_vat;type:numeric(12,2);not null"`
	VATRate         decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,4);not null"`
	StockQuantity   int             `gorm:"column:stock_quantity;not null;default:0"`
	Active          bool            `gorm:"column:active;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
