package models

import (
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// DeliveryLocation is an address a company saved for shipping.
type DeliveryLocation struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID int64               `gorm:"column:company_id;not null"`
	Address   types.PostalAddress `gorm:"embedded"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (DeliveryLocation) TableName() string { return "delivery_locations" }

// PickupLocation is a supplier site where buyers may collect goods.
type PickupLocation struct {
	ID         int64               `gorm:"column:id;primaryKey;autoIncrement"`
	SupplierID int64               `gorm:"column:supplier_id;not null"`
	Address    types.PostalAddress `gorm:"embedded"`
	ImageURL   *string             `gorm:"column:image_url"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (PickupLocation) TableName() string { return "pickup_locations" }
