package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// StockMovement is an append-only record of a stock change.
type StockMovement struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   int64                     `gorm:"column:product_id;not null"`
	SupplierID  int64                     `gorm:"column:supplier_id;not null"`
	Delta       int                       `gorm:"column:delta;not null"`
	StockAfter  int                       `gorm:"column:stock_after;not null"`
	Reason      enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	Reference   *string                   `gorm:"column:reference"`
	CreatedByID uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
