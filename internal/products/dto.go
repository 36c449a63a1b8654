package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID              int64           `json:"id"`
	SupplierID      int64           `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name,omitempty"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	ImageURL        *string         `json:"image_url,omitempty"`
	Unit            string          `json:"unit"`
	PriceWithoutVAT decimal.Decimal `json:"price_without_vat"`
	PriceWithVAT    decimal.Decimal `json:"price_with_vat"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	StockQuantity   int             `json:"stock_quantity"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductListResult is one page of the catalog.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type StockMovementDTO struct {
	ID         uuid.UUID                 `json:"id"`
	ProductID  int64                     `json:"product_id"`
	Delta      int                       `json:"delta"`
	StockAfter int                       `json:"stock_after"`
	Reason     enums.StockMovementReason `json:"reason"`
	Reference  *string                   `json:"reference,omitempty"`
	CreatedBy  uuid.UUID                 `json:"created_by"`
	CreatedAt  time.Time                 `json:"created_at"`
}

func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:              product.ID,
		SupplierID:      product.SupplierID,
		SKU:             product.SKU,
		Name:            product.Name,
		Description:     product.Description,
		ImageURL:        product.ImageURL,
		Unit:            product.Unit,
		PriceWithoutVAT: product.PriceWithoutVAT,
		PriceWithVAT:    product.PriceWithVAT,
		VATRate:         product.VATRate,
		StockQuantity:   product.StockQuantity,
		Active:          product.Active,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}
	if product.Supplier != nil {
		dto.SupplierName = product.Supplier.Name
	}
	return dto
}

func newStockMovementDTO(m models.StockMovement) StockMovementDTO {
	return StockMovementDTO{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Delta:      m.Delta,
		StockAfter: m.StockAfter,
		Reason:     m.Reason,
		Reference:  m.Reference,
		CreatedBy:  m.CreatedByID,
		CreatedAt:  m.CreatedAt,
	}
}
