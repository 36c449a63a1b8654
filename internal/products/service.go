package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

const skuConstraint = "ux_products_supplier_sku"

// Service exposes the catalog and supplier stock operations.
type Service interface {
	List(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	Get(ctx context.Context, productID int64) (*ProductDTO, error)
	Create(ctx context.Context, supplierID int64, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, supplierID, productID int64, input UpdateProductInput) (*ProductDTO, error)
	AdjustStock(ctx context.Context, supplierID, productID int64, input StockAdjustmentInput) (*ProductDTO, error)
	ListMovements(ctx context.Context, supplierID, productID int64, limit int) ([]StockMovementDTO, error)
}

// ListProductsInput filters the public catalog.
type ListProductsInput struct {
	SupplierID *int64
	Query      string
	Pagination pagination.Params
}

// CreateProductInput holds the validated payload to create a product.
// PriceWithVAT is derived from PriceWithoutVAT and VATRate when nil.
type CreateProductInput struct {
	SKU             string
	Name            string
	Description     *string
	ImageURL        *string
	Unit            string
	PriceWithoutVAT decimal.Decimal
	PriceWithVAT    *decimal.Decimal
	VATRate         decimal.Decimal
	StockQuantity   int
	Active          bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name            *string
	Description     *string
	ImageURL        *string
	Unit            *string
	PriceWithoutVAT *decimal.Decimal
	PriceWithVAT    *decimal.Decimal
	VATRate         *decimal.Decimal
	Active          *bool
}

type StockAdjustmentInput struct {
	Delta     int
	Reason    enums.StockMovementReason
	Reference *string
	ActorID   uuid.UUID
}

type service struct {
	repo *Repository
	tx   db.TxRunner
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	afterID, err := pagination.ParseIDCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)

	rows, err := s.repo.List(ctx, listQuery{
		SupplierID: input.SupplierID,
		Search:     input.Query,
		AfterID:    afterID,
		Limit:      pageSize,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list products")
	}

	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows))}
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		result.NextCursor = pagination.EncodeIDCursor(rows[len(rows)-1].ID)
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, productID int64) (*ProductDTO, error) {
	product, err := s.repo.FindActive(ctx, productID)
	if err != nil {
		return nil, lookupError(err)
	}
	return NewProductDTO(product), nil
}

func (s *service) Create(ctx context.Context, supplierID int64, input CreateProductInput) (*ProductDTO, error) {
	if supplierID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier context required")
	}
	product := &models.Product{
		SupplierID:      supplierID,
		SKU:             strings.TrimSpace(input.SKU),
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		ImageURL:        input.ImageURL,
		Unit:            strings.TrimSpace(input.Unit),
		PriceWithoutVAT: input.PriceWithoutVAT,
		VATRate:         input.VATRate,
		StockQuantity:   input.StockQuantity,
		Active:          input.Active,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if product.SKU == "" || product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity cannot be negative")
	}
	product.PriceWithVAT = derivePriceWithVAT(input.PriceWithoutVAT, input.VATRate, input.PriceWithVAT)
	if err := validatePricing(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, skuConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists for this supplier")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create product")
	}
	return NewProductDTO(product), nil
}

func (s *service) Update(ctx context.Context, supplierID, productID int64, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindForSupplier(ctx, supplierID, productID)
	if err != nil {
		return nil, lookupError(err)
	}

	repriced := applyUpdate(product, input)
	if repriced && input.PriceWithVAT == nil {
		product.PriceWithVAT = derivePriceWithVAT(product.PriceWithoutVAT, product.VATRate, nil)
	}
	if product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePricing(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update product")
	}
	return NewProductDTO(product), nil
}

// AdjustStock applies delta under a row lock and records the movement in the
// same transaction. Stock never goes below zero.
func (s *service) AdjustStock(ctx context.Context, supplierID, productID int64, input StockAdjustmentInput) (*ProductDTO, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid stock reason %q", input.Reason)
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.LockForSupplier(ctx, supplierID, productID)
		if err != nil {
			return lookupError(err)
		}

		next := product.StockQuantity + input.Delta
		if next < 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": productID,
					"available":  product.StockQuantity,
					"delta":      input.Delta,
				})
		}
		if err := repo.SetStock(ctx, product.ID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update stock")
		}
		movement := &models.StockMovement{
			ProductID:   product.ID,
			SupplierID:  supplierID,
			Delta:       input.Delta,
			StockAfter:  next,
			Reason:      input.Reason,
			Reference:   input.Reference,
			CreatedByID: input.ActorID,
		}
		if err := repo.InsertMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record stock movement")
		}
		product.StockQuantity = next
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewProductDTO(updated), nil
}

func (s *service) ListMovements(ctx context.Context, supplierID, productID int64, limit int) ([]StockMovementDTO, error) {
	if _, err := s.repo.FindForSupplier(ctx, supplierID, productID); err != nil {
		return nil, lookupError(err)
	}
	rows, err := s.repo.ListMovements(ctx, supplierID, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list stock movements")
	}
	out := make([]StockMovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newStockMovementDTO(row))
	}
	return out, nil
}

// applyUpdate copies the set fields and reports whether a price input changed.
func applyUpdate(product *models.Product, input UpdateProductInput) bool {
	repriced := false
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Unit != nil {
		if unit := strings.TrimSpace(*input.Unit); unit != "" {
			product.Unit = unit
		}
	}
	if input.PriceWithoutVAT != nil {
		product.PriceWithoutVAT = *input.PriceWithoutVAT
		repriced = true
	}
	if input.VATRate != nil {
		product.VATRate = *input.VATRate
		repriced = true
	}
	if input.PriceWithVAT != nil {
		product.PriceWithVAT = *input.PriceWithVAT
	}
	if input.Active != nil {
		product.Active = *input.Active
	}
	return repriced
}

func derivePriceWithVAT(net, rate decimal.Decimal, explicit *decimal.Decimal) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	return net.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
}

func validatePricing(product *models.Product) error {
	if product.PriceWithoutVAT.IsNegative() || product.PriceWithVAT.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	if product.VATRate.IsNegative() || product.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vat_rate must be between 0 and 1")
	}
	if product.PriceWithVAT.LessThan(product.PriceWithoutVAT) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_with_vat cannot be below price_without_vat")
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
}
