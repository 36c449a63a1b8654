package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateHeader(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Lines").Create(order).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []models.PurchaseOrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) FindByPOID(ctx context.Context, poID string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("po_id = ?", poID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByCheckoutAndSupplier finds the header a checkout already committed for
// a supplier, if any.
func (r *repository) FindByCheckoutAndSupplier(ctx context.Context, checkoutID uuid.UUID, supplierID int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("checkout_id = ? AND supplier_id = ?", checkoutID, supplierID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForCompany(ctx context.Context, companyID int64, params pagination.Params, filters OrderFilters) ([]models.PurchaseOrder, string, error) {
	qb := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	return r.list(qb, params, filters)
}

func (r *repository) ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, filters OrderFilters) ([]models.PurchaseOrder, string, error) {
	qb := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID)
	return r.list(qb, params, filters)
}

func (r *repository) list(qb *gorm.DB, params pagination.Params, filters OrderFilters) ([]models.PurchaseOrder, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		qb = qb.Where("created_at >= ?", filters.DateFrom.UTC())
	}
	if filters.DateTo != nil {
		qb = qb.Where("created_at < ?", filters.DateTo.UTC())
	}

	var rows []models.PurchaseOrder
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.TrimPage(rows, pageSize, purchaseOrderCursor)
	return rows, pagination.EncodeNext(next), nil
}

func purchaseOrderCursor(po models.PurchaseOrder) pagination.Cursor {
	return pagination.Cursor{CreatedAt: po.CreatedAt, ID: po.ID}
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PurchaseOrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}
