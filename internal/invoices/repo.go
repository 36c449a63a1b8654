package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

const invoiceSequenceUpsert = `
INSERT INTO invoice_sequences (supplier_id, year, last_value)
VALUES (?, ?, 1)
ON CONFLICT (supplier_id, year)
DO UPDATE SET last_value = invoice_sequences.last_value + 1
RETURNING last_value`

// Repository manages invoices and their per-supplier numbering.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, supplierID int64, year int) (int64, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Find(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) (*models.Invoice, error)
	ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, status *enums.InvoiceStatus) ([]models.Invoice, string, error)
	ListForCompany(ctx context.Context, companyID int64, params pagination.Params, status *enums.InvoiceStatus) ([]models.Invoice, string, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextSequence claims the next number for (supplier, year). Call it inside
// the transaction that creates the invoice so a rollback releases it.
func (r *repository) NextSequence(ctx context.Context, supplierID int64, year int) (int64, error) {
	var next int64
	if err := r.db.WithContext(ctx).Raw(invoiceSequenceUpsert, supplierID, year).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("claim invoice sequence: %w", err)
	}
	return next, nil
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("purchase_order_id = ?", purchaseOrderID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, status *enums.InvoiceStatus) ([]models.Invoice, string, error) {
	return r.list(r.db.WithContext(ctx).Where("supplier_id = ?", supplierID), params, status)
}

func (r *repository) ListForCompany(ctx context.Context, companyID int64, params pagination.Params, status *enums.InvoiceStatus) ([]models.Invoice, string, error) {
	return r.list(r.db.WithContext(ctx).Where("company_id = ?", companyID), params, status)
}

func (r *repository) list(qb *gorm.DB, params pagination.Params, status *enums.InvoiceStatus) ([]models.Invoice, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if status != nil {
		qb = qb.Where("status = ?", *status)
	}

	var rows []models.Invoice
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.TrimPage(rows, pageSize, func(inv models.Invoice) pagination.Cursor {
		return pagination.Cursor{CreatedAt: inv.CreatedAt, ID: inv.ID}
	})
	return rows, pagination.EncodeNext(next), nil
}

// MarkPaid flips an issued invoice to paid. It reports false when the invoice
// was not in the issued state.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, enums.InvoiceStatusIssued).
		Updates(map[string]any{"status": enums.InvoiceStatusPaid, "paid_at": paidAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
