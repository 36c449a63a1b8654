package product

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

// Repository wires together catalog and stock persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// listQuery selects active products by ascending id after AfterID.
type listQuery struct {
	SupplierID *int64
	Search     string
	AfterID    int64
	Limit      int
}

// FindActive loads an active product with its supplier for cart snapshots.
func (r *Repository) FindActive(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Where("id = ? AND active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForSupplier loads a product regardless of its active flag but only
// when the supplier owns it.
func (r *Repository) FindForSupplier(ctx context.Context, supplierID, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND supplier_id = ?", id, supplierID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockForSupplier is FindForSupplier with a row lock on postgres.
func (r *Repository) LockForSupplier(ctx context.Context, supplierID, id int64) (*models.Product, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product models.Product
	if err := q.Where("id = ? AND supplier_id = ?", id, supplierID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns up to Limit+1 rows so callers can detect a further page.
func (r *Repository) List(ctx context.Context, query listQuery) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).
		Preload("Supplier").
		Where("active = ?", true)

	if query.SupplierID != nil {
		qb = qb.Where("supplier_id = ?", *query.SupplierID)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern)
	}
	if query.AfterID > 0 {
		qb = qb.Where("id > ?", query.AfterID)
	}

	var rows []models.Product
	err := qb.Order("id ASC").
		Limit(pagination.LimitWithBuffer(query.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Supplier").Save(product).Error
}

func (r *Repository) SetStock(ctx context.Context, productID int64, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", quantity).Error
}

func (r *Repository) InsertMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns the newest movements first.
func (r *Repository) ListMovements(ctx context.Context, supplierID, productID int64, limit int) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND product_id = ?", supplierID, productID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&rows).Error
	return rows, err
}
