package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// LineRepository is the persistence surface for cart lines.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	List(ctx context.Context, owner Owner) ([]models.CartLine, error)
	ListBySupplier(ctx context.Context, owner Owner, supplierID int64) ([]models.CartLine, error)
	FindLine(ctx context.Context, owner Owner, lineID uuid.UUID) (*models.CartLine, error)
	UpsertLine(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (bool, error)
	UpdateSelection(ctx context.Context, owner Owner, lineID uuid.UUID, terms enums.PaymentTerms, sel address.Selection) error
	Delete(ctx context.Context, owner Owner, lineID uuid.UUID) (bool, error)
	DeleteLines(ctx context.Context, owner Owner, lineIDs []uuid.UUID) (int64, error)
}

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) LineRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) owned(ctx context.Context, owner Owner) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", owner.CompanyID, owner.UserID)
}

// List returns the owner's lines oldest first so supplier groups keep the
// order in which the buyer first added them.
func (r *Repository) List(ctx context.Context, owner Owner) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.owned(ctx, owner).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *Repository) ListBySupplier(ctx context.Context, owner Owner, supplierID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.owned(ctx, owner).
		Where("supplier_id = ?", supplierID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

// FindLine returns gorm.ErrRecordNotFound when the line is not the owner's.
func (r *Repository) FindLine(ctx context.Context, owner Owner, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.owned(ctx, owner).Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// UpsertLine inserts the line, or adds its quantity to the existing line for
// the same product.
func (r *Repository) UpsertLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "quantity"}, Value: gorm.Expr("cart_lines.quantity + excluded.quantity")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
		}).
		Create(line).Error
}

func (r *Repository) UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (bool, error) {
	res := r.owned(ctx, owner).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// UpdateSelection overwrites every delivery column so cleared sources are
// written as NULL or empty.
func (r *Repository) UpdateSelection(ctx context.Context, owner Owner, lineID uuid.UUID, terms enums.PaymentTerms, sel address.Selection) error {
	return r.owned(ctx, owner).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"delivery_method":       sel.Method,
			"payment_terms":         terms,
			"delivery_location_id":  sel.DeliveryLocationID,
			"pickup_location_id":    sel.PickupLocationID,
			"custom_location_name":  sel.Custom.LocationName,
			"custom_street_address": sel.Custom.StreetAddress,
			"custom_postal_code":    sel.Custom.PostalCode,
			"custom_town":           sel.Custom.Town,
			"custom_country":        sel.Custom.Country,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *Repository) Delete(ctx context.Context, owner Owner, lineID uuid.UUID) (bool, error) {
	res := r.owned(ctx, owner).Where("id = ?", lineID).Delete(&models.CartLine{})
	return res.RowsAffected > 0, res.Error
}

// DeleteLines removes the given lines after they were turned into a purchase order.
func (r *Repository) DeleteLines(ctx context.Context, owner Owner, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	res := r.owned(ctx, owner).Where("id IN ?", lineIDs).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}
