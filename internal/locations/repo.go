package locations

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
)

// Repository persists saved client delivery locations and supplier pickup locations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListDelivery(ctx context.Context, companyID int64) ([]models.DeliveryLocation, error) {
	var rows []models.DeliveryLocation
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateDelivery(ctx context.Context, loc *models.DeliveryLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

// DeleteDelivery removes a company's location and reports whether a row matched.
func (r *Repository) DeleteDelivery(ctx context.Context, companyID, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		Delete(&models.DeliveryLocation{})
	return res.RowsAffected > 0, res.Error
}

// FindDelivery returns gorm.ErrRecordNotFound when the location is missing or
// belongs to another company.
func (r *Repository) FindDelivery(ctx context.Context, companyID, id int64) (*models.DeliveryLocation, error) {
	var loc models.DeliveryLocation
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *Repository) ListPickup(ctx context.Context, supplierID int64) ([]models.PickupLocation, error) {
	var rows []models.PickupLocation
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreatePickup(ctx context.Context, loc *models.PickupLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

// FindPickup returns gorm.ErrRecordNotFound when the location is missing or
// belongs to another supplier.
func (r *Repository) FindPickup(ctx context.Context, supplierID, id int64) (*models.PickupLocation, error) {
	var loc models.PickupLocation
	err := r.db.WithContext(ctx).
		Where("id = ? AND supplier_id = ?", id, supplierID).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
