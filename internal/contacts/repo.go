package contacts

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
)

// Repository persists reusable delivery contacts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, companyID int64) ([]models.Contact, error) {
	var rows []models.Contact
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("alias ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// Find returns gorm.ErrRecordNotFound when the contact is missing or belongs to another company.
func (r *Repository) Find(ctx context.Context, companyID, id int64) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
