// Package directory looks up the companies and suppliers that the
// procurement workflow refers to by id.
package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Supplier returns a NotFound error when the supplier does not exist.
func (r *Repository) Supplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, "supplier")
	}
	return &supplier, nil
}

// Company returns a NotFound error when the company does not exist.
func (r *Repository) Company(ctx context.Context, id int64) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, "company")
	}
	return &company, nil
}

// SupplierNames resolves display names for the provided ids; unknown ids are omitted.
func (r *Repository) SupplierNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Supplier
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load suppliers")
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// CompanyNames resolves display names for the provided ids; unknown ids are omitted.
func (r *Repository) CompanyNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Company
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load companies")
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

func mapLookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load "+entity)
}
