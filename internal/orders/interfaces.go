package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

// Repository defines persistence operations for purchase order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateHeader(ctx context.Context, order *models.PurchaseOrder) error
	CreateLines(ctx context.Context, lines []models.PurchaseOrderLine) error
	FindByPOID(ctx context.Context, poID string) (*models.PurchaseOrder, error)
	FindByCheckoutAndSupplier(ctx context.Context, checkoutID uuid.UUID, supplierID int64) (*models.PurchaseOrder, error)
	ListForCompany(ctx context.Context, companyID int64, params pagination.Params, filters OrderFilters) ([]models.PurchaseOrder, string, error)
	ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, filters OrderFilters) ([]models.PurchaseOrder, string, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PurchaseOrderStatus) error
}
