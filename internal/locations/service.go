package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

type repository interface {
	ListDelivery(ctx context.Context, companyID int64) ([]models.DeliveryLocation, error)
	CreateDelivery(ctx context.Context, loc *models.DeliveryLocation) error
	DeleteDelivery(ctx context.Context, companyID, id int64) (bool, error)
	ListPickup(ctx context.Context, supplierID int64) ([]models.PickupLocation, error)
	CreatePickup(ctx context.Context, loc *models.PickupLocation) error
}

// Service validates and stores saved addresses.
type Service struct {
	repo repository
}

// NewService builds a locations service.
func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("locations repository required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) ListDelivery(ctx context.Context, companyID int64) ([]DeliveryLocationDTO, error) {
	rows, err := s.repo.ListDelivery(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list delivery locations")
	}
	out := make([]DeliveryLocationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, deliveryDTO(row))
	}
	return out, nil
}

func (s *Service) CreateDelivery(ctx context.Context, companyID int64, addr types.PostalAddress) (*DeliveryLocationDTO, error) {
	addr, err := validateAddress(addr)
	if err != nil {
		return nil, err
	}
	loc := &models.DeliveryLocation{CompanyID: companyID, Address: addr}
	if err := s.repo.CreateDelivery(ctx, loc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create delivery location")
	}
	dto := deliveryDTO(*loc)
	return &dto, nil
}

func (s *Service) DeleteDelivery(ctx context.Context, companyID, id int64) error {
	deleted, err := s.repo.DeleteDelivery(ctx, companyID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete delivery location")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery location not found")
	}
	return nil
}

func (s *Service) ListPickup(ctx context.Context, supplierID int64) ([]PickupLocationDTO, error) {
	rows, err := s.repo.ListPickup(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list pickup locations")
	}
	out := make([]PickupLocationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, pickupDTO(row))
	}
	return out, nil
}

func (s *Service) CreatePickup(ctx context.Context, supplierID int64, addr types.PostalAddress, imageURL *string) (*PickupLocationDTO, error) {
	addr, err := validateAddress(addr)
	if err != nil {
		return nil, err
	}
	if imageURL != nil && strings.TrimSpace(*imageURL) == "" {
		imageURL = nil
	}
	loc := &models.PickupLocation{SupplierID: supplierID, Address: addr, ImageURL: imageURL}
	if err := s.repo.CreatePickup(ctx, loc); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "pickup location already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create pickup location")
	}
	dto := pickupDTO(*loc)
	return &dto, nil
}

func validateAddress(addr types.PostalAddress) (types.PostalAddress, error) {
	addr = addr.Trimmed()
	if missing := addr.MissingFields(); len(missing) > 0 {
		return addr, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	return addr, nil
}
