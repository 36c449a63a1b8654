package locations

import (
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// DeliveryLocationDTO is a saved client location as returned by the API.
type DeliveryLocationDTO struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"company_id"`
	types.PostalAddress
	CreatedAt time.Time `json:"created_at"`
}

// PickupLocationDTO is a supplier pickup site as returned by the API.
type PickupLocationDTO struct {
	ID         int64 `json:"id"`
	SupplierID int64 `json:"supplier_id"`
	types.PostalAddress
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func deliveryDTO(m models.DeliveryLocation) DeliveryLocationDTO {
	return DeliveryLocationDTO{
		ID:            m.ID,
		CompanyID:     m.CompanyID,
		PostalAddress: m.Address,
		CreatedAt:     m.CreatedAt,
	}
}

func pickupDTO(m models.PickupLocation) PickupLocationDTO {
	return PickupLocationDTO{
		ID:            m.ID,
		SupplierID:    m.SupplierID,
		PostalAddress: m.Address,
		ImageURL:      m.ImageURL,
		CreatedAt:     m.CreatedAt,
	}
}
