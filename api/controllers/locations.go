package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/locations"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// LocationService is the part of locations.Service the handlers use.
type LocationService interface {
	ListDelivery(ctx context.Context, companyID int64) ([]locations.DeliveryLocationDTO, error)
	CreateDelivery(ctx context.Context, companyID int64, addr types.PostalAddress) (*locations.DeliveryLocationDTO, error)
	DeleteDelivery(ctx context.Context, companyID, id int64) error
	ListPickup(ctx context.Context, supplierID int64) ([]locations.PickupLocationDTO, error)
	CreatePickup(ctx context.Context, supplierID int64, addr types.PostalAddress, imageURL *string) (*locations.PickupLocationDTO, error)
}

type addressRequest struct {
	LocationName  string `json:"location_name" validate:"required"`
	StreetAddress string `json:"street_address" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required"`
	Town          string `json:"town" validate:"required"`
	Country       string `json:"country" validate:"required"`
}

func (a addressRequest) toAddress() types.PostalAddress {
	return types.PostalAddress{
		LocationName:  a.LocationName,
		StreetAddress: a.StreetAddress,
		PostalCode:    a.PostalCode,
		Town:          a.Town,
		Country:       a.Country,
	}
}

type pickupLocationRequest struct {
	addressRequest
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
}

func ListDeliveryLocations(svc LocationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "locations")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListDelivery(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CreateDeliveryLocation(svc LocationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "locations")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		var payload addressRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.CreateDelivery(r.Context(), companyID, payload.toAddress())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func DeleteDeliveryLocation(svc LocationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "locations")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathInt64(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteDelivery(r.Context(), companyID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListPickupLocations(svc LocationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "locations")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListPickup(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CreatePickupLocation(svc LocationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "locations")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		var payload pickupLocationRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.CreatePickup(r.Context(), supplierID, payload.toAddress(), payload.ImageURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
