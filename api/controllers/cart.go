package controllers

import (
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type addCartLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type groupDeliveryRequest struct {
	DeliveryMethod string `json:"delivery_method" validate:"required,delivery_method"`
	PaymentTerms   string `json:"payment_terms" validate:"required,payment_terms"`
}

func (p groupDeliveryRequest) toInput() (cart.GroupDeliveryInput, error) {
	method, err := enums.ParseDeliveryMethod(p.DeliveryMethod)
	if err != nil {
		return cart.GroupDeliveryInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_method")
	}
	terms, err := enums.ParsePaymentTerms(p.PaymentTerms)
	if err != nil {
		return cart.GroupDeliveryInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_terms")
	}
	return cart.GroupDeliveryInput{Method: method, PaymentTerms: terms}, nil
}

// groupAddressRequest leaves the one-source rule to the cart service.
type groupAddressRequest struct {
	DeliveryLocationID *int64          `json:"delivery_location_id" validate:"omitempty,min=1"`
	PickupLocationID   *int64          `json:"pickup_location_id" validate:"omitempty,min=1"`
	Custom             *addressRequest `json:"custom_address" validate:"omitempty"`
}

func (p groupAddressRequest) toInput() cart.GroupAddressInput {
	input := cart.GroupAddressInput{
		DeliveryLocationID: p.DeliveryLocationID,
		PickupLocationID:   p.PickupLocationID,
	}
	if p.Custom != nil {
		addr := p.Custom.toAddress()
		input.Custom = &addr
	}
	return input
}

func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		record, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// AddCartLine adds a product to the cart, merging with an existing line.
func AddCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		var payload addCartLineRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Add(r.Context(), owner, cart.AddLineInput{ProductID: payload.ProductID, Quantity: payload.Quantity})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func UpdateCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		lineID, err := validators.PathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartLineRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateQuantity(r.Context(), owner, lineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func RemoveCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		lineID, err := validators.PathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Remove(r.Context(), owner, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// SetCartGroupDelivery applies delivery method and payment terms to every
// line of one supplier.
func SetCartGroupDelivery(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		supplierID, err := validators.PathInt64(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload groupDeliveryRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.SetGroupDelivery(r.Context(), owner, supplierID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func SetCartGroupAddress(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		supplierID, err := validators.PathInt64(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload groupAddressRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.SetGroupAddress(r.Context(), owner, supplierID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
