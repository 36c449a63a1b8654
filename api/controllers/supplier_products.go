package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	product "github.com/angelmondragon/procurement-backend/internal/products"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const defaultMovementLimit = 50

type createProductRequest struct {
	SKU             string           `json:"sku" validate:"required,max=64"`
	Name            string           `json:"name" validate:"required,max=200"`
	Description     *string          `json:"description"`
	ImageURL        *string          `json:"image_url" validate:"omitempty,url"`
	Unit            string           `json:"unit" validate:"required,max=32"`
	PriceWithoutVAT decimal.Decimal  `json:"price_without_vat"`
	PriceWithVAT    *decimal.Decimal `json:"price_with_vat"`
	VATRate         decimal.Decimal  `json:"vat_rate"`
	StockQuantity   int              `json:"stock_quantity" validate:"min=0"`
	Active          *bool            `json:"active"`
}

func (p createProductRequest) toInput() product.CreateProductInput {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return product.CreateProductInput{
		SKU:             p.SKU,
		Name:            p.Name,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
		Unit:            p.Unit,
		PriceWithoutVAT: p.PriceWithoutVAT,
		PriceWithVAT:    p.PriceWithVAT,
		VATRate:         p.VATRate,
		StockQuantity:   p.StockQuantity,
		Active:          active,
	}
}

type updateProductRequest struct {
	Name            *string          `json:"name" validate:"omitempty,max=200"`
	Description     *string          `json:"description"`
	ImageURL        *string          `json:"image_url" validate:"omitempty,url"`
	Unit            *string          `json:"unit" validate:"omitempty,max=32"`
	PriceWithoutVAT *decimal.Decimal `json:"price_without_vat"`
	PriceWithVAT    *decimal.Decimal `json:"price_with_vat"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	Active          *bool            `json:"active"`
}

type stockAdjustmentRequest struct {
	Delta     int     `json:"delta" validate:"required"`
	Reason    string  `json:"reason" validate:"required,stock_reason"`
	Reference *string `json:"reference" validate:"omitempty,max=200"`
}

func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Create(r.Context(), supplierID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.PathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Update(r.Context(), supplierID, productID, product.UpdateProductInput{
			Name:            payload.Name,
			Description:     payload.Description,
			ImageURL:        payload.ImageURL,
			Unit:            payload.Unit,
			PriceWithoutVAT: payload.PriceWithoutVAT,
			PriceWithVAT:    payload.PriceWithVAT,
			VATRate:         payload.VATRate,
			Active:          payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdjustStock applies a signed stock delta and records the movement.
func AdjustStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		actor, ok := actorID(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.PathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stockAdjustmentRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseStockMovementReason(payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason"))
			return
		}
		dto, err := svc.AdjustStock(r.Context(), supplierID, productID, product.StockAdjustmentInput{
			Delta:     payload.Delta,
			Reason:    reason,
			Reference: payload.Reference,
			ActorID:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ListStockMovements(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.PathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultMovementLimit, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListMovements(r.Context(), supplierID, productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
