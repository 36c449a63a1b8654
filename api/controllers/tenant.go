package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// companyOwner reads the cart owner from the request, writing the error
// response itself when the context is incomplete.
func companyOwner(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (cart.Owner, bool) {
	companyID, ok := auth.ActorFrom(r.Context()).Company()
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "company context missing"))
		return cart.Owner{}, false
	}
	userID, ok := actorID(w, r, logg)
	if !ok {
		return cart.Owner{}, false
	}
	return cart.Owner{CompanyID: companyID, UserID: userID}, true
}

func companyID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (int64, bool) {
	id, ok := auth.ActorFrom(r.Context()).Company()
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "company context missing"))
	}
	return id, ok
}

func supplierID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (int64, bool) {
	id, ok := auth.ActorFrom(r.Context()).Supplier()
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "supplier context missing"))
	}
	return id, ok
}

func actorID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id := auth.ActorFrom(r.Context()).UserID
	if id == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return id, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
