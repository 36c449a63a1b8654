package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

func ListCompanyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		page, filters, err := parseOrderQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForCompany(r.Context(), companyID, page, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Orders, list.NextCursor)
	}
}

func GetCompanyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		poID, err := validators.PathString(r, "poId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetForCompany(r.Context(), companyID, poID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListSupplierOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		page, filters, err := parseOrderQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForSupplier(r.Context(), supplierID, page, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Orders, list.NextCursor)
	}
}

func GetSupplierOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		supplierID, ok := supplierID(w, r, logg)
		if !ok {
			return
		}
		poID, err := validators.PathString(r, "poId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetForSupplier(r.Context(), supplierID, poID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// parseOrderQuery reads pagination plus the status, date_from and date_to
// filters. date_to covers the whole day, so the filter upper bound is the
// following midnight.
func parseOrderQuery(r *http.Request) (page pagination.Params, filters orders.OrderFilters, err error) {
	page, err = validators.ParsePagination(r)
	if err != nil {
		return page, filters, err
	}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, parseErr := enums.ParsePurchaseOrderStatus(raw)
		if parseErr != nil {
			return page, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		filters.Status = &status
	}
	if filters.DateFrom, err = validators.ParseQueryDate(r, "date_from"); err != nil {
		return page, filters, err
	}
	to, err := validators.ParseQueryDate(r, "date_to")
	if err != nil {
		return page, filters, err
	}
	if to != nil {
		if filters.DateFrom != nil && to.Before(*filters.DateFrom) {
			return page, filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to is before date_from")
		}
		end := to.AddDate(0, 0, 1)
		filters.DateTo = &end
	}
	return page, filters, nil
}
