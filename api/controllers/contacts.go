package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/contacts"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// ContactService is the part of contacts.Service the handlers use.
type ContactService interface {
	List(ctx context.Context, companyID int64) ([]contacts.ContactDTO, error)
	Get(ctx context.Context, companyID, id int64) (*contacts.ContactDTO, error)
	Create(ctx context.Context, companyID int64, input contacts.CreateInput) (*contacts.ContactDTO, error)
}

type createContactRequest struct {
	Alias       string `json:"alias" validate:"max=120"`
	ContactName string `json:"contact_name" validate:"required,max=200"`
	PhoneNumber string `json:"phone_number" validate:"required,max=50"`
}

func ListContacts(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "contacts")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.List(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func GetContact(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "contacts")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathInt64(r, "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), companyID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func CreateContact(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "contacts")
			return
		}
		companyID, ok := companyID(w, r, logg)
		if !ok {
			return
		}
		var payload createContactRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Create(r.Context(), companyID, contacts.CreateInput{
			Alias:       payload.Alias,
			ContactName: payload.ContactName,
			PhoneNumber: payload.PhoneNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
