package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/api/validators"
	"github.com/angelmondragon/procurement-backend/internal/checkout"
	"github.com/angelmondragon/procurement-backend/internal/contacts"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type checkoutRequest struct {
	CheckoutID *uuid.UUID         `json:"checkout_id"`
	ContactID  *int64             `json:"contact_id" validate:"omitempty,min=1"`
	NewContact *newContactRequest `json:"new_contact" validate:"omitempty"`
}

type newContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (p checkoutRequest) selection() contacts.Selection {
	sel := contacts.Selection{ContactID: p.ContactID}
	if p.NewContact != nil {
		sel.New = &contacts.Person{Name: p.NewContact.Name, Phone: p.NewContact.Phone}
	}
	return sel
}

// Checkout submits the cart as one purchase order per supplier. The status is
// 201 when every group succeeded, 207 when some did and 422 when none did.
// A client disconnect cancels the groups that have not committed yet.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), checkout.SubmitInput{
			CheckoutID: payload.CheckoutID,
			CompanyID:  owner.CompanyID,
			UserID:     owner.UserID,
			Contact:    payload.selection(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, result.HTTPStatus(), result)
	}
}

// AbortCheckout cancels a running submission of the caller.
func AbortCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout")
			return
		}
		owner, ok := companyOwner(w, r, logg)
		if !ok {
			return
		}
		checkoutID, err := validators.PathUUID(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Abort(r.Context(), checkoutID, owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"checkout_id": checkoutID.String(),
			"status":      "aborting",
		})
	}
}
