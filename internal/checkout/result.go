package checkout

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/internal/checkout/helpers"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
)

// GroupOutcome is the per-supplier result of a submission.
type GroupOutcome struct {
	SupplierID      int64            `json:"supplier_id"`
	SupplierName    string           `json:"supplier_name"`
	State           enums.GroupState `json:"state"`
	FailedAt        enums.GroupState `json:"failed_at,omitempty"`
	POID            string           `json:"po_id,omitempty"`
	PurchaseOrderID *uuid.UUID       `json:"purchase_order_id,omitempty"`
	Totals          helpers.Totals   `json:"totals"`
	ErrorCode       pkgerrors.Code   `json:"error_code,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	ErrorDetails    any              `json:"error_details,omitempty"`

	err error
}

// fail moves the outcome to the failed state, remembering where it stopped.
func (o *GroupOutcome) fail(err error) {
	o.FailedAt = o.State
	o.State = enums.GroupStateFailed
	o.err = err

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "supplier group failed")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	o.ErrorCode = typed.Code()
	o.ErrorMessage = meta.PublicMessage
	if meta.HTTPStatus < http.StatusInternalServerError {
		o.ErrorMessage = typed.Message()
	}
	if meta.DetailsAllowed {
		o.ErrorDetails = typed.Details()
	}
}

// Result summarises a submission: one outcome per supplier group in cart order.
type Result struct {
	CheckoutID uuid.UUID      `json:"checkout_id"`
	Groups     []GroupOutcome `json:"groups"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
}

func newResult(checkoutID uuid.UUID, groups []GroupOutcome) *Result {
	res := &Result{CheckoutID: checkoutID, Groups: groups}
	for _, g := range groups {
		if g.State.Succeeded() {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}

// Outcome is complete when every group succeeded, failed when none did.
func (r *Result) Outcome() string {
	switch {
	case r.Failed == 0:
		return OutcomeComplete
	case r.Succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// HTTPStatus maps the outcome to 201, 207 or 422.
func (r *Result) HTTPStatus() int {
	switch r.Outcome() {
	case OutcomeComplete:
		return http.StatusCreated
	case OutcomePartial:
		return http.StatusMultiStatus
	default:
		return http.StatusUnprocessableEntity
	}
}

// Err combines the errors of every failed group, or nil.
func (r *Result) Err() error {
	var err error
	for _, g := range r.Groups {
		if g.err != nil {
			err = multierr.Append(err, g.err)
		}
	}
	return err
}
