// Package address turns a cart line's delivery selection into the one postal
// address printed on a purchase order.
package address

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// ErrIncompleteAddress is wrapped by Resolve when the selection does not
// identify a usable address.
var ErrIncompleteAddress = errors.New("incomplete address")

// Selection is the address choice stored on a cart line.
type Selection struct {
	Method             enums.DeliveryMethod
	DeliveryLocationID *int64
	PickupLocationID   *int64
	Custom             types.PostalAddress
}

// Resolved is a concrete address plus the source it came from.
type Resolved struct {
	types.PostalAddress
	Source enums.AddressSource
}

type locationLookup interface {
	FindDelivery(ctx context.Context, companyID, id int64) (*models.DeliveryLocation, error)
	FindPickup(ctx context.Context, supplierID, id int64) (*models.PickupLocation, error)
}

// Resolver reads saved locations; it never writes.
type Resolver struct {
	locations locationLookup
}

func NewResolver(locations locationLookup) (*Resolver, error) {
	if locations == nil {
		return nil, fmt.Errorf("location lookup required")
	}
	return &Resolver{locations: locations}, nil
}

// SelectionFromLine extracts the address choice from a cart line.
func SelectionFromLine(line models.CartLine) Selection {
	return Selection{
		Method:             line.DeliveryMethod,
		DeliveryLocationID: line.DeliveryLocationID,
		PickupLocationID:   line.PickupLocationID,
		Custom:             line.CustomAddress,
	}
}

// Resolve returns exactly one source's address. Pickup uses the supplier's
// pickup location. Shipping prefers a complete custom address over a saved
// delivery location. Fields are never merged across sources.
func (r *Resolver) Resolve(ctx context.Context, sel Selection, companyID, supplierID int64) (Resolved, error) {
	switch sel.Method {
	case enums.DeliveryMethodPickup:
		if sel.PickupLocationID == nil {
			return Resolved{}, incomplete("a pickup location is required", nil)
		}
		loc, err := r.locations.FindPickup(ctx, supplierID, *sel.PickupLocationID)
		if err != nil {
			return Resolved{}, lookupError(err, "pickup location")
		}
		return Resolved{PostalAddress: loc.Address.Trimmed(), Source: enums.AddressSourcePickupLocation}, nil

	case enums.DeliveryMethodShipping:
		custom := sel.Custom.Trimmed()
		if custom.IsComplete() {
			return Resolved{PostalAddress: custom, Source: enums.AddressSourceCustom}, nil
		}
		if sel.DeliveryLocationID != nil {
			loc, err := r.locations.FindDelivery(ctx, companyID, *sel.DeliveryLocationID)
			if err != nil {
				return Resolved{}, lookupError(err, "delivery location")
			}
			return Resolved{PostalAddress: loc.Address.Trimmed(), Source: enums.AddressSourceDeliveryLocation}, nil
		}
		return Resolved{}, incomplete("a complete shipping address is required", custom.MissingFields())

	default:
		return Resolved{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown delivery method %q", sel.Method)
	}
}

// ClearForMethod drops the address sources that do not apply to method.
// Switching to pickup forgets the shipping choice and vice versa.
func ClearForMethod(sel Selection, method enums.DeliveryMethod) Selection {
	sel.Method = method
	switch method {
	case enums.DeliveryMethodPickup:
		sel.DeliveryLocationID = nil
		sel.Custom = types.PostalAddress{}
	case enums.DeliveryMethodShipping:
		sel.PickupLocationID = nil
	}
	return sel
}

func incomplete(message string, missing []string) error {
	err := pkgerrors.Wrap(pkgerrors.CodeValidation, ErrIncompleteAddress, message)
	if len(missing) > 0 {
		err = err.WithDetails(map[string]any{"missing_fields": missing})
	}
	return err
}

func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load "+entity)
}
