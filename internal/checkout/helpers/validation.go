package helpers

import (
	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

// GroupConfig is the delivery configuration shared by every line of a group.
type GroupConfig struct {
	DeliveryMethod enums.DeliveryMethod
	PaymentTerms   enums.PaymentTerms
	Selection      address.Selection
}

// ValidateGroupConsistency rejects a group whose lines disagree on delivery
// method, payment terms or address selection, and returns the shared config.
func ValidateGroupConsistency(group SupplierGroup) (GroupConfig, error) {
	if len(group.Lines) == 0 {
		return GroupConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "supplier group has no lines")
	}
	first := group.Lines[0]
	cfg := GroupConfig{
		DeliveryMethod: first.DeliveryMethod,
		PaymentTerms:   first.PaymentTerms,
		Selection:      address.SelectionFromLine(first),
	}
	if !cfg.DeliveryMethod.IsValid() {
		return GroupConfig{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery method %q", cfg.DeliveryMethod)
	}
	if !cfg.PaymentTerms.IsValid() {
		return GroupConfig{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment terms %q", cfg.PaymentTerms)
	}

	for _, line := range group.Lines[1:] {
		var field string
		switch {
		case line.SupplierID != group.SupplierID:
			field = "supplier_id"
		case line.DeliveryMethod != cfg.DeliveryMethod:
			field = "delivery_method"
		case line.PaymentTerms != cfg.PaymentTerms:
			field = "payment_terms"
		case !sameSelection(address.SelectionFromLine(line), cfg.Selection):
			field = "address"
		}
		if field != "" {
			return GroupConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "cart lines for one supplier must share delivery settings").
				WithDetails(map[string]any{
					"supplier_id": group.SupplierID,
					"line_id":     line.ID,
					"field":       field,
				})
		}
	}
	return cfg, nil
}

func sameSelection(a, b address.Selection) bool {
	return a.Method == b.Method &&
		sameID(a.DeliveryLocationID, b.DeliveryLocationID) &&
		sameID(a.PickupLocationID, b.PickupLocationID) &&
		a.Custom.Trimmed() == b.Custom.Trimmed()
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
