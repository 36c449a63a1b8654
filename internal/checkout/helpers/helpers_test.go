package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

func line(supplierID int64, name string, qty int, net, gross string) models.CartLine {
	return models.CartLine{
		ID:                  uuid.New(),
		SupplierID:          supplierID,
		SupplierName:        name,
		Quantity:            qty,
		UnitPriceWithoutVAT: decimal.RequireFromString(net),
		UnitPriceWithVAT:    decimal.RequireFromString(gross),
		DeliveryMethod:      enums.DeliveryMethodShipping,
		PaymentTerms:        enums.PaymentTermsPrepayment,
	}
}

func TestGroupBySupplierPreservesFirstSeenOrder(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line(2, "B", 1, "5.00", "6.25"),
		line(1, "A", 2, "10.00", "12.50"),
		line(2, "B", 3, "1.00", "1.25"),
		line(3, "A", 1, "1.00", "1.25"),
	}

	groups := GroupBySupplier(lines)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].SupplierID != 2 || groups[1].SupplierID != 1 || groups[2].SupplierID != 3 {
		t.Fatalf("unexpected group order %+v", groups)
	}
	if len(groups[0].Lines) != 2 {
		t.Fatalf("expected 2 lines for supplier 2, got %d", len(groups[0].Lines))
	}

	seen := map[uuid.UUID]int{}
	for _, g := range groups {
		for _, l := range g.Lines {
			if l.SupplierID != g.SupplierID {
				t.Fatalf("line %s landed in group %d", l.ID, g.SupplierID)
			}
			seen[l.ID]++
		}
	}
	if len(seen) != len(lines) {
		t.Fatalf("expected every line grouped once, saw %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("line %s appears %d times", id, n)
		}
	}
}

func TestGroupBySupplierEmpty(t *testing.T) {
	t.Parallel()

	if groups := GroupBySupplier(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestComputeTotalsIsExact(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line(1, "A", 3, "0.10", "0.13"),
		line(1, "A", 7, "0.20", "0.25"),
	}
	totals := ComputeTotals(lines)
	if !totals.WithoutVAT.Equal(decimal.RequireFromString("1.70")) {
		t.Fatalf("unexpected total without vat %s", totals.WithoutVAT)
	}
	if !totals.WithVAT.Equal(decimal.RequireFromString("2.14")) {
		t.Fatalf("unexpected total with vat %s", totals.WithVAT)
	}
	if totals.Quantity != 10 || totals.LineCount != 2 {
		t.Fatalf("unexpected counts %+v", totals)
	}

	empty := ComputeTotals(nil)
	if !empty.WithVAT.IsZero() || !empty.WithoutVAT.IsZero() {
		t.Fatalf("expected zero totals for empty cart")
	}
}

func TestValidateGroupConsistency(t *testing.T) {
	t.Parallel()

	locID := int64(4)
	base := line(1, "A", 1, "1.00", "1.25")
	base.DeliveryLocationID = &locID
	same := base
	same.ID = uuid.New()
	sameID := int64(4)
	same.DeliveryLocationID = &sameID

	cfg, err := ValidateGroupConsistency(SupplierGroup{SupplierID: 1, Lines: []models.CartLine{base, same}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeliveryMethod != enums.DeliveryMethodShipping || cfg.Selection.DeliveryLocationID == nil {
		t.Fatalf("unexpected config %+v", cfg)
	}

	pickup := base
	pickup.ID = uuid.New()
	pickup.DeliveryMethod = enums.DeliveryMethodPickup

	terms := base
	terms.ID = uuid.New()
	terms.PaymentTerms = enums.PaymentTermsInvoice30

	custom := base
	custom.ID = uuid.New()
	custom.CustomAddress = types.PostalAddress{StreetAddress: "2 Side St", PostalCode: "1", Town: "X", Country: "DK"}

	cases := map[string]models.CartLine{
		"mixed method":  pickup,
		"mixed terms":   terms,
		"mixed address": custom,
	}
	for name, other := range cases {
		other := other
		t.Run(name, func(t *testing.T) {
			_, err := ValidateGroupConsistency(SupplierGroup{SupplierID: 1, Lines: []models.CartLine{base, other}})
			if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := ValidateGroupConsistency(SupplierGroup{SupplierID: 1}); err == nil {
		t.Fatal("expected empty group to be rejected")
	}
}
