package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/internal/checkout/helpers"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

// Cart is the owner's cart exactly as storage holds it.
type Cart struct {
	Lines  []LineDTO      `json:"lines"`
	Groups []GroupDTO     `json:"groups"`
	Totals helpers.Totals `json:"totals"`
}

type LineDTO struct {
	ID                  uuid.UUID            `json:"id"`
	ProductID           int64                `json:"product_id"`
	ProductName         string               `json:"product_name"`
	SupplierID          int64                `json:"supplier_id"`
	SupplierName        string               `json:"supplier_name"`
	Quantity            int                  `json:"quantity"`
	UnitPriceWithoutVAT decimal.Decimal      `json:"unit_price_without_vat"`
	UnitPriceWithVAT    decimal.Decimal      `json:"unit_price_with_vat"`
	LineTotalWithoutVAT decimal.Decimal      `json:"line_total_without_vat"`
	LineTotalWithVAT    decimal.Decimal      `json:"line_total_with_vat"`
	DeliveryMethod      enums.DeliveryMethod `json:"delivery_method"`
	PaymentTerms        enums.PaymentTerms   `json:"payment_terms"`
	DeliveryLocationID  *int64               `json:"delivery_location_id,omitempty"`
	PickupLocationID    *int64               `json:"pickup_location_id,omitempty"`
	CustomAddress       *types.PostalAddress `json:"custom_address,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// GroupDTO summarises the lines of one supplier. DeliveryMethod and
// PaymentTerms are taken from the first line; Consistent is false when
// the lines disagree and checkout would reject the group.
type GroupDTO struct {
	SupplierID     int64                `json:"supplier_id"`
	SupplierName   string               `json:"supplier_name"`
	LineIDs        []uuid.UUID          `json:"line_ids"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	PaymentTerms   enums.PaymentTerms   `json:"payment_terms"`
	Consistent     bool                 `json:"consistent"`
	Totals         helpers.Totals       `json:"totals"`
}

func newCart(lines []models.CartLine) *Cart {
	out := &Cart{
		Lines:  make([]LineDTO, 0, len(lines)),
		Groups: []GroupDTO{},
		Totals: helpers.ComputeTotals(lines),
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, newLineDTO(line))
	}
	for _, group := range helpers.GroupBySupplier(lines) {
		out.Groups = append(out.Groups, newGroupDTO(group))
	}
	return out
}

func newLineDTO(line models.CartLine) LineDTO {
	withoutVAT, withVAT := helpers.LineTotals(line)
	dto := LineDTO{
		ID:                  line.ID,
		ProductID:           line.ProductID,
		ProductName:         line.ProductName,
		SupplierID:          line.SupplierID,
		SupplierName:        line.SupplierName,
		Quantity:            line.Quantity,
		UnitPriceWithoutVAT: line.UnitPriceWithoutVAT,
		UnitPriceWithVAT:    line.UnitPriceWithVAT,
		LineTotalWithoutVAT: withoutVAT,
		LineTotalWithVAT:    withVAT,
		DeliveryMethod:      line.DeliveryMethod,
		PaymentTerms:        line.PaymentTerms,
		DeliveryLocationID:  line.DeliveryLocationID,
		PickupLocationID:    line.PickupLocationID,
		UpdatedAt:           line.UpdatedAt,
	}
	if !line.CustomAddress.IsEmpty() {
		custom := line.CustomAddress
		dto.CustomAddress = &custom
	}
	return dto
}

func newGroupDTO(group helpers.SupplierGroup) GroupDTO {
	dto := GroupDTO{
		SupplierID:   group.SupplierID,
		SupplierName: group.SupplierName,
		LineIDs:      make([]uuid.UUID, 0, len(group.Lines)),
		Totals:       helpers.ComputeTotals(group.Lines),
	}
	for _, line := range group.Lines {
		dto.LineIDs = append(dto.LineIDs, line.ID)
	}
	if len(group.Lines) > 0 {
		dto.DeliveryMethod = group.Lines[0].DeliveryMethod
		dto.PaymentTerms = group.Lines[0].PaymentTerms
	}
	_, err := helpers.ValidateGroupConsistency(group)
	dto.Consistent = err == nil
	return dto
}
