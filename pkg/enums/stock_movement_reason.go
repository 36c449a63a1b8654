package enums

// StockMovementReason explains why a product's stock changed.
type StockMovementReason string

const (
	StockReasonAdjustment    StockMovementReason = "adjustment"
	StockReasonRestock       StockMovementReason = "restock"
	StockReasonOrderReserved StockMovementReason = "order_reserved"
)

var stockMovementReasons = newValueSet("stock movement reason",
	StockReasonAdjustment,
	StockReasonRestock,
	StockReasonOrderReserved,
)

func (s StockMovementReason) String() string { return string(s) }

// IsValid reports whether the value is a known StockMovementReason.
func (s StockMovementReason) IsValid() bool { return stockMovementReasons.has(s) }

func ParseStockMovementReason(value string) (StockMovementReason, error) {
	return stockMovementReasons.parse(value)
}
