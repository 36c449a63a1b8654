package helpers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
)

// SupplierGroup is the transient bucket of cart lines bound for one supplier.
type SupplierGroup struct {
	SupplierID   int64
	SupplierName string
	Lines        []models.CartLine
}

// GroupBySupplier partitions lines by supplier id, keeping suppliers in the
// order they first appear. Every line lands in exactly one group.
func GroupBySupplier(lines []models.CartLine) []SupplierGroup {
	groups := []SupplierGroup{}
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		pos, ok := index[line.SupplierID]
		if !ok {
			pos = len(groups)
			index[line.SupplierID] = pos
			groups = append(groups, SupplierGroup{
				SupplierID:   line.SupplierID,
				SupplierName: line.SupplierName,
			})
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
	}
	return groups
}

// Totals are exact sums; rounding happens only when amounts are stored.
type Totals struct {
	WithoutVAT decimal.Decimal `json:"total_without_vat"`
	WithVAT    decimal.Decimal `json:"total_with_vat"`
	LineCount  int             `json:"line_count"`
	Quantity   int             `json:"quantity"`
}

// LineTotals returns unit price times quantity, without and with VAT.
func LineTotals(line models.CartLine) (decimal.Decimal, decimal.Decimal) {
	qty := decimal.NewFromInt(int64(line.Quantity))
	return line.UnitPriceWithoutVAT.Mul(qty), line.UnitPriceWithVAT.Mul(qty)
}

// ComputeTotals sums the provided lines.
func ComputeTotals(lines []models.CartLine) Totals {
	totals := Totals{WithoutVAT: decimal.Zero, WithVAT: decimal.Zero}
	for _, line := range lines {
		net, gross := LineTotals(line)
		totals.WithoutVAT = totals.WithoutVAT.Add(net)
		totals.WithVAT = totals.WithVAT.Add(gross)
		totals.LineCount++
		totals.Quantity += line.Quantity
	}
	return totals
}
