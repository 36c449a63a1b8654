package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
)

const poSequenceUpsert = `
INSERT INTO purchase_order_sequences (seq_day, company_id, supplier_id, last_value)
VALUES (?, ?, ?, 1)
ON CONFLICT (seq_day, company_id, supplier_id)
DO UPDATE SET last_value = purchase_order_sequences.last_value + 1
RETURNING last_value`

// POIDConstraint is the unique index on purchase_orders.po_id.
const POIDConstraint = "ux_purchase_orders_po_id"

// Generator issues purchase order ids of the form
// YYYYMMDD + company id + supplier id + two digit daily sequence.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// maxSkippedIDs bounds how many already used ids Generate steps over before
// giving up on the pair for the day.
const maxSkippedIDs = 100

// Generate claims the next sequence value for (day, company, supplier) inside
// tx. The counter row stays locked until tx ends, so concurrent submissions
// for the same pair wait for each other instead of reading the same value.
//
// The id is an unseparated concatenation, so distinct pairs can render the
// same string (company 1 supplier 23 and company 12 supplier 3). Values whose
// id is already on a purchase order are skipped and the next one is claimed.
func (g *Generator) Generate(ctx context.Context, tx *gorm.DB, day time.Time, companyID, supplierID int64) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("transaction required")
	}
	seqDay := SequenceDay(day)
	tx = tx.WithContext(ctx)
	for range maxSkippedIDs {
		var next int64
		if err := tx.Raw(poSequenceUpsert, seqDay, companyID, supplierID).Scan(&next).Error; err != nil {
			return "", fmt.Errorf("claim po sequence: %w", err)
		}
		if next <= 0 {
			return "", fmt.Errorf("claim po sequence: no value returned")
		}
		id := FormatPOID(seqDay, companyID, supplierID, next)
		var used int64
		if err := tx.Model(&models.PurchaseOrder{}).Where("po_id = ?", id).Count(&used).Error; err != nil {
			return "", fmt.Errorf("check po id %s: %w", id, err)
		}
		if used == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("claim po sequence: %d consecutive ids already in use", maxSkippedIDs)
}

// SequenceDay is the UTC calendar day a purchase order is numbered under.
func SequenceDay(t time.Time) string {
	return t.UTC().Format("20060102")
}

// FormatPOID pads the sequence to two digits; it widens past 99.
func FormatPOID(seqDay string, companyID, supplierID, seq int64) string {
	return fmt.Sprintf("%s%d%d%02d", seqDay, companyID, supplierID, seq)
}

// SequencePruner removes counter rows for days that can no longer number an
// order. Today's rows must never be pruned.
type SequencePruner struct {
	db *gorm.DB
}

func NewSequencePruner(db *gorm.DB) *SequencePruner {
	return &SequencePruner{db: db}
}

// DeleteBefore drops every sequence row whose day is strictly before cutoff's
// UTC day.
func (p *SequencePruner) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if !cutoff.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return 0, fmt.Errorf("prune po sequences: cutoff %s reaches the current day", SequenceDay(cutoff))
	}
	res := p.db.WithContext(ctx).
		Where("seq_day < ?", SequenceDay(cutoff)).
		Delete(&models.PurchaseOrderSequence{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune po sequences: %w", res.Error)
	}
	return res.RowsAffected, nil
}
