package models

// PurchaseOrderSequence holds the last PO sequence issued for a company and
// supplier on a UTC day (SeqDay is YYYYMMDD).
type PurchaseOrderSequence struct {
	SeqDay     string `gorm:"column:seq_day;primaryKey"`
	CompanyID  int64  `gorm:"column:company_id;primaryKey"`
	SupplierID int64  `gorm:"column:supplier_id;primaryKey"`
	LastValue  int64  `gorm:"column:last_value;not null"`
}

func (PurchaseOrderSequence) TableName() string { return "purchase_order_sequences" }

// InvoiceSequence holds the last invoice number issued by a supplier in a year.
type InvoiceSequence struct {
	SupplierID int64 `gorm:"column:supplier_id;primaryKey"`
	Year       int   `gorm:"column:year;primaryKey"`
	LastValue  int64 `gorm:"column:last_value;not null"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
