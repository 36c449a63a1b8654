package enums

// InvoiceStatus maps to the invoices.status column.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

var invoiceStatuses = newValueSet("invoice status",
	InvoiceStatusIssued,
	InvoiceStatusPaid,
	InvoiceStatusVoid,
)

func (i InvoiceStatus) String() string { return string(i) }

// IsValid reports whether the value is a known InvoiceStatus.
func (i InvoiceStatus) IsValid() bool { return invoiceStatuses.has(i) }

func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	return invoiceStatuses.parse(value)
}
