package enums

// PaymentTerms describes how a buyer settles a purchase order.
type PaymentTerms string

const (
	PaymentTermsPrepayment     PaymentTerms = "prepayment"
	PaymentTermsInvoice30      PaymentTerms = "invoice_30"
	PaymentTermsInvoice60      PaymentTerms = "invoice_60"
	PaymentTermsCashOnDelivery PaymentTerms = "cash_on_delivery"
)

var paymentTerms = newValueSet("payment terms",
	PaymentTermsPrepayment,
	PaymentTermsInvoice30,
	PaymentTermsInvoice60,
	PaymentTermsCashOnDelivery,
)

func (p PaymentTerms) String() string { return string(p) }

// IsValid reports whether the value is a known PaymentTerms.
func (p PaymentTerms) IsValid() bool { return paymentTerms.has(p) }

func ParsePaymentTerms(value string) (PaymentTerms, error) {
	return paymentTerms.parse(value)
}

// DueAfterDays returns how many days after issue an invoice under these terms
// falls due. Zero means due on issue.
func (p PaymentTerms) DueAfterDays() int {
	switch p {
	case PaymentTermsInvoice30:
		return 30
	case PaymentTermsInvoice60:
		return 60
	default:
		return 0
	}
}
