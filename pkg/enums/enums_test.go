package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrimsAndRejectsUnknown(t *testing.T) {
	got, err := ParseDeliveryMethod(" pickup ")
	require.NoError(t, err)
	assert.Equal(t, DeliveryMethodPickup, got)

	_, err = ParseDeliveryMethod("drone")
	assert.ErrorIs(t, err, ErrUnknownValue)
	assert.ErrorContains(t, err, `delivery method "drone"`)

	_, err = ParseInvoiceStatus("PAID")
	assert.ErrorIs(t, err, ErrUnknownValue, "matching is case sensitive")
}

func TestParseRoundTripsEveryValue(t *testing.T) {
	for _, status := range purchaseOrderStatuses.values {
		got, err := ParsePurchaseOrderStatus(status.String())
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}
	for _, reason := range stockMovementReasons.values {
		assert.True(t, reason.IsValid(), reason)
	}
}

func TestPaymentTermsDueAfterDays(t *testing.T) {
	cases := map[PaymentTerms]int{
		PaymentTermsPrepayment:     0,
		PaymentTermsInvoice30:      30,
		PaymentTermsInvoice60:      60,
		PaymentTermsCashOnDelivery: 0,
	}
	for terms, want := range cases {
		assert.Equal(t, want, terms.DueAfterDays(), terms)
	}
}

func TestGroupStateTerminal(t *testing.T) {
	assert.True(t, GroupStateFailed.IsTerminal())
	assert.True(t, GroupStateNotifiedOk.IsTerminal())
	assert.False(t, GroupStateLinesPersisted.IsTerminal())
	assert.False(t, GroupStateFailed.Succeeded())
	assert.True(t, GroupStateNotifiedOk.Succeeded())
}

func TestOutboxEventTypeIsValid(t *testing.T) {
	assert.True(t, EventPurchaseOrderCreated.IsValid())
	assert.True(t, EventInvoiceIssued.IsValid())
	assert.False(t, OutboxEventType("order_created").IsValid())
	assert.False(t, OutboxEventType("").IsValid())
}
