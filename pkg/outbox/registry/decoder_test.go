package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
)

func TestDecodersReturnTypedPayload(t *testing.T) {
	d := NewDecoders()
	Handle[payloads.InvoiceIssuedEvent](d, enums.EventInvoiceIssued, 1)

	out, err := d.Decode(enums.EventInvoiceIssued, 1, json.RawMessage(`{"invoice_number":"INV-1-2026-000001"}`))
	require.NoError(t, err)
	invoice, ok := out.(payloads.InvoiceIssuedEvent)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "INV-1-2026-000001", invoice.InvoiceNumber)

	assert.True(t, d.Supports(enums.EventInvoiceIssued))
	assert.False(t, d.Supports(enums.EventPurchaseOrderCreated))
}

func TestDecodersRejectUnknownVersionAndBadJSON(t *testing.T) {
	d := NewDecoders()
	Handle[payloads.InvoiceIssuedEvent](d, enums.EventInvoiceIssued, 1)

	_, err := d.Decode(enums.EventInvoiceIssued, 2, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNoDecoder)

	_, err = d.Decode(enums.EventInvoiceIssued, 1, json.RawMessage(`[`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDecoder)
}
