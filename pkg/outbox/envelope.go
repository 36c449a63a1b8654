package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope version written by Emit when none is set.
const CurrentVersion = 1

// ErrMalformedEnvelope is wrapped by every DecodeEnvelope failure. Such
// payloads can never succeed on retry.
var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID     uuid.UUID `json:"userId"`
	CompanyID  *int64    `json:"companyId,omitempty"`
	SupplierID *int64    `json:"supplierId,omitempty"`
	Role       string    `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and carried
// verbatim as the Pub/Sub message body. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ID parses EventID.
func (e PayloadEnvelope) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: event id: %v", ErrMalformedEnvelope, err)
	}
	return id, nil
}

// DecodeEnvelope parses raw and rejects envelopes without a version or a
// data document.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if envelope.Version <= 0 {
		return PayloadEnvelope{}, fmt.Errorf("%w: version %d", ErrMalformedEnvelope, envelope.Version)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, fmt.Errorf("%w: data missing", ErrMalformedEnvelope)
	}
	return envelope, nil
}
