package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders maps (event type, envelope version) to a typed payload decoder.
// Registration happens during construction; a populated set is safe for
// concurrent Decode calls.
type Decoders struct {
	byKey map[decoderKey]func(json.RawMessage) (any, error)
	types map[enums.OutboxEventType]struct{}
}

func NewDecoders() *Decoders {
	return &Decoders{
		byKey: map[decoderKey]func(json.RawMessage) (any, error){},
		types: map[enums.OutboxEventType]struct{}{},
	}
}

// Handle registers T as the payload of eventType at version. Decode returns
// the payload by value.
func Handle[T any](d *Decoders, eventType enums.OutboxEventType, version int) {
	d.byKey[decoderKey{eventType, version}] = func(raw json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	d.types[eventType] = struct{}{}
}

// Supports reports whether any version of eventType is registered.
func (d *Decoders) Supports(eventType enums.OutboxEventType) bool {
	_, ok := d.types[eventType]
	return ok
}

func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := d.byKey[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("%s@v%d: %w", eventType, version, ErrNoDecoder)
	}
	payload, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
	}
	return payload, nil
}
