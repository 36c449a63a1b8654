package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
)

// ErrPermanent matches every error wrapped by Permanent.
var ErrPermanent = errors.New("permanent delivery failure")

type permanentError struct{ err error }

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent marks err as one no retry can fix.
func Permanent(err error) error {
	if err == nil {
		err = ErrPermanent
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, came from Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Payloads registers every event payload the outbox writes, at the envelope
// version Emit stamps.
func Payloads() *Decoders {
	d := NewDecoders()
	Handle[payloads.PurchaseOrderCreatedEvent](d, enums.EventPurchaseOrderCreated, outbox.CurrentVersion)
	Handle[payloads.InvoiceIssuedEvent](d, enums.EventInvoiceIssued, outbox.CurrentVersion)
	return d
}

// Route is where one event type is published and which aggregate owns it.
type Route struct {
	EventType enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	Topic     string
}

// Resolved is an outbox row that passed routing and payload decoding.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Router checks outbox rows against their routes before they are published.
type Router struct {
	routes   map[enums.OutboxEventType]Route
	decoders *Decoders
}

// NewRouter sends purchase order events to the orders topic and invoice
// events to the billing topic.
func NewRouter(cfg config.PubSubConfig) (*Router, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, fmt.Errorf("orders topic is required")
	case cfg.BillingTopic == "":
		return nil, fmt.Errorf("billing topic is required")
	}
	r := &Router{routes: map[enums.OutboxEventType]Route{}, decoders: Payloads()}
	for _, route := range []Route{
		{EventType: enums.EventPurchaseOrderCreated, Aggregate: enums.AggregatePurchaseOrder, Topic: cfg.OrdersTopic},
		{EventType: enums.EventInvoiceIssued, Aggregate: enums.AggregateInvoice, Topic: cfg.BillingTopic},
	} {
		r.routes[route.EventType] = route
	}
	return r, nil
}

// Topics lists each distinct topic once.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.routes))
	seen := make(map[string]bool, len(r.routes))
	for _, route := range r.routes {
		if !seen[route.Topic] {
			seen[route.Topic] = true
			topics = append(topics, route.Topic)
		}
	}
	return topics
}

// Resolve fails permanently for rows that can never be published: unknown
// types, aggregate mismatches, broken envelopes and undecodable payloads.
func (r *Router) Resolve(event models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", event.EventType))
	case route.Aggregate != event.AggregateType:
		return nil, Permanent(fmt.Errorf("aggregate mismatch: expected %s got %s", route.Aggregate, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &Resolved{Route: route, Envelope: envelope, Payload: payload}, nil
}
