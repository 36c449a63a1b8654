package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	created []models.Notification
	err     error
}

func (s *memoryStore) Create(ctx context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, *n)
	return nil
}

type stubDirectory struct {
	suppliers map[int64]models.Supplier
	companies map[int64]models.Company
}

func (d stubDirectory) Supplier(ctx context.Context, id int64) (*models.Supplier, error) {
	s, ok := d.suppliers[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return &s, nil
}

func (d stubDirectory) Company(ctx context.Context, id int64) (*models.Company, error) {
	c, ok := d.companies[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
	}
	return &c, nil
}

type memoryGuard struct {
	seen      map[uuid.UUID]bool
	deleted   []uuid.UUID
	completed []uuid.UUID
	err       error
}

func (g *memoryGuard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[eventID] {
		return false, nil
	}
	g.seen[eventID] = true
	return true, nil
}

func (g *memoryGuard) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	g.completed = append(g.completed, eventID)
	return nil
}

func (g *memoryGuard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

type recordingDispatcher struct {
	sent []Message
	err  error
}

func (d *recordingDispatcher) Channel() string { return "test" }

func (d *recordingDispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.sent = append(d.sent, msg)
	return d.err
}

type noopSubscriber struct{}

func (noopSubscriber) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	return nil
}

type consumerFixture struct {
	store      *memoryStore
	guard      *memoryGuard
	dispatcher *recordingDispatcher
	consumer   *Consumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	webhook := "https://alpha.test/hooks/orders"
	f := &consumerFixture{
		store:      &memoryStore{},
		guard:      &memoryGuard{seen: map[uuid.UUID]bool{}},
		dispatcher: &recordingDispatcher{},
	}
	dir := stubDirectory{
		suppliers: map[int64]models.Supplier{10: {ID: 10, Name: "alpha", Email: "orders@alpha.test", NotificationWebhookURL: &webhook}},
		companies: map[int64]models.Company{20: {ID: 20, Name: "acme", Email: "buyer@acme.test"}},
	}
	consumer, err := NewConsumer(f.store, dir, []Subscriber{noopSubscriber{}}, f.guard, f.dispatcher, nil, logger.Nop())
	require.NoError(t, err)
	f.consumer = consumer
	return f
}

func eventMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       body,
		Attributes: map[string]string{"event_type": string(eventType), "event_id": eventID.String()},
	}
}

func orderCreated() payloads.PurchaseOrderCreatedEvent {
	return payloads.PurchaseOrderCreatedEvent{
		PurchaseOrderID: uuid.New(),
		POID:            "PO-20260310-ABC123",
		CheckoutID:      uuid.New(),
		CompanyID:       20,
		SupplierID:      10,
		DeliveryMethod:  enums.DeliveryMethodShipping,
		PaymentMethod:   enums.PaymentTermsInvoice30,
		LineCount:       2,
		SubtotalWithVAT: decimal.RequireFromString("125.00"),
	}
}

func TestConsumerCreatesSupplierNotificationAndDispatches(t *testing.T) {
	f := newConsumerFixture(t)
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, uuid.New(), orderCreated())

	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Equal(t, "created", result.status)

	require.Len(t, f.store.created, 1)
	n := f.store.created[0]
	require.NotNil(t, n.SupplierID)
	assert.EqualValues(t, 10, *n.SupplierID)
	assert.Nil(t, n.CompanyID)
	assert.Equal(t, enums.NotificationTypePurchaseOrderReceived, n.Type)
	require.NotNil(t, n.Link)
	assert.Equal(t, "/supplier/orders/PO-20260310-ABC123", *n.Link)
	assert.Contains(t, n.Message, "125.00")

	require.Len(t, f.dispatcher.sent, 1)
	sent := f.dispatcher.sent[0]
	assert.Equal(t, "orders@alpha.test", sent.Recipient)
	assert.Equal(t, "https://alpha.test/hooks/orders", sent.WebhookURL)
	assert.Equal(t, TemplatePurchaseOrderReceived, sent.Template)
	assert.Equal(t, "PO-20260310-ABC123", sent.POID)
}

func TestConsumerSkipsDuplicates(t *testing.T) {
	f := newConsumerFixture(t)
	eventID := uuid.New()
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, eventID, orderCreated())

	require.True(t, f.consumer.process(context.Background(), msg).ack)
	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Equal(t, "duplicate", result.status)
	assert.Len(t, f.store.created, 1)
	assert.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, []uuid.UUID{eventID}, f.guard.completed)
}

func TestConsumerDispatchFailureStillAcks(t *testing.T) {
	f := newConsumerFixture(t)
	f.dispatcher.err = errors.New("smtp down")
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, uuid.New(), orderCreated())

	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.False(t, result.nack)
	assert.Len(t, f.store.created, 1)
}

func TestConsumerNacksWhenNotificationCannotBeStored(t *testing.T) {
	f := newConsumerFixture(t)
	f.store.err = errors.New("db down")
	eventID := uuid.New()
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, eventID, orderCreated())

	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.nack)
	assert.Equal(t, []uuid.UUID{eventID}, f.guard.deleted)
	assert.Empty(t, f.guard.completed)
	assert.Empty(t, f.dispatcher.sent)
}

func TestConsumerDropsUnknownSupplier(t *testing.T) {
	f := newConsumerFixture(t)
	payload := orderCreated()
	payload.SupplierID = 99
	eventID := uuid.New()
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, eventID, payload)

	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Equal(t, "dropped", result.status)
	assert.Empty(t, f.store.created)
	assert.Equal(t, []uuid.UUID{eventID}, f.guard.deleted)
}

func TestConsumerNacksWhenIdempotencyUnavailable(t *testing.T) {
	f := newConsumerFixture(t)
	f.guard.err = errors.New("redis down")
	msg := eventMessage(t, enums.EventPurchaseOrderCreated, uuid.New(), orderCreated())

	assert.True(t, f.consumer.process(context.Background(), msg).nack)
}

func TestConsumerInvoiceNotifiesCompany(t *testing.T) {
	f := newConsumerFixture(t)
	due := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	msg := eventMessage(t, enums.EventInvoiceIssued, uuid.New(), payloads.InvoiceIssuedEvent{
		InvoiceID:     uuid.New(),
		InvoiceNumber: "INV-10-2026-000001",
		POID:          "PO-20260310-ABC123",
		CompanyID:     20,
		SupplierID:    10,
		TotalWithVAT:  decimal.RequireFromString("13.13"),
		DueDate:       &due,
	})

	require.True(t, f.consumer.process(context.Background(), msg).ack)
	require.Len(t, f.store.created, 1)
	n := f.store.created[0]
	require.NotNil(t, n.CompanyID)
	assert.EqualValues(t, 20, *n.CompanyID)
	assert.Equal(t, enums.NotificationTypeInvoiceIssued, n.Type)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "buyer@acme.test", f.dispatcher.sent[0].Recipient)
	assert.Equal(t, "2026-04-09", f.dispatcher.sent[0].Data["due_date"])
}

func TestConsumerAcksUnusableMessages(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	other := &pubsub.Message{ID: "1", Attributes: map[string]string{"event_type": "something.else"}}
	assert.Equal(t, "skipped", f.consumer.process(ctx, other).status)

	garbage := &pubsub.Message{ID: "2", Data: []byte("{"), Attributes: map[string]string{"event_type": string(enums.EventPurchaseOrderCreated)}}
	result := f.consumer.process(ctx, garbage)
	assert.True(t, result.ack)
	assert.Equal(t, "invalid", result.status)

	badPayload := eventMessage(t, enums.EventPurchaseOrderCreated, uuid.New(), "not an object")
	assert.Equal(t, "invalid", f.consumer.process(ctx, badPayload).status)
	assert.Empty(t, f.store.created)
}

type failingSubscriber struct{ err error }

func (s failingSubscriber) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return s.err
}

type blockingSubscriber struct{ stopped chan struct{} }

func (s blockingSubscriber) Receive(ctx context.Context, _ func(context.Context, *pubsub.Message)) error {
	<-ctx.Done()
	close(s.stopped)
	return nil
}

func TestConsumerRunStopsAllSubscriptionsOnFailure(t *testing.T) {
	f := newConsumerFixture(t)
	blocking := blockingSubscriber{stopped: make(chan struct{})}
	f.consumer.subscriptions = []Subscriber{blocking, failingSubscriber{err: errors.New("permission denied")}}

	err := f.consumer.Run(context.Background())
	assert.ErrorContains(t, err, "permission denied")
	select {
	case <-blocking.stopped:
	default:
		t.Fatal("sibling subscription kept running")
	}
}

func TestNewConsumerRejectsMissingSubscriptions(t *testing.T) {
	_, err := NewConsumer(&memoryStore{}, stubDirectory{}, nil, &memoryGuard{}, nil, nil, logger.Nop())
	assert.Error(t, err)
	_, err = NewConsumer(&memoryStore{}, stubDirectory{}, []Subscriber{nil}, &memoryGuard{}, nil, nil, logger.Nop())
	assert.Error(t, err)
}
