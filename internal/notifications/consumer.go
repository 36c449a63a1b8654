package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/registry"
)

const procurementNotificationConsumer = "procurement-notifications"

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type directory interface {
	Supplier(ctx context.Context, id int64) (*models.Supplier, error)
	Company(ctx context.Context, id int64) (*models.Company, error)
}

type processedGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Subscriber is the receive side of a Pub/Sub subscription.
type Subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns purchase order and invoice events into in-app notifications
// and outbound dispatches. A failed dispatch is counted and acked; the order
// itself is never affected.
type Consumer struct {
	repo          notificationStore
	directory     directory
	subscriptions []Subscriber
	idempotency   processedGuard
	dispatcher    Dispatcher
	decoders      *registry.Decoders
	metrics       *metrics.NotificationMetrics
	logg          *logger.Logger
}

// NewConsumer builds the notification consumer. dispatcher may be nil to
// create in-app notifications only.
func NewConsumer(
	repo notificationStore,
	dir directory,
	subscriptions []Subscriber,
	guard processedGuard,
	dispatcher Dispatcher,
	notificationMetrics *metrics.NotificationMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory required")
	}
	if len(subscriptions) == 0 {
		return nil, fmt.Errorf("notification subscription required")
	}
	for _, sub := range subscriptions {
		if sub == nil {
			return nil, fmt.Errorf("nil notification subscription")
		}
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:          repo,
		directory:     dir,
		subscriptions: subscriptions,
		idempotency:   guard,
		dispatcher:    dispatcher,
		decoders:      registry.Payloads(),
		metrics:       notificationMetrics,
		logg:          logg,
	}, nil
}

// Run receives from every subscription until ctx ends or one of them fails,
// which stops the others.
func (c *Consumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range c.subscriptions {
		g.Go(func() error {
			return sub.Receive(gctx, c.receive)
		})
	}
	return g.Wait()
}

func (c *Consumer) receive(ctx context.Context, msg *pubsub.Message) {
	if c.process(ctx, msg).nack {
		msg.Nack()
		return
	}
	msg.Ack()
}

type processResult struct {
	ack    bool
	nack   bool
	status string
}

func acked(status string) processResult  { return processResult{ack: true, status: status} }
func nacked(status string) processResult { return processResult{nack: true, status: status} }

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})
	result := c.handle(logCtx, eventType, msg)
	c.metrics.IncProcessed(string(eventType), result.status)
	return result
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, msg *pubsub.Message) processResult {
	if !c.decoders.Supports(eventType) {
		c.logg.Debug(ctx, "skipping event without notifications")
		return acked("skipped")
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(ctx, "failed to decode envelope", err)
		return acked("invalid")
	}
	eventID, err := envelope.ID()
	if err != nil {
		c.logg.Error(ctx, "invalid event id", err)
		return acked("invalid")
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(ctx, "failed to parse payload", err)
		return acked("invalid")
	}

	claimed, err := c.idempotency.Claim(ctx, procurementNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return nacked("retry")
	}
	if !claimed {
		c.logg.Info(ctx, "event already processed")
		return acked("duplicate")
	}

	var msgOut *Message
	switch p := payload.(type) {
	case payloads.PurchaseOrderCreatedEvent:
		msgOut, err = c.orderReceived(ctx, p)
	case payloads.InvoiceIssuedEvent:
		msgOut, err = c.invoiceIssued(ctx, p)
	}
	if err != nil {
		c.logg.Error(ctx, "notification handling failed", err)
		if relErr := c.idempotency.Release(ctx, procurementNotificationConsumer, eventID); relErr != nil {
			c.logg.Error(ctx, "idempotency release failed", relErr)
		}
		if !pkgerrors.Retryable(err) {
			// a missing supplier or company will not appear on redelivery
			return acked("dropped")
		}
		return nacked("retry")
	}
	if err := c.idempotency.Complete(ctx, procurementNotificationConsumer, eventID); err != nil {
		// the lease still expires on its own; acking avoids a duplicate row
		c.logg.Error(ctx, "idempotency complete failed", err)
	}

	c.dispatch(ctx, msgOut)
	return acked("created")
}

// dispatch never fails the message: the in-app notification already exists.
func (c *Consumer) dispatch(ctx context.Context, msg *Message) {
	if c.dispatcher == nil || msg == nil {
		return
	}
	if err := c.dispatcher.Dispatch(ctx, *msg); err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeNotification, err, "dispatch notification")
		}
		c.logg.Error(c.logg.WithField(ctx, "channel", c.dispatcher.Channel()), "notification dispatch failed", err)
		c.metrics.IncDispatchFailure(c.dispatcher.Channel())
	}
}

func (c *Consumer) orderReceived(ctx context.Context, p payloads.PurchaseOrderCreatedEvent) (*Message, error) {
	supplier, err := c.directory.Supplier(ctx, p.SupplierID)
	if err != nil {
		return nil, err
	}
	supplierID := p.SupplierID
	link := fmt.Sprintf("/supplier/orders/%s", p.POID)
	notification := &models.Notification{
		SupplierID: &supplierID,
		Type:       enums.NotificationTypePurchaseOrderReceived,
		Title:      "New purchase order",
		Message:    fmt.Sprintf("Purchase order %s with %d lines, %s incl. VAT.", p.POID, p.LineCount, p.SubtotalWithVAT.StringFixed(2)),
		Link:       &link,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	webhook := ""
	if supplier.NotificationWebhookURL != nil {
		webhook = *supplier.NotificationWebhookURL
	}
	return &Message{
		Recipient:  supplier.Email,
		Subject:    fmt.Sprintf("New purchase order %s", p.POID),
		Template:   TemplatePurchaseOrderReceived,
		POID:       p.POID,
		WebhookURL: webhook,
		Data: map[string]any{
			"company_id":        p.CompanyID,
			"delivery_method":   p.DeliveryMethod,
			"payment_method":    p.PaymentMethod,
			"line_count":        p.LineCount,
			"subtotal_with_vat": p.SubtotalWithVAT.StringFixed(2),
		},
	}, nil
}

func (c *Consumer) invoiceIssued(ctx context.Context, p payloads.InvoiceIssuedEvent) (*Message, error) {
	company, err := c.directory.Company(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	companyID := p.CompanyID
	link := fmt.Sprintf("/invoices/%s", p.InvoiceID)
	notification := &models.Notification{
		CompanyID: &companyID,
		Type:      enums.NotificationTypeInvoiceIssued,
		Title:     "Invoice issued",
		Message:   fmt.Sprintf("Invoice %s for purchase order %s, %s incl. VAT.", p.InvoiceNumber, p.POID, p.TotalWithVAT.StringFixed(2)),
		Link:      &link,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	data := map[string]any{
		"invoice_number": p.InvoiceNumber,
		"total_with_vat": p.TotalWithVAT.StringFixed(2),
	}
	if p.DueDate != nil {
		data["due_date"] = p.DueDate.Format("2006-01-02")
	}
	return &Message{
		Recipient: company.Email,
		Subject:   fmt.Sprintf("Invoice %s", p.InvoiceNumber),
		Template:  TemplateInvoiceIssued,
		POID:      p.POID,
		Data:      data,
	}, nil
}
