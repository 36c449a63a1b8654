package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/internal/checkout/helpers"
	"github.com/angelmondragon/procurement-backend/internal/contacts"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	dbpkg "github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
)

// Service turns a cart into one purchase order per supplier.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*Result, error)
	Abort(ctx context.Context, checkoutID uuid.UUID, owner cart.Owner) error
}

// SubmitInput carries the caller and the purchase order contact. CheckoutID
// is generated when omitted.
type SubmitInput struct {
	CheckoutID *uuid.UUID
	CompanyID  int64
	UserID     uuid.UUID
	Contact    contacts.Selection
}

func (in SubmitInput) owner() cart.Owner {
	return cart.Owner{CompanyID: in.CompanyID, UserID: in.UserID}
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ownerQueue interface {
	Do(ctx context.Context, owner cart.Owner, fn func(ctx context.Context) error) error
}

type addressResolver interface {
	Resolve(ctx context.Context, sel address.Selection, companyID, supplierID int64) (address.Resolved, error)
}

type contactResolver interface {
	Resolve(ctx context.Context, companyID int64, sel contacts.Selection) (contacts.Person, error)
}

type poIDGenerator interface {
	Generate(ctx context.Context, tx *gorm.DB, day time.Time, companyID, supplierID int64) (string, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

var errPOIDTaken = errors.New("purchase order id already taken")

type service struct {
	tx        txRunner
	lines     cart.LineRepository
	queue     ownerQueue
	orders    orders.Repository
	poids     poIDGenerator
	addresses addressResolver
	contacts  contactResolver
	outbox    outboxPublisher
	cfg       config.CheckoutConfig
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	runs      *inflight
	now       func() time.Time
}

// NewService wires checkout dependencies. metrics and logg may be nil.
func NewService(
	tx txRunner,
	lines cart.LineRepository,
	queue ownerQueue,
	ordersRepo orders.Repository,
	poids poIDGenerator,
	addresses addressResolver,
	contactResolver contactResolver,
	publisher outboxPublisher,
	cfg config.CheckoutConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if lines == nil {
		return nil, fmt.Errorf("cart line repository required")
	}
	if queue == nil {
		return nil, fmt.Errorf("cart queue required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if poids == nil {
		return nil, fmt.Errorf("po id generator required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address resolver required")
	}
	if contactResolver == nil {
		return nil, fmt.Errorf("contact resolver required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.GroupTimeout <= 0 || cfg.GroupTimeout > cfg.Timeout {
		cfg.GroupTimeout = cfg.Timeout
	}
	if cfg.MaxParallelGroups <= 0 {
		cfg.MaxParallelGroups = 1
	}
	if cfg.POIDMaxRetries < 0 {
		cfg.POIDMaxRetries = 0
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:        tx,
		lines:     lines,
		queue:     queue,
		orders:    ordersRepo,
		poids:     poids,
		addresses: addresses,
		contacts:  contactResolver,
		outbox:    publisher,
		cfg:       cfg,
		metrics:   checkoutMetrics,
		logg:      logg,
		runs:      newInflight(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	if input.CompanyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "company context required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	checkoutID := uuid.New()
	if input.CheckoutID != nil && *input.CheckoutID != uuid.Nil {
		checkoutID = *input.CheckoutID
	}
	owner := input.owner()
	started := time.Now()

	ctx = s.logg.WithField(ctx, "checkout_id", checkoutID.String())
	ctx = s.logg.WithField(ctx, "company_id", input.CompanyID)
	ctx, cancelTimeout := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancelTimeout()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if !s.runs.register(checkoutID, owner, cancel) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	defer s.runs.remove(checkoutID)

	var result *Result
	err := s.queue.Do(ctx, owner, func(ctx context.Context) error {
		lines, err := s.lines.List(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		result = s.submitGroups(ctx, checkoutID, input, helpers.GroupBySupplier(lines))
		return nil
	})
	if err != nil {
		err = contextError(ctx, err, "checkout")
		s.logg.Error(ctx, "checkout failed", err)
		s.metrics.ObserveCheckout(OutcomeFailed, time.Since(started))
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outcome":   result.Outcome(),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	if groupErrs := result.Err(); groupErrs != nil {
		s.logg.Error(logCtx, "checkout finished with failed groups", groupErrs)
	} else {
		s.logg.Info(logCtx, "checkout completed")
	}
	s.metrics.ObserveCheckout(result.Outcome(), time.Since(started))
	return result, nil
}

func (s *service) Abort(ctx context.Context, checkoutID uuid.UUID, owner cart.Owner) error {
	if checkoutID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout id required")
	}
	if !s.runs.abort(checkoutID, owner) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	s.logg.Info(s.logg.WithField(ctx, "checkout_id", checkoutID.String()), "checkout abort requested")
	return nil
}

// submitGroups runs every group to a terminal state. Group failures never
// cancel their siblings.
func (s *service) submitGroups(ctx context.Context, checkoutID uuid.UUID, input SubmitInput, groups []helpers.SupplierGroup) *Result {
	outcomes := make([]GroupOutcome, len(groups))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallelGroups)
	for i, group := range groups {
		g.Go(func() error {
			outcomes[i] = s.runGroup(ctx, checkoutID, input, group)
			return nil
		})
	}
	_ = g.Wait()
	return newResult(checkoutID, outcomes)
}

func (s *service) runGroup(ctx context.Context, checkoutID uuid.UUID, input SubmitInput, group helpers.SupplierGroup) GroupOutcome {
	out := GroupOutcome{
		SupplierID:   group.SupplierID,
		SupplierName: group.SupplierName,
		State:        enums.GroupStateGrouped,
		Totals:       helpers.ComputeTotals(group.Lines),
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GroupTimeout)
	defer cancel()
	ctx = s.logg.WithField(ctx, "supplier_id", group.SupplierID)

	order, err := s.placeGroup(ctx, checkoutID, input, group, &out.State)
	if err != nil {
		out.fail(contextError(ctx, err, "supplier group"))
		s.logg.Error(s.logg.WithField(ctx, "failed_at", out.FailedAt), "supplier group failed", out.err)
	} else {
		out.State = enums.GroupStateNotifiedOk
		out.POID = order.POID
		id := order.ID
		out.PurchaseOrderID = &id
	}
	s.metrics.ObserveGroup(out.State.String(), string(out.ErrorCode))
	return out
}

// placeGroup walks one group through the state machine. state is advanced
// as each step starts so a failure reports the step it stopped in.
func (s *service) placeGroup(ctx context.Context, checkoutID uuid.UUID, input SubmitInput, group helpers.SupplierGroup, state *enums.GroupState) (*models.PurchaseOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groupCfg, err := helpers.ValidateGroupConsistency(group)
	if err != nil {
		return nil, err
	}

	*state = enums.GroupStateAddressResolving
	resolved, err := s.addresses.Resolve(ctx, groupCfg.Selection, input.CompanyID, group.SupplierID)
	if err != nil {
		return nil, err
	}

	*state = enums.GroupStateContactResolving
	person, err := s.contacts.Resolve(ctx, input.CompanyID, input.Contact)
	if err != nil {
		return nil, err
	}

	draft := newDraft(checkoutID, input, group, groupCfg, resolved, person)
	*state = enums.GroupStateIDGenerating
	return s.persistGroup(ctx, draft, group, state)
}

// insertHeader numbers the order and inserts its header. Each insert runs in
// a savepoint, so a taken id undoes only that insert; the sequence claim stays
// in tx and the next attempt draws a later value.
func (s *service) insertHeader(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder) error {
	for attempt := 0; ; attempt++ {
		poID, err := s.poids.Generate(ctx, tx, s.now(), order.CompanyID, order.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "generate purchase order id")
		}
		order.POID = poID

		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.orders.WithTx(sp).CreateHeader(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, orders.POIDConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert purchase order")
		}
		if attempt >= s.cfg.POIDMaxRetries {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, fmt.Errorf("%w: %s", errPOIDTaken, poID), "could not allocate a unique purchase order id")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "purchase order id collision, retrying")
	}
}

// persistGroup writes header, lines, cart cleanup and the outbox event in one
// transaction.
func (s *service) persistGroup(ctx context.Context, draft models.PurchaseOrder, group helpers.SupplierGroup, state *enums.GroupState) (*models.PurchaseOrder, error) {
	order := draft
	order.ID = uuid.New()
	owner := cart.Owner{CompanyID: order.CompanyID, UserID: order.PlacedByUserID}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		existing, err := ordersRepo.FindByCheckoutAndSupplier(ctx, order.CheckoutID, order.SupplierID)
		if err != nil && !dbpkg.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check existing purchase order")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier group already submitted for this checkout").
				WithDetails(map[string]any{"po_id": existing.POID})
		}

		if err := s.insertHeader(ctx, tx, &order); err != nil {
			return err
		}
		*state = enums.GroupStateHeaderPersisted

		lines := orderLines(order, group.Lines)
		if err := ordersRepo.CreateLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert purchase order lines")
		}
		order.Lines = lines

		lineIDs := make([]uuid.UUID, 0, len(group.Lines))
		for _, line := range group.Lines {
			lineIDs = append(lineIDs, line.ID)
		}
		removed, err := s.lines.WithTx(tx).DeleteLines(ctx, owner, lineIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear submitted cart lines")
		}
		if removed != int64(len(lineIDs)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}
		*state = enums.GroupStateLinesPersisted

		return s.emitOrderCreated(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order models.PurchaseOrder) error {
	companyID := order.CompanyID
	event := outbox.DomainEvent{
		EventType:     enums.EventPurchaseOrderCreated,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   order.ID,
		Actor: &outbox.ActorRef{
			UserID:    order.PlacedByUserID,
			CompanyID: &companyID,
			Role:      "client",
		},
		Data: payloads.PurchaseOrderCreatedEvent{
			PurchaseOrderID:    order.ID,
			POID:               order.POID,
			CheckoutID:         order.CheckoutID,
			CompanyID:          order.CompanyID,
			SupplierID:         order.SupplierID,
			PlacedByUserID:     order.PlacedByUserID,
			DeliveryMethod:     order.DeliveryMethod,
			PaymentMethod:      order.PaymentMethod,
			LineCount:          len(order.Lines),
			SubtotalWithoutVAT: order.SubtotalWithoutVAT,
			SubtotalWithVAT:    order.SubtotalWithVAT,
		},
		OccurredAt: s.now(),
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "enqueue purchase order notification")
	}
	return nil
}

func newDraft(checkoutID uuid.UUID, input SubmitInput, group helpers.SupplierGroup, cfg helpers.GroupConfig, resolved address.Resolved, person contacts.Person) models.PurchaseOrder {
	totals := helpers.ComputeTotals(group.Lines)
	return models.PurchaseOrder{
		CheckoutID:         checkoutID,
		CompanyID:          input.CompanyID,
		SupplierID:         group.SupplierID,
		PlacedByUserID:     input.UserID,
		DeliveryMethod:     cfg.DeliveryMethod,
		PaymentMethod:      cfg.PaymentTerms,
		ContactName:        person.Name,
		PhoneNumber:        person.Phone,
		Address:            resolved.PostalAddress,
		AddressSource:      resolved.Source,
		SubtotalWithoutVAT: totals.WithoutVAT,
		SubtotalWithVAT:    totals.WithVAT,
		Status:             enums.PurchaseOrderStatusSubmitted,
	}
}

func orderLines(order models.PurchaseOrder, cartLines []models.CartLine) []models.PurchaseOrderLine {
	lines := make([]models.PurchaseOrderLine, 0, len(cartLines))
	for _, line := range cartLines {
		net, gross := helpers.LineTotals(line)
		lines = append(lines, models.PurchaseOrderLine{
			ID:                  uuid.New(),
			PurchaseOrderID:     order.ID,
			POID:                order.POID,
			ProductID:           line.ProductID,
			ProductName:         line.ProductName,
			Quantity:            line.Quantity,
			PriceWithoutVAT:     line.UnitPriceWithoutVAT,
			PriceWithVAT:        line.UnitPriceWithVAT,
			LineTotalWithoutVAT: net,
			LineTotalWithVAT:    gross,
		})
	}
	return lines
}

// contextError prefers the cancellation cause once ctx is done, since lookups
// may have wrapped the bare context error under another code.
func contextError(ctx context.Context, err error, op string) error {
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		switch {
		case errors.Is(cause, ErrAborted):
			return pkgerrors.Wrap(pkgerrors.CodeAborted, err, op+" aborted")
		case errors.Is(cause, context.DeadlineExceeded):
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, op+" timed out")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeAborted, err, op+" canceled")
		}
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op+" failed")
}
