package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/internal/contacts"
	"github.com/angelmondragon/procurement-backend/internal/locations"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/dbtest"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
)

type blockingContacts struct {
	next    contactResolver
	blockOn int
	started chan struct{}

	mu    sync.Mutex
	calls int
}

func (b *blockingContacts) Resolve(ctx context.Context, companyID int64, sel contacts.Selection) (contacts.Person, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()
	if n == b.blockOn {
		close(b.started)
		<-ctx.Done()
		return contacts.Person{}, ctx.Err()
	}
	return b.next.Resolve(ctx, companyID, sel)
}

type failingPublisher struct {
	next       outboxPublisher
	supplierID int64
}

func (p *failingPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if data, ok := event.Data.(payloads.PurchaseOrderCreatedEvent); ok && data.SupplierID == p.supplierID {
		return errors.New("outbox unavailable")
	}
	return p.next.Emit(ctx, tx, event)
}

type scriptedPOIDs struct {
	next   poIDGenerator
	queued []string
}

func (s *scriptedPOIDs) Generate(ctx context.Context, tx *gorm.DB, day time.Time, companyID, supplierID int64) (string, error) {
	if len(s.queued) > 0 {
		id := s.queued[0]
		s.queued = s.queued[1:]
		return id, nil
	}
	return s.next.Generate(ctx, tx, day, companyID, supplierID)
}

type checkoutFixture struct {
	conn      *gorm.DB
	owner     cart.Owner
	supplierA models.Supplier
	supplierB models.Supplier
	productA  models.Product
	productB  models.Product
	delivery  models.DeliveryLocation
	contact   models.Contact

	contacts  contactResolver
	publisher outboxPublisher
	poids     poIDGenerator
	cfg       config.CheckoutConfig
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	conn := dbtest.Open(t)
	company := dbtest.SeedCompany(t, conn, "buyer")
	supplierA := dbtest.SeedSupplier(t, conn, "alpha")
	supplierB := dbtest.SeedSupplier(t, conn, "bravo")

	contactSvc, err := contacts.NewService(contacts.NewRepository(conn))
	require.NoError(t, err)

	return &checkoutFixture{
		conn:      conn,
		owner:     cart.Owner{CompanyID: company.ID, UserID: uuid.New()},
		supplierA: supplierA,
		supplierB: supplierB,
		productA:  dbtest.SeedProduct(t, conn, supplierA.ID, "A-1", "5.00"),
		productB:  dbtest.SeedProduct(t, conn, supplierB.ID, "B-1", "2.50"),
		delivery:  dbtest.SeedDeliveryLocation(t, conn, company.ID, "Aarhus"),
		contact:   dbtest.SeedContact(t, conn, company.ID, "Dana"),
		contacts:  contactSvc,
		publisher: outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		poids:     orders.NewGenerator(),
		cfg: config.CheckoutConfig{
			Timeout:           5 * time.Second,
			GroupTimeout:      2 * time.Second,
			MaxParallelGroups: 4,
			POIDMaxRetries:    2,
		},
	}
}

func (f *checkoutFixture) service(t *testing.T) Service {
	t.Helper()
	resolver, err := address.NewResolver(locations.NewRepository(f.conn))
	require.NoError(t, err)
	svc, err := NewService(
		db.NewFromGorm(f.conn),
		cart.NewRepository(f.conn),
		cart.NewQueue(),
		orders.NewRepository(f.conn),
		f.poids,
		resolver,
		f.contacts,
		f.publisher,
		f.cfg,
		nil,
		logger.Nop(),
	)
	require.NoError(t, err)
	return svc
}

func (f *checkoutFixture) addLine(t *testing.T, product models.Product, supplier models.Supplier, qty int, mutate ...func(*models.CartLine)) models.CartLine {
	t.Helper()
	line := models.CartLine{
		CompanyID:           f.owner.CompanyID,
		UserID:              f.owner.UserID,
		ProductID:           product.ID,
		ProductName:         product.Name,
		SupplierID:          supplier.ID,
		SupplierName:        supplier.Name,
		Quantity:            qty,
		UnitPriceWithoutVAT: product.PriceWithoutVAT,
		UnitPriceWithVAT:    product.PriceWithVAT,
		DeliveryMethod:      enums.DeliveryMethodShipping,
		PaymentTerms:        enums.PaymentTermsInvoice30,
		DeliveryLocationID:  &f.delivery.ID,
	}
	for _, fn := range mutate {
		fn(&line)
	}
	require.NoError(t, f.conn.Create(&line).Error)
	return line
}

func (f *checkoutFixture) input() SubmitInput {
	return SubmitInput{
		CompanyID: f.owner.CompanyID,
		UserID:    f.owner.UserID,
		Contact:   contacts.Selection{ContactID: &f.contact.ID},
	}
}

func (f *checkoutFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func noAddress(line *models.CartLine) { line.DeliveryLocationID = nil }

func TestSubmitCreatesOneOrderPerSupplier(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addLine(t, f.productA, f.supplierA, 4)
	f.addLine(t, f.productB, f.supplierB, 2)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.HTTPStatus())
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Groups, 2)

	byPOID := map[string]models.PurchaseOrder{}
	var headers []models.PurchaseOrder
	require.NoError(t, f.conn.Preload("Lines").Find(&headers).Error)
	require.Len(t, headers, 2)
	for _, h := range headers {
		byPOID[h.POID] = h
	}

	want := map[int64]string{f.supplierA.ID: "20", f.supplierB.ID: "5"}
	for _, g := range res.Groups {
		assert.Equal(t, enums.GroupStateNotifiedOk, g.State)
		header, ok := byPOID[g.POID]
		require.True(t, ok, "missing header for %s", g.POID)
		assert.Equal(t, g.SupplierID, header.SupplierID)
		assert.Equal(t, want[g.SupplierID], header.SubtotalWithoutVAT.String())
		assert.True(t, g.Totals.WithoutVAT.Equal(header.SubtotalWithoutVAT))
		assert.Equal(t, "Dana", header.ContactName)
		assert.Equal(t, enums.AddressSourceDeliveryLocation, header.AddressSource)
		assert.Equal(t, "Aarhus", header.Address.Town)
		assert.Equal(t, res.CheckoutID, header.CheckoutID)
		require.Len(t, header.Lines, 1)
		assert.Equal(t, header.POID, header.Lines[0].POID)
	}

	assert.Zero(t, f.count(t, &models.CartLine{}))
	assert.EqualValues(t, 2, f.count(t, &models.OutboxEvent{}))
}

func TestSubmitIsolatesFailingGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addLine(t, f.productA, f.supplierA, 1)
	f.addLine(t, f.productB, f.supplierB, 1, noAddress)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, res.HTTPStatus())
	require.Len(t, res.Groups, 2)

	ok, failed := res.Groups[0], res.Groups[1]
	assert.Equal(t, enums.GroupStateNotifiedOk, ok.State)
	assert.NotEmpty(t, ok.POID)
	assert.Equal(t, enums.GroupStateFailed, failed.State)
	assert.Equal(t, enums.GroupStateAddressResolving, failed.FailedAt)
	assert.Equal(t, pkgerrors.CodeValidation, failed.ErrorCode)
	assert.Empty(t, failed.POID)
	assert.Error(t, res.Err())

	assert.EqualValues(t, 1, f.count(t, &models.PurchaseOrder{}))
	var remaining []models.CartLine
	require.NoError(t, f.conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, f.supplierB.ID, remaining[0].SupplierID)
}

func TestSubmitRejectsMixedGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	other := dbtest.SeedProduct(t, f.conn, f.supplierA.ID, "A-2", "1.00")
	f.addLine(t, f.productA, f.supplierA, 1)
	f.addLine(t, other, f.supplierA, 1, func(l *models.CartLine) {
		l.PaymentTerms = enums.PaymentTermsPrepayment
	})

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.HTTPStatus())
	require.Len(t, res.Groups, 1)
	assert.Equal(t, enums.GroupStateGrouped, res.Groups[0].FailedAt)
	assert.Equal(t, pkgerrors.CodeValidation, res.Groups[0].ErrorCode)
	assert.NotNil(t, res.Groups[0].ErrorDetails)
	assert.Zero(t, f.count(t, &models.PurchaseOrder{}))
	assert.EqualValues(t, 2, f.count(t, &models.CartLine{}))
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.service(t).Submit(context.Background(), f.input())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSubmitRequiresCaller(t *testing.T) {
	f := newCheckoutFixture(t)
	svc := f.service(t)

	_, err := svc.Submit(context.Background(), SubmitInput{UserID: uuid.New()})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = svc.Submit(context.Background(), SubmitInput{CompanyID: f.owner.CompanyID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestSubmitUnknownContactFailsEveryGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addLine(t, f.productA, f.supplierA, 1)
	f.addLine(t, f.productB, f.supplierB, 1)
	missing := int64(9999)
	input := f.input()
	input.Contact = contacts.Selection{ContactID: &missing}

	res, err := f.service(t).Submit(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.HTTPStatus())
	for _, g := range res.Groups {
		assert.Equal(t, enums.GroupStateContactResolving, g.FailedAt)
		assert.Equal(t, pkgerrors.CodeNotFound, g.ErrorCode)
	}
}

func TestSubmitInlineContactIsNotStored(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addLine(t, f.productA, f.supplierA, 1)
	input := f.input()
	input.Contact = contacts.Selection{New: &contacts.Person{Name: " Sam ", Phone: "+4511111111"}}

	res, err := f.service(t).Submit(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)

	order, err := orders.NewRepository(f.conn).FindByPOID(context.Background(), res.Groups[0].POID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", order.ContactName)
	assert.EqualValues(t, 1, f.count(t, &models.Contact{}))
}

func TestSubmitOutboxFailureRollsBackGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.publisher = &failingPublisher{next: f.publisher, supplierID: f.supplierB.ID}
	f.addLine(t, f.productA, f.supplierA, 1)
	f.addLine(t, f.productB, f.supplierB, 1)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, res.HTTPStatus())

	failed := res.Groups[1]
	assert.Equal(t, f.supplierB.ID, failed.SupplierID)
	assert.Equal(t, enums.GroupStateLinesPersisted, failed.FailedAt)
	assert.Equal(t, pkgerrors.CodePersistence, failed.ErrorCode)

	var headers []models.PurchaseOrder
	require.NoError(t, f.conn.Find(&headers).Error)
	require.Len(t, headers, 1)
	assert.Equal(t, f.supplierA.ID, headers[0].SupplierID)
	assert.EqualValues(t, 1, f.count(t, &models.PurchaseOrderLine{}))
	assert.EqualValues(t, 1, f.count(t, &models.CartLine{}))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}))
}

// insertPlacedOrder stores a header for another checkout that already holds poID.
func (f *checkoutFixture) insertPlacedOrder(t *testing.T, poID string, supplierID int64) {
	t.Helper()
	placed := models.PurchaseOrder{
		POID:               poID,
		CheckoutID:         uuid.New(),
		CompanyID:          f.owner.CompanyID,
		SupplierID:         supplierID,
		PlacedByUserID:     uuid.New(),
		DeliveryMethod:     enums.DeliveryMethodShipping,
		PaymentMethod:      enums.PaymentTermsPrepayment,
		ContactName:        "x",
		PhoneNumber:        "x",
		Address:            dbtest.SampleAddress("Odense"),
		AddressSource:      enums.AddressSourceCustom,
		SubtotalWithoutVAT: f.productB.PriceWithoutVAT,
		SubtotalWithVAT:    f.productB.PriceWithVAT,
		Status:             enums.PurchaseOrderStatusSubmitted,
	}
	require.NoError(t, f.conn.Omit("Lines").Create(&placed).Error)
}

func TestSubmitRetriesPOIDCollision(t *testing.T) {
	f := newCheckoutFixture(t)
	f.insertPlacedOrder(t, "TAKEN", f.supplierB.ID)
	f.insertPlacedOrder(t, "TAKEN-2", f.supplierB.ID)
	f.poids = &scriptedPOIDs{next: orders.NewGenerator(), queued: []string{"TAKEN", "TAKEN-2"}}
	f.addLine(t, f.productA, f.supplierA, 1)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	want := orders.FormatPOID(orders.SequenceDay(time.Now()), f.owner.CompanyID, f.supplierA.ID, 1)
	assert.Equal(t, want, res.Groups[0].POID)
	assert.EqualValues(t, 3, f.count(t, &models.PurchaseOrder{}))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}))
}

func TestSubmitSkipsPOIDHeldByAnotherOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	day := orders.SequenceDay(time.Now())
	held := orders.FormatPOID(day, f.owner.CompanyID, f.supplierA.ID, 1)
	f.insertPlacedOrder(t, held, f.supplierB.ID)
	f.addLine(t, f.productA, f.supplierA, 1)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	assert.Equal(t, orders.FormatPOID(day, f.owner.CompanyID, f.supplierA.ID, 2), res.Groups[0].POID)

	var seq models.PurchaseOrderSequence
	require.NoError(t, f.conn.Where("seq_day = ? AND company_id = ? AND supplier_id = ?", day, f.owner.CompanyID, f.supplierA.ID).First(&seq).Error)
	assert.EqualValues(t, 2, seq.LastValue)
}

func TestSubmitGivesUpAfterPOIDRetries(t *testing.T) {
	f := newCheckoutFixture(t)
	f.cfg.POIDMaxRetries = 0
	f.addLine(t, f.productA, f.supplierA, 1)
	svc := f.service(t)
	first, err := svc.Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, 1, first.Succeeded)

	f.poids = &scriptedPOIDs{next: orders.NewGenerator(), queued: []string{first.Groups[0].POID}}
	f.addLine(t, f.productB, f.supplierB, 1)
	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, pkgerrors.CodeConflict, res.Groups[0].ErrorCode)
	assert.Equal(t, enums.GroupStateIDGenerating, res.Groups[0].FailedAt)
}

func TestAbortCancelsPendingGroups(t *testing.T) {
	f := newCheckoutFixture(t)
	blocker := &blockingContacts{next: f.contacts, blockOn: 2, started: make(chan struct{})}
	f.contacts = blocker
	f.cfg.MaxParallelGroups = 1
	f.addLine(t, f.productA, f.supplierA, 1)
	f.addLine(t, f.productB, f.supplierB, 1)
	svc := f.service(t)

	checkoutID := uuid.New()
	input := f.input()
	input.CheckoutID = &checkoutID

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.Submit(context.Background(), input)
		done <- outcome{res, err}
	}()

	select {
	case <-blocker.started:
	case <-time.After(2 * time.Second):
		t.Fatal("second group never started")
	}

	_, err := svc.Submit(context.Background(), input)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "duplicate checkout id must be rejected")

	stranger := cart.Owner{CompanyID: f.owner.CompanyID, UserID: uuid.New()}
	assert.True(t, pkgerrors.Is(svc.Abort(context.Background(), checkoutID, stranger), pkgerrors.CodeNotFound))
	require.NoError(t, svc.Abort(context.Background(), checkoutID, f.owner))

	var got outcome
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return after abort")
	}
	require.NoError(t, got.err)
	assert.Equal(t, http.StatusMultiStatus, got.res.HTTPStatus())
	assert.Equal(t, enums.GroupStateNotifiedOk, got.res.Groups[0].State)
	assert.Equal(t, pkgerrors.CodeAborted, got.res.Groups[1].ErrorCode)
	assert.EqualValues(t, 1, f.count(t, &models.PurchaseOrder{}))

	assert.True(t, pkgerrors.Is(svc.Abort(context.Background(), checkoutID, f.owner), pkgerrors.CodeNotFound))
}

func TestSubmitGroupTimeout(t *testing.T) {
	f := newCheckoutFixture(t)
	f.contacts = &blockingContacts{next: f.contacts, blockOn: 1, started: make(chan struct{})}
	f.cfg.GroupTimeout = 50 * time.Millisecond
	f.addLine(t, f.productA, f.supplierA, 1)

	res, err := f.service(t).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, pkgerrors.CodeTimeout, res.Groups[0].ErrorCode)
	assert.Equal(t, http.StatusUnprocessableEntity, res.HTTPStatus())
	assert.EqualValues(t, 1, f.count(t, &models.CartLine{}))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil, nil, nil, config.CheckoutConfig{}, nil, nil)
	assert.Error(t, err)
}
