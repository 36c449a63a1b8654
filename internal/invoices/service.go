package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/internal/orders"
	dbpkg "github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

// InvoiceDTO is an invoice as returned by the API.
type InvoiceDTO struct {
	ID                 uuid.UUID           `json:"id"`
	InvoiceNumber      string              `json:"invoice_number"`
	PurchaseOrderID    uuid.UUID           `json:"purchase_order_id"`
	POID               string              `json:"po_id"`
	SupplierID         int64               `json:"supplier_id"`
	CompanyID          int64               `json:"company_id"`
	SubtotalWithoutVAT decimal.Decimal     `json:"subtotal_without_vat"`
	VATAmount          decimal.Decimal     `json:"vat_amount"`
	TotalWithVAT       decimal.Decimal     `json:"total_with_vat"`
	Status             enums.InvoiceStatus `json:"status"`
	IssuedAt           time.Time           `json:"issued_at"`
	DueAt              time.Time           `json:"due_at"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
}

// InvoiceList is one page of invoices.
type InvoiceList struct {
	Invoices   []InvoiceDTO `json:"invoices"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ListInput filters an invoice listing.
type ListInput struct {
	Pagination pagination.Params
	Status     *enums.InvoiceStatus
}

// Service issues and settles supplier invoices.
type Service interface {
	Issue(ctx context.Context, supplierID int64, poID string, actorID uuid.UUID) (*InvoiceDTO, error)
	MarkPaid(ctx context.Context, supplierID int64, invoiceID uuid.UUID) (*InvoiceDTO, error)
	GetForSupplier(ctx context.Context, supplierID int64, invoiceID uuid.UUID) (*InvoiceDTO, error)
	GetForCompany(ctx context.Context, companyID int64, invoiceID uuid.UUID) (*InvoiceDTO, error)
	ListForSupplier(ctx context.Context, supplierID int64, input ListInput) (*InvoiceList, error)
	ListForCompany(ctx context.Context, companyID int64, input ListInput) (*InvoiceList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		orders: ordersRepo,
		tx:     tx,
		outbox: publisher,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// FormatNumber renders INV-<supplier>-<year>-<six digit sequence>.
func FormatNumber(supplierID int64, year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%04d-%06d", supplierID, year, seq)
}

// DueDate adds the payment terms' credit period to issuedAt.
func DueDate(issuedAt time.Time, terms enums.PaymentTerms) time.Time {
	return issuedAt.AddDate(0, 0, terms.DueAfterDays())
}

// Issue bills a submitted purchase order. A purchase order is invoiced at
// most once.
func (s *service) Issue(ctx context.Context, supplierID int64, poID string, actorID uuid.UUID) (*InvoiceDTO, error) {
	if supplierID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier context required")
	}
	if poID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "po id required")
	}

	var invoice models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByPOID(ctx, poID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load purchase order")
		}
		if order.SupplierID != supplierID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if order.Status != enums.PurchaseOrderStatusSubmitted {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already invoiced")
		}
		if _, err := repo.FindByPurchaseOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already invoiced")
		} else if !dbpkg.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check existing invoice")
		}

		issuedAt := s.now()
		seq, err := repo.NextSequence(ctx, supplierID, issuedAt.Year())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "allocate invoice number")
		}
		net, gross := lineSums(order.Lines)
		invoice = models.Invoice{
			InvoiceNumber:      FormatNumber(supplierID, issuedAt.Year(), seq),
			PurchaseOrderID:    order.ID,
			POID:               order.POID,
			SupplierID:         order.SupplierID,
			CompanyID:          order.CompanyID,
			SubtotalWithoutVAT: net,
			VATAmount:          gross.Sub(net),
			TotalWithVAT:       gross,
			Status:             enums.InvoiceStatusIssued,
			IssuedAt:           issuedAt,
			DueAt:              DueDate(issuedAt, order.PaymentMethod),
		}
		if err := repo.Create(ctx, &invoice); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "purchase order already invoiced")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create invoice")
		}
		if err := ordersRepo.UpdateStatus(ctx, order.ID, enums.PurchaseOrderStatusInvoiced); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark purchase order invoiced")
		}
		return s.emitIssued(ctx, tx, invoice, actorID)
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(invoice)
	return &dto, nil
}

func (s *service) emitIssued(ctx context.Context, tx *gorm.DB, invoice models.Invoice, actorID uuid.UUID) error {
	supplierID := invoice.SupplierID
	due := invoice.DueAt
	event := outbox.DomainEvent{
		EventType:     enums.EventInvoiceIssued,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, SupplierID: &supplierID, Role: "supplier"},
		Data: payloads.InvoiceIssuedEvent{
			InvoiceID:       invoice.ID,
			InvoiceNumber:   invoice.InvoiceNumber,
			PurchaseOrderID: invoice.PurchaseOrderID,
			POID:            invoice.POID,
			CompanyID:       invoice.CompanyID,
			SupplierID:      invoice.SupplierID,
			TotalWithVAT:    invoice.TotalWithVAT,
			DueDate:         &due,
		},
		OccurredAt: invoice.IssuedAt,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "enqueue invoice event")
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, supplierID int64, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	var invoice *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := s.scoped(ctx, repo, invoiceID, func(inv *models.Invoice) bool { return inv.SupplierID == supplierID })
		if err != nil {
			return err
		}
		paidAt := s.now()
		ok, err := repo.MarkPaid(ctx, found.ID, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark invoice paid")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "invoice is %s", found.Status)
		}
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, found.PurchaseOrderID, enums.PurchaseOrderStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark purchase order paid")
		}
		found.Status = enums.InvoiceStatusPaid
		found.PaidAt = &paidAt
		invoice = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*invoice)
	return &dto, nil
}

func (s *service) GetForSupplier(ctx context.Context, supplierID int64, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.scoped(ctx, s.repo, invoiceID, func(inv *models.Invoice) bool { return inv.SupplierID == supplierID })
	if err != nil {
		return nil, err
	}
	dto := toDTO(*inv)
	return &dto, nil
}

func (s *service) GetForCompany(ctx context.Context, companyID int64, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.scoped(ctx, s.repo, invoiceID, func(inv *models.Invoice) bool { return inv.CompanyID == companyID })
	if err != nil {
		return nil, err
	}
	dto := toDTO(*inv)
	return &dto, nil
}

func (s *service) ListForSupplier(ctx context.Context, supplierID int64, input ListInput) (*InvoiceList, error) {
	rows, next, err := s.repo.ListForSupplier(ctx, supplierID, input.Pagination, input.Status)
	return buildList(rows, next, err)
}

func (s *service) ListForCompany(ctx context.Context, companyID int64, input ListInput) (*InvoiceList, error) {
	rows, next, err := s.repo.ListForCompany(ctx, companyID, input.Pagination, input.Status)
	return buildList(rows, next, err)
}

// scoped loads an invoice and hides it behind NotFound unless visible matches.
func (s *service) scoped(ctx context.Context, repo Repository, id uuid.UUID, visible func(*models.Invoice) bool) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	inv, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load invoice")
	}
	if !visible(inv) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return inv, nil
}

func buildList(rows []models.Invoice, next string, err error) (*InvoiceList, error) {
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list invoices")
	}
	out := &InvoiceList{Invoices: make([]InvoiceDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Invoices = append(out.Invoices, toDTO(row))
	}
	return out, nil
}

func lineSums(lines []models.PurchaseOrderLine) (decimal.Decimal, decimal.Decimal) {
	net, gross := decimal.Zero, decimal.Zero
	for _, line := range lines {
		net = net.Add(line.LineTotalWithoutVAT)
		gross = gross.Add(line.LineTotalWithVAT)
	}
	return net, gross
}

func toDTO(inv models.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		PurchaseOrderID:    inv.PurchaseOrderID,
		POID:               inv.POID,
		SupplierID:         inv.SupplierID,
		CompanyID:          inv.CompanyID,
		SubtotalWithoutVAT: inv.SubtotalWithoutVAT,
		VATAmount:          inv.VATAmount,
		TotalWithVAT:       inv.TotalWithVAT,
		Status:             inv.Status,
		IssuedAt:           inv.IssuedAt,
		DueAt:              inv.DueAt,
		PaidAt:             inv.PaidAt,
	}
}
