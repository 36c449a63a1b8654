package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

type nameLookup interface {
	SupplierNames(ctx context.Context, ids []int64) (map[int64]string, error)
	CompanyNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Service exposes the read side of purchase orders for buyers and suppliers.
type Service interface {
	ListForCompany(ctx context.Context, companyID int64, params pagination.Params, filters OrderFilters) (*OrderList, error)
	GetForCompany(ctx context.Context, companyID int64, poID string) (*OrderDetail, error)
	ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, filters OrderFilters) (*OrderList, error)
	GetForSupplier(ctx context.Context, supplierID int64, poID string) (*OrderDetail, error)
}

type service struct {
	repo  Repository
	names nameLookup
}

func NewService(repo Repository, names nameLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if names == nil {
		return nil, fmt.Errorf("name lookup required")
	}
	return &service{repo: repo, names: names}, nil
}

func (s *service) ListForCompany(ctx context.Context, companyID int64, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	rows, next, err := s.repo.ListForCompany(ctx, companyID, params, filters)
	if err != nil {
		return nil, listError(err)
	}
	return s.buildList(ctx, rows, next)
}

func (s *service) ListForSupplier(ctx context.Context, supplierID int64, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	rows, next, err := s.repo.ListForSupplier(ctx, supplierID, params, filters)
	if err != nil {
		return nil, listError(err)
	}
	return s.buildList(ctx, rows, next)
}

// GetForCompany hides orders of other companies behind NotFound.
func (s *service) GetForCompany(ctx context.Context, companyID int64, poID string) (*OrderDetail, error) {
	order, err := s.find(ctx, poID)
	if err != nil {
		return nil, err
	}
	if order.CompanyID != companyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return s.buildDetail(ctx, *order)
}

func (s *service) GetForSupplier(ctx context.Context, supplierID int64, poID string) (*OrderDetail, error) {
	order, err := s.find(ctx, poID)
	if err != nil {
		return nil, err
	}
	if order.SupplierID != supplierID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return s.buildDetail(ctx, *order)
}

func (s *service) find(ctx context.Context, poID string) (*models.PurchaseOrder, error) {
	order, err := s.repo.FindByPOID(ctx, poID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load purchase order")
	}
	return order, nil
}

func (s *service) buildList(ctx context.Context, rows []models.PurchaseOrder, next string) (*OrderList, error) {
	suppliers, companies, err := s.lookupNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		summary := newSummary(row)
		summary.SupplierName = suppliers[row.SupplierID]
		summary.CompanyName = companies[row.CompanyID]
		out.Orders = append(out.Orders, summary)
	}
	return out, nil
}

func (s *service) buildDetail(ctx context.Context, order models.PurchaseOrder) (*OrderDetail, error) {
	suppliers, companies, err := s.lookupNames(ctx, []models.PurchaseOrder{order})
	if err != nil {
		return nil, err
	}
	detail := newDetail(order)
	detail.SupplierName = suppliers[order.SupplierID]
	detail.CompanyName = companies[order.CompanyID]
	return detail, nil
}

func (s *service) lookupNames(ctx context.Context, rows []models.PurchaseOrder) (map[int64]string, map[int64]string, error) {
	supplierIDs := make([]int64, 0, len(rows))
	companyIDs := make([]int64, 0, len(rows))
	seenSupplier := map[int64]struct{}{}
	seenCompany := map[int64]struct{}{}
	for _, row := range rows {
		if _, ok := seenSupplier[row.SupplierID]; !ok {
			seenSupplier[row.SupplierID] = struct{}{}
			supplierIDs = append(supplierIDs, row.SupplierID)
		}
		if _, ok := seenCompany[row.CompanyID]; !ok {
			seenCompany[row.CompanyID] = struct{}{}
			companyIDs = append(companyIDs, row.CompanyID)
		}
	}
	suppliers, err := s.names.SupplierNames(ctx, supplierIDs)
	if err != nil {
		return nil, nil, err
	}
	companies, err := s.names.CompanyNames(ctx, companyIDs)
	if err != nil {
		return nil, nil, err
	}
	return suppliers, companies, nil
}

func listError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list purchase orders")
}
