package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/internal/orders"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

type testOrdersService struct {
	listCompanyFn func(ctx context.Context, companyID int64, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error)
	getSupplierFn func(ctx context.Context, supplierID int64, poID string) (*orders.OrderDetail, error)
}

func (s *testOrdersService) ListForCompany(ctx context.Context, companyID int64, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return s.listCompanyFn(ctx, companyID, params, filters)
}

func (s *testOrdersService) GetForCompany(context.Context, int64, string) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{}, nil
}

func (s *testOrdersService) ListForSupplier(context.Context, int64, pagination.Params, orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *testOrdersService) GetForSupplier(ctx context.Context, supplierID int64, poID string) (*orders.OrderDetail, error) {
	return s.getSupplierFn(ctx, supplierID, poID)
}

func TestListCompanyOrdersParsesFilters(t *testing.T) {
	svc := &testOrdersService{listCompanyFn: func(_ context.Context, companyID int64, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
		if companyID != 3 {
			t.Fatalf("unexpected company %d", companyID)
		}
		if params.Limit != 10 || params.Cursor != "abc" {
			t.Fatalf("unexpected pagination %+v", params)
		}
		if filters.Status == nil || *filters.Status != enums.PurchaseOrderStatusSubmitted {
			t.Fatalf("unexpected status filter %+v", filters.Status)
		}
		wantFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		wantTo := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		if filters.DateFrom == nil || !filters.DateFrom.Equal(wantFrom) {
			t.Fatalf("unexpected date_from %v", filters.DateFrom)
		}
		if filters.DateTo == nil || !filters.DateTo.Equal(wantTo) {
			t.Fatalf("date_to should cover the whole day, got %v", filters.DateTo)
		}
		return &orders.OrderList{NextCursor: "next"}, nil
	}}

	target := "/api/v1/orders?limit=10&cursor=abc&status=" + string(enums.PurchaseOrderStatusSubmitted) + "&date_from=2026-01-01&date_to=2026-01-31"
	resp := serve(ListCompanyOrders(svc, testLogger()), http.MethodGet, target, "", withCompany(3, uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListCompanyOrdersRejectsBadQuery(t *testing.T) {
	svc := &testOrdersService{listCompanyFn: func(context.Context, int64, pagination.Params, orders.OrderFilters) (*orders.OrderList, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	targets := []string{
		"/api/v1/orders?limit=0",
		"/api/v1/orders?status=lost",
		"/api/v1/orders?date_from=01-01-2026",
		"/api/v1/orders?date_from=2026-02-01&date_to=2026-01-01",
	}
	for _, target := range targets {
		resp := serve(ListCompanyOrders(svc, testLogger()), http.MethodGet, target, "", withCompany(3, uuid.New()))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, resp.Code)
		}
	}
}

func TestGetSupplierOrderUsesSupplierScope(t *testing.T) {
	svc := &testOrdersService{getSupplierFn: func(_ context.Context, supplierID int64, poID string) (*orders.OrderDetail, error) {
		if supplierID != 11 || poID != "20260101-0001" {
			t.Fatalf("unexpected lookup %d %s", supplierID, poID)
		}
		return &orders.OrderDetail{}, nil
	}}
	resp := serve(GetSupplierOrder(svc, testLogger()), http.MethodGet, "/", "", withSupplier(11, uuid.New()), withParams("poId", "20260101-0001"))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	resp = serve(GetSupplierOrder(svc, testLogger()), http.MethodGet, "/", "", withCompany(11, uuid.New()), withParams("poId", "20260101-0001"))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without supplier context, got %d", resp.Code)
	}
}
