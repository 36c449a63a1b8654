package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/internal/notifications"
)

type testNotificationsService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markReadFn    func(ctx context.Context, recipient notifications.Recipient, id uuid.UUID) error
	markAllReadFn func(ctx context.Context, recipient notifications.Recipient) (int64, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return s.listFn(ctx, params)
}

func (s *testNotificationsService) MarkRead(ctx context.Context, recipient notifications.Recipient, id uuid.UUID) error {
	return s.markReadFn(ctx, recipient, id)
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, recipient notifications.Recipient) (int64, error) {
	return s.markAllReadFn(ctx, recipient)
}

func TestListNotificationsForSupplier(t *testing.T) {
	svc := &testNotificationsService{listFn: func(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
		if params.Recipient != notifications.SupplierRecipient(4) {
			t.Fatalf("unexpected recipient %+v", params.Recipient)
		}
		if !params.UnreadOnly || params.Limit != 5 {
			t.Fatalf("unexpected params %+v", params)
		}
		return &notifications.ListResult{Items: []notifications.NotificationDTO{{ID: uuid.New()}}, Cursor: "c2", Unread: 3}, nil
	}}

	resp := serve(ListNotifications(svc, testLogger()), http.MethodGet, "/?limit=5&unreadOnly=true", "", withSupplier(4, uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data       []notifications.NotificationDTO `json:"data"`
		NextCursor string                          `json:"next_cursor"`
		HasMore    bool                            `json:"has_more"`
		Totals     map[string]int64                `json:"totals"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.NextCursor != "c2" || !envelope.HasMore || envelope.Totals["unread"] != 3 {
		t.Fatalf("unexpected page %+v", envelope)
	}
}

func TestMarkNotificationReadForCompany(t *testing.T) {
	id := uuid.New()
	called := false
	svc := &testNotificationsService{markReadFn: func(_ context.Context, recipient notifications.Recipient, nid uuid.UUID) error {
		called = true
		if recipient != notifications.CompanyRecipient(9) || nid != id {
			t.Fatalf("unexpected call %+v %s", recipient, nid)
		}
		return nil
	}}

	resp := serve(MarkNotificationRead(svc, testLogger()), http.MethodPost, "/", "", withCompany(9, uuid.New()), withParams("notificationId", id.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMarkAllNotificationsReadRequiresTenant(t *testing.T) {
	svc := &testNotificationsService{markAllReadFn: func(context.Context, notifications.Recipient) (int64, error) {
		return 3, nil
	}}
	resp := serve(MarkAllNotificationsRead(svc, testLogger()), http.MethodPost, "/", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}

	resp = serve(MarkAllNotificationsRead(svc, testLogger()), http.MethodPost, "/", "", withSupplier(1, uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
