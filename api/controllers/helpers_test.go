package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/auth"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type requestOption func(*http.Request) *http.Request

func withCompany(companyID int64, userID uuid.UUID) requestOption {
	return func(r *http.Request) *http.Request {
		actor := auth.Actor{UserID: userID, Role: enums.MemberRoleClient, CompanyID: companyID}
		return r.WithContext(auth.WithActor(r.Context(), actor))
	}
}

func withSupplier(supplierID int64, userID uuid.UUID) requestOption {
	return func(r *http.Request) *http.Request {
		actor := auth.Actor{UserID: userID, Role: enums.MemberRoleSupplier, SupplierID: supplierID}
		return r.WithContext(auth.WithActor(r.Context(), actor))
	}
}

func withParams(kv ...string) requestOption {
	return func(r *http.Request) *http.Request {
		rc := chi.NewRouteContext()
		for i := 0; i+1 < len(kv); i += 2 {
			rc.URLParams.Add(kv[i], kv[i+1])
		}
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
	}
}

func serve(handler http.HandlerFunc, method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, opt := range opts {
		req = opt(req)
	}
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	return envelope.Error.Code
}
