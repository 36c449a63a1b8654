package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:  {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeNotFound:    {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeIdempotency: {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeRateLimit:   {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "too many requests", Retryable: true},
		CodeTimeout:     {HTTPStatus: http.StatusGatewayTimeout, PublicMessage: "operation timed out", Retryable: true},
		CodeDependency:  {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		"NOT_A_CODE":    MetadataFor(CodeInternal),
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), code)
	}
}

func TestEveryCodeIsRegistered(t *testing.T) {
	for _, code := range []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeIdempotency, CodeRateLimit, CodePersistence, CodeNotification, CodeAborted,
		CodeTimeout, CodeInternal, CodeDependency,
	} {
		_, ok := registry[code]
		assert.True(t, ok, code)
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: missing", New(CodeNotFound, "missing").Error())
	assert.Equal(t, "CONFLICT: invoice is paid", Newf(CodeConflict, "invoice is %s", "paid").Error())
	assert.Equal(t, "PERSISTENCE_ERROR: save: boom", Wrap(CodePersistence, stdErrors.New("boom"), "save").Error())

	var nilErr *Error
	assert.Empty(t, nilErr.Error())
	assert.Equal(t, CodeInternal, nilErr.Code())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodePersistence, cause, "insert purchase order")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodePersistence, CodeOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, CodeInternal, CodeOf(cause))
	assert.Nil(t, Wrap(CodeInternal, nil, "x").Unwrap())
}

func TestIsWalksNestedCodes(t *testing.T) {
	inner := New(CodeNotFound, "pickup location missing")
	outer := Wrap(CodeValidation, fmt.Errorf("lookup: %w", inner), "resolve address")

	assert.True(t, Is(outer, CodeNotFound))
	assert.True(t, Is(outer, CodeValidation))
	assert.False(t, Is(outer, CodeConflict))
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))
	assert.False(t, Is(nil, CodeInternal))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(stdErrors.New("untyped")))
	assert.True(t, Retryable(Wrap(CodePersistence, stdErrors.New("db"), "write")))
	assert.False(t, Retryable(New(CodeNotFound, "gone")))
	assert.False(t, Retryable(fmt.Errorf("ctx: %w", New(CodeValidation, "bad"))))
}

func TestDetails(t *testing.T) {
	err := New(CodeValidation, "bad body").WithDetails(map[string]string{"field": "quantity"})
	assert.Equal(t, map[string]string{"field": "quantity"}, err.Details())
	assert.Equal(t, "bad body", err.Message())
}

func TestDiagnoseCollectsChain(t *testing.T) {
	d := Diagnose(Wrap(CodePersistence, stdErrors.New("boom"), "write"))
	assert.Equal(t, CodePersistence, d.Code)
	assert.Len(t, d.Chain, 2)
	assert.NotContains(t, d.LogFields(), "pg_code")
}

func TestDiagnoseReadsPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "purchase_orders_po_id_key", Message: "duplicate key"}
	d := Diagnose(Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "duplicate po id"))
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23505", d.Postgres.SQLState)

	fields := d.LogFields()
	assert.Equal(t, "purchase_orders_po_id_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_table", "empty pg fields are omitted")

	pqErr := &pq.Error{Code: "40001", Message: "could not serialize"}
	got := Diagnose(pqErr).Postgres
	require.NotNil(t, got)
	assert.Equal(t, "40001", got.SQLState)
}

func TestDiagnoseNil(t *testing.T) {
	d := Diagnose(nil)
	assert.Empty(t, d.Message)
	assert.Nil(t, d.Chain)
}
