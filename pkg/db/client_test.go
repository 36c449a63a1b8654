package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type sku struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&sku{}))
	return conn
}

func countSKUs(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&sku{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnlyWhenFnSucceeds(t *testing.T) {
	conn := openMemory(t)
	client := NewFromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&sku{Code: "A-1"}).Error
	}))
	assert.EqualValues(t, 1, countSKUs(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&sku{Code: "A-2"}).Error)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")
	assert.EqualValues(t, 1, countSKUs(t, conn), "failed fn rolls back")

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&sku{Code: "A-3"}).Error)
			panic("mid-transaction")
		})
	})
	assert.EqualValues(t, 1, countSKUs(t, conn), "panics roll back too")
}

func TestNewOpensSQLiteAndExportsPoolStats(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver:       "SQLite",
		DSN:          "file:pool?mode=memory&cache=shared",
		MaxOpenConns: 3,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)

	collector, err := client.PoolCollector("api")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "go_sql_max_open_connections")
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.ErrorContains(t, err, "DSN")
}

func TestDriverDefaultsToPostgres(t *testing.T) {
	assert.Equal(t, "postgres", driver(config.DBConfig{}))
	assert.Equal(t, "postgres", driver(config.DBConfig{Driver: "pgx"}))
	assert.Equal(t, "sqlite", driver(config.DBConfig{Driver: "sqlite"}))
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, conn.Create(&sku{Code: "dup"}).Error)
	sqliteErr := conn.Create(&sku{Code: "dup"}).Error

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_purchase_orders_po_id"})
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"sqlite duplicate", sqliteErr, "", true},
		{"pg matching constraint", pgErr, "ux_purchase_orders_po_id", true},
		{"pg any constraint", pgErr, "", true},
		{"pg other constraint", pgErr, "ux_other", false},
		{"foreign key", &pgconn.PgError{Code: "23503"}, "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestQueryLoggerWritesOnlyFailedAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	ql := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf}), 50*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len(), "fast and not-found statements stay quiet")

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow sql statement")
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "syntax error")
}

func TestQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, 0))
}
