// Package dbtest opens isolated in-memory SQLite databases carrying the
// procurement schema for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE companies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE suppliers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  notification_webhook_url TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE delivery_locations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER NOT NULL,
  location_name TEXT NOT NULL DEFAULT '',
  street_address TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  town TEXT NOT NULL,
  country TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE pickup_locations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplier_id INTEGER NOT NULL,
  location_name TEXT NOT NULL DEFAULT '',
  street_address TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  town TEXT NOT NULL,
  country TEXT NOT NULL,
  image_url TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE contacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER NOT NULL,
  alias TEXT NOT NULL,
  contact_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplier_id INTEGER NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  unit TEXT NOT NULL DEFAULT 'pcs',
  price_without_vat NUMERIC NOT NULL,
  price_with_vat NUMERIC NOT NULL,
  vat_rate NUMERIC NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_products_supplier_sku ON products (supplier_id, sku);`,
	`CREATE TABLE stock_movements (
  id TEXT PRIMARY KEY,
  product_id INTEGER NOT NULL,
  supplier_id INTEGER NOT NULL,
  delta INTEGER NOT NULL,
  stock_after INTEGER NOT NULL,
  reason TEXT NOT NULL,
  reference TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE cart_lines (
  id TEXT PRIMARY KEY,
  company_id INTEGER NOT NULL,
  user_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  product_name TEXT NOT NULL,
  supplier_id INTEGER NOT NULL,
  supplier_name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price_without_vat NUMERIC NOT NULL,
  unit_price_with_vat NUMERIC NOT NULL,
  delivery_method TEXT NOT NULL DEFAULT 'shipping',
  payment_terms TEXT NOT NULL DEFAULT 'prepayment',
  delivery_location_id INTEGER,
  pickup_location_id INTEGER,
  custom_location_name TEXT NOT NULL DEFAULT '',
  custom_street_address TEXT NOT NULL DEFAULT '',
  custom_postal_code TEXT NOT NULL DEFAULT '',
  custom_town TEXT NOT NULL DEFAULT '',
  custom_country TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_cart_lines_owner_product ON cart_lines (company_id, user_id, product_id);`,
	`CREATE TABLE purchase_order_sequences (
  seq_day TEXT NOT NULL,
  company_id INTEGER NOT NULL,
  supplier_id INTEGER NOT NULL,
  last_value INTEGER NOT NULL,
  PRIMARY KEY (seq_day, company_id, supplier_id)
);`,
	`CREATE TABLE purchase_orders (
  id TEXT PRIMARY KEY,
  po_id TEXT NOT NULL,
  checkout_id TEXT NOT NULL,
  company_id INTEGER NOT NULL,
  supplier_id INTEGER NOT NULL,
  placed_by_user_id TEXT NOT NULL,
  delivery_method TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  contact_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  location_name TEXT NOT NULL DEFAULT '',
  street_address TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  town TEXT NOT NULL,
  country TEXT NOT NULL,
  address_source TEXT NOT NULL,
  subtotal_without_vat NUMERIC NOT NULL,
  subtotal_with_vat NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'submitted',
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_purchase_orders_po_id ON purchase_orders (po_id);`,
	`CREATE UNIQUE INDEX ux_purchase_orders_checkout_supplier ON purchase_orders (checkout_id, supplier_id);`,
	`CREATE TABLE purchase_order_lines (
  id TEXT PRIMARY KEY,
  purchase_order_id TEXT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
  po_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price_without_vat NUMERIC NOT NULL,
  price_with_vat NUMERIC NOT NULL,
  line_total_without_vat NUMERIC NOT NULL,
  line_total_with_vat NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE invoice_sequences (
  supplier_id INTEGER NOT NULL,
  year INTEGER NOT NULL,
  last_value INTEGER NOT NULL,
  PRIMARY KEY (supplier_id, year)
);`,
	`CREATE TABLE invoices (
  id TEXT PRIMARY KEY,
  invoice_number TEXT NOT NULL,
  purchase_order_id TEXT NOT NULL,
  po_id TEXT NOT NULL,
  supplier_id INTEGER NOT NULL,
  company_id INTEGER NOT NULL,
  subtotal_without_vat NUMERIC NOT NULL,
  vat_amount NUMERIC NOT NULL,
  total_with_vat NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'issued',
  issued_at DATETIME NOT NULL,
  due_at DATETIME NOT NULL,
  paid_at DATETIME,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_invoices_number ON invoices (invoice_number);`,
	`CREATE UNIQUE INDEX ux_invoices_purchase_order ON invoices (purchase_order_id);`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  supplier_id INTEGER,
  company_id INTEGER,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE UNIQUE INDEX ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a gorm handle on a fresh in-memory database named after the
// test. A single connection keeps every statement on the same database and
// serialises concurrent writers the way row locks would.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
