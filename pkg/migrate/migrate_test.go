package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(EmbeddedDir))
}

func TestPurchaseOrderMigrationEnforcesUniquePOID(t *testing.T) {
	content := readMigration(t, "*_create_purchase_orders.sql")
	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS purchase_order_sequences",
		"PRIMARY KEY (seq_day, company_id, supplier_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_purchase_orders_po_id ON purchase_orders (po_id)",
		"REFERENCES purchase_orders(id) ON DELETE CASCADE",
	} {
		assert.Contains(t, content, stmt)
	}
}

func TestCartMigrationClampsQuantity(t *testing.T) {
	content := readMigration(t, "*_create_cart_lines.sql")
	for _, stmt := range []string{
		"quantity integer NOT NULL CHECK (quantity >= 1)",
		"ux_cart_lines_owner_product",
		"custom_street_address",
	} {
		assert.Contains(t, content, stmt)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_ok.sql":      {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_dup.sql":     {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260102000000_no_down.sql": {Data: []byte("-- +goose Up\n")},
		"bad-name.sql":               {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"README.md":                  {Data: []byte("ignored")},
	}
	err := ValidateFS(fsys)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.ErrorContains(t, err, "already used")
	assert.ErrorContains(t, err, "-- +goose Down")
	assert.ErrorContains(t, err, "bad-name.sql")
}

func TestCreateSQLMigrationThenValidate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Invoice  Notes!", now)
	require.NoError(t, err)
	assert.Equal(t, "20261014083000_add_invoice_notes.sql", filepath.Base(path))

	_, err = createSQLMigrationAt(dir, "add invoice notes", now)
	assert.ErrorContains(t, err, "already exists")
	require.NoError(t, ValidateDir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestCreateRejectsEmptySlug(t *testing.T) {
	_, err := createSQLMigrationAt(t.TempDir(), "!!!", time.Now())
	assert.Error(t, err)
}

func TestSourceRequiresDir(t *testing.T) {
	_, err := Source("")
	assert.Error(t, err)
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	fsys, err := Source(EmbeddedDir)
	require.NoError(t, err)
	matches, err := fs.Glob(fsys, pattern)
	require.NoError(t, err)
	require.NotEmpty(t, matches, "migration %s not found", pattern)
	data, err := fs.ReadFile(fsys, matches[0])
	require.NoError(t, err)
	return string(data)
}
