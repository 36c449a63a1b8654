package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/pkg/db/dbtest"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

func newLine(owner Owner, productID, supplierID int64, qty int) *models.CartLine {
	return &models.CartLine{
		CompanyID:           owner.CompanyID,
		UserID:              owner.UserID,
		ProductID:           productID,
		ProductName:         "widget",
		SupplierID:          supplierID,
		SupplierName:        "Acme",
		Quantity:            qty,
		UnitPriceWithoutVAT: decimal.RequireFromString("2.50"),
		UnitPriceWithVAT:    decimal.RequireFromString("3.13"),
		DeliveryMethod:      enums.DeliveryMethodShipping,
		PaymentTerms:        enums.PaymentTermsPrepayment,
	}
}

func TestRepositoryUpsertLineAddsQuantity(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := Owner{CompanyID: 1, UserID: uuid.New()}

	require.NoError(t, repo.UpsertLine(ctx, newLine(owner, 10, 5, 2)))
	require.NoError(t, repo.UpsertLine(ctx, newLine(owner, 10, 5, 3)))

	lines, err := repo.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestRepositoryScopesByOwner(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	alice := Owner{CompanyID: 1, UserID: uuid.New()}
	bob := Owner{CompanyID: 1, UserID: uuid.New()}

	line := newLine(alice, 10, 5, 1)
	require.NoError(t, repo.UpsertLine(ctx, line))
	require.NoError(t, repo.UpsertLine(ctx, newLine(bob, 10, 5, 1)))

	_, err := repo.FindLine(ctx, bob, line.ID)
	require.Error(t, err)

	ok, err := repo.UpdateQuantity(ctx, bob, line.ID, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Delete(ctx, bob, line.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindLine(ctx, alice, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Quantity)
}

func TestRepositoryUpdateSelectionClearsColumns(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := Owner{CompanyID: 1, UserID: uuid.New()}

	line := newLine(owner, 10, 5, 1)
	savedID := int64(7)
	line.DeliveryLocationID = &savedID
	line.CustomAddress = dbtest.SampleAddress("Aarhus")
	require.NoError(t, repo.UpsertLine(ctx, line))

	pickupID := int64(3)
	sel := address.Selection{Method: enums.DeliveryMethodPickup, PickupLocationID: &pickupID}
	require.NoError(t, repo.UpdateSelection(ctx, owner, line.ID, enums.PaymentTermsInvoice30, sel))

	found, err := repo.FindLine(ctx, owner, line.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryMethodPickup, found.DeliveryMethod)
	assert.Equal(t, enums.PaymentTermsInvoice30, found.PaymentTerms)
	assert.Nil(t, found.DeliveryLocationID)
	require.NotNil(t, found.PickupLocationID)
	assert.Equal(t, pickupID, *found.PickupLocationID)
	assert.True(t, found.CustomAddress.IsEmpty())
}

func TestRepositoryDeleteLinesInTx(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := Owner{CompanyID: 1, UserID: uuid.New()}

	first := newLine(owner, 10, 5, 1)
	second := newLine(owner, 11, 6, 1)
	require.NoError(t, repo.UpsertLine(ctx, first))
	require.NoError(t, repo.UpsertLine(ctx, second))

	tx := conn.Begin()
	n, err := repo.WithTx(tx).DeleteLines(ctx, owner, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, tx.Commit().Error)

	lines, err := repo.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, second.ID, lines[0].ID)

	bySupplier, err := repo.ListBySupplier(ctx, owner, 5)
	require.NoError(t, err)
	assert.Empty(t, bySupplier)
}
