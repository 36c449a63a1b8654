package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/procurement-backend/pkg/db/dbtest"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

func seedNotification(t *testing.T, repo *Store, recipient Recipient, createdAt time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		Type:      enums.NotificationTypeSystem,
		Title:     "hello",
		Message:   "world",
		CreatedAt: createdAt,
	}
	if recipient.SupplierID > 0 {
		n.SupplierID = &recipient.SupplierID
	} else {
		n.CompanyID = &recipient.CompanyID
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return n
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	supplier := SupplierRecipient(dbtest.SeedSupplier(t, db, "alpha").ID)
	other := SupplierRecipient(dbtest.SeedSupplier(t, db, "bravo").ID)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var created []models.Notification
	for i := range 3 {
		created = append(created, seedNotification(t, repo, supplier, base.Add(time.Duration(i)*time.Minute)))
	}
	seedNotification(t, repo, other, base)

	page, cursor, err := repo.List(ctx, listQuery{Recipient: supplier, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, created[2].ID, page[0].ID)
	assert.Equal(t, created[1].ID, page[1].ID)
	assert.Equal(t, created[1].ID, cursor.ID)

	page, cursor, err = repo.List(ctx, listQuery{Recipient: supplier, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, created[0].ID, page[0].ID)
}

func TestRepositoryMarkReadScopesToRecipient(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	company := CompanyRecipient(dbtest.SeedCompany(t, db, "acme").ID)
	stranger := CompanyRecipient(dbtest.SeedCompany(t, db, "globex").ID)
	n := seedNotification(t, repo, company, time.Now().UTC())
	now := time.Now().UTC()

	outcome, err := repo.MarkRead(ctx, stranger, n.ID, now)
	require.NoError(t, err)
	assert.Equal(t, markNotFound, outcome)

	outcome, err = repo.MarkRead(ctx, company, n.ID, now)
	require.NoError(t, err)
	assert.Equal(t, markMarked, outcome)

	outcome, err = repo.MarkRead(ctx, company, n.ID, now)
	require.NoError(t, err)
	assert.Equal(t, markAlreadyRead, outcome)

	count, err := repo.CountUnread(ctx, company)
	require.NoError(t, err)
	assert.Zero(t, count)

	unread, _, err := repo.List(ctx, listQuery{Recipient: company, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepositoryMarkAllReadAndCleanup(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	supplier := SupplierRecipient(dbtest.SeedSupplier(t, db, "alpha").ID)
	for range 3 {
		seedNotification(t, repo, supplier, time.Now().UTC())
	}
	unread, err := repo.CountUnread(ctx, supplier)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	readAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	count, err := repo.MarkAllRead(ctx, supplier, readAt)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	seedNotification(t, repo, supplier, time.Now().UTC())

	deleted, err := repo.DeleteReadBefore(ctx, readAt.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	remaining, _, err := repo.List(ctx, listQuery{Recipient: supplier, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
