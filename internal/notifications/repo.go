package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/pagination"
)

// Repository is the inbox side used by Service. The consumer and the cleanup
// job declare their own narrower views of Store.
type Repository interface {
	List(ctx context.Context, query listQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, recipient Recipient) (int64, error)
	MarkRead(ctx context.Context, recipient Recipient, id uuid.UUID, at time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error)
}

type listQuery struct {
	Recipient  Recipient
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type markOutcome int

const (
	markNotFound markOutcome = iota
	markAlreadyRead
	markMarked
)

// Store persists notifications in the notifications table.
type Store struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Store {
	return &Store{db: db}
}

// inbox restricts a query to one recipient's rows.
func (s *Store) inbox(ctx context.Context, recipient Recipient) *gorm.DB {
	qb := s.db.WithContext(ctx).Model(&models.Notification{})
	if recipient.SupplierID > 0 {
		return qb.Where("supplier_id = ?", recipient.SupplierID)
	}
	return qb.Where("company_id = ?", recipient.CompanyID)
}

func (s *Store) Create(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *Store) List(ctx context.Context, query listQuery) ([]models.Notification, *pagination.Cursor, error) {
	pageSize := pagination.NormalizeLimit(query.Limit)
	qb := s.inbox(ctx, query.Recipient)
	if query.UnreadOnly {
		qb = qb.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := pagination.Keyset(qb, query.Cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.TrimPage(rows, pageSize, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return rows, next, nil
}

func (s *Store) CountUnread(ctx context.Context, recipient Recipient) (int64, error) {
	var n int64
	err := s.inbox(ctx, recipient).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps one unread notification. A row owned by another
// recipient is reported as not found.
func (s *Store) MarkRead(ctx context.Context, recipient Recipient, id uuid.UUID, at time.Time) (markOutcome, error) {
	res := s.inbox(ctx, recipient).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return markNotFound, res.Error
	}
	if res.RowsAffected > 0 {
		return markMarked, nil
	}

	var n int64
	if err := s.inbox(ctx, recipient).Where("id = ?", id).Count(&n).Error; err != nil {
		return markNotFound, err
	}
	if n == 0 {
		return markNotFound, nil
	}
	return markAlreadyRead, nil
}

func (s *Store) MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error) {
	res := s.inbox(ctx, recipient).
		Where("read_at IS NULL").
		UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore purges notifications read before cutoff. Unread rows are
// kept regardless of age.
func (s *Store) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
