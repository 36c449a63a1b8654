package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 90
	sequenceRetentionDays     = 30

	// Sequence rows for yesterday may still be referenced by a submission
	// that straddled midnight.
	minSequenceRetentionDays = 2
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sequencePurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// RetentionJob deletes rows older than a rolling window of days.
type RetentionJob struct {
	name  string
	days  int
	purge purgeFunc
	now   func() time.Time
}

func newRetentionJob(name string, days, fallback int, purge purgeFunc) *RetentionJob {
	if days <= 0 {
		days = fallback
	}
	return &RetentionJob{name: name, days: days, purge: purge, now: time.Now}
}

func (j *RetentionJob) Name() string { return j.name }

// Cutoff is the oldest instant kept by the next run.
func (j *RetentionJob) Cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *RetentionJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.Cutoff()
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", j.name, err)
	}
	return Report{
		Rows: deleted,
		Fields: map[string]any{
			"cutoff":         cutoff,
			"retention_days": j.days,
		},
	}, nil
}

// NewOutboxRetentionJob deletes published outbox rows past the window inside
// one transaction. Unpublished rows are never touched.
func NewOutboxRetentionJob(db txRunner, repo outboxPurger, days int) (*RetentionJob, error) {
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob("outbox-retention", days, outboxRetentionDays, func(ctx context.Context, cutoff time.Time) (int64, error) {
		var deleted int64
		err := db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := repo.DeletePublishedBefore(tx, cutoff)
			deleted = n
			return err
		})
		return deleted, err
	}), nil
}

// NewNotificationCleanupJob removes read notifications past the window.
// Unread notifications are kept regardless of age.
func NewNotificationCleanupJob(repo notificationPurger, days int) (*RetentionJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", days, notificationRetentionDays, repo.DeleteReadBefore), nil
}

// NewSequencePruneJob drops purchase order counter rows for past days.
func NewSequencePruneJob(repo sequencePurger, days int) (*RetentionJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	if days > 0 && days < minSequenceRetentionDays {
		return nil, fmt.Errorf("sequence retention must be at least %d days", minSequenceRetentionDays)
	}
	return newRetentionJob("po-sequence-prune", days, sequenceRetentionDays, repo.DeleteBefore), nil
}
