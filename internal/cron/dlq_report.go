package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

type deadLetterCounter interface {
	CountByReasonSince(ctx context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error)
}

// DLQReportJob counts events dead-lettered within the trailing window and
// raises an alert when there are any. It never modifies the DLQ.
type DLQReportJob struct {
	counter deadLetterCounter
	window  time.Duration
	now     func() time.Time
}

// NewDLQReportJob reports over window, normally the cron interval so each
// dead letter is reported once.
func NewDLQReportJob(counter deadLetterCounter, window time.Duration) (*DLQReportJob, error) {
	if counter == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	if window <= 0 {
		window = defaultInterval
	}
	return &DLQReportJob{counter: counter, window: window, now: time.Now}, nil
}

func (j *DLQReportJob) Name() string { return "outbox-dlq-report" }

func (j *DLQReportJob) Run(ctx context.Context) (Report, error) {
	since := j.now().UTC().Add(-j.window)
	byReason, err := j.counter.CountByReasonSince(ctx, since)
	if err != nil {
		return Report{}, fmt.Errorf("count dead letters: %w", err)
	}

	fields := map[string]any{"since": since, "window": j.window.String()}
	var total int64
	for reason, n := range byReason {
		fields["dlq_"+reason.String()] = n
		total += n
	}
	report := Report{Rows: total, Fields: fields}
	if total > 0 {
		report.Alert = fmt.Sprintf("%d outbox events dead-lettered since %s", total, since.Format(time.RFC3339))
	}
	return report, nil
}
