package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
	ttl        time.Duration
	lost       bool
	refreshes  atomic.Int32
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Refresh(context.Context) (bool, error) {
	f.refreshes.Add(1)
	return !f.lost, nil
}

func (f *fakeLock) TTL() time.Duration { return f.ttl }

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name     string
	report   Report
	err      error
	runs     int
	deadline bool
	block    bool
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(ctx context.Context) (Report, error) {
	j.runs++
	_, j.deadline = ctx.Deadline()
	if j.block {
		<-ctx.Done()
		return Report{}, ctx.Err()
	}
	return j.report, j.err
}

func newTestService(t *testing.T, lock Lock, timeout time.Duration, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		JobTimeout: timeout,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobDespiteFailures(t *testing.T) {
	jobs := []*testJob{
		{name: "fail", err: errors.New("boom")},
		{name: "ok", report: Report{Rows: 4, Alert: "4 things"}},
		{name: "fail-again", err: errors.New("bang")},
	}
	lock := &fakeLock{}
	svc := newTestService(t, lock, 0, jobs[0], jobs[1], jobs[2])

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	for _, job := range jobs {
		assert.Equal(t, 1, job.runs, job.name)
		assert.True(t, job.deadline, "%s should run under a timeout", job.name)
	}
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "only"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, 0, job)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunOnceReportsLockErrors(t *testing.T) {
	svc := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, 0, &testJob{name: "only"})

	assert.ErrorContains(t, svc.RunOnce(context.Background()), "redis down")
}

func TestRunOnceTimesOutSlowJob(t *testing.T) {
	slow := &testJob{name: "slow", block: true}
	next := &testJob{name: "next"}
	svc := newTestService(t, &fakeLock{}, 10*time.Millisecond, slow, next)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, next.runs, "a timed out job must not stop the cycle")
}

func TestRunOnceCancelsCycleWhenLeaseIsLost(t *testing.T) {
	slow := &testJob{name: "slow", block: true}
	next := &testJob{name: "next"}
	lock := &fakeLock{ttl: 30 * time.Millisecond, lost: true}
	svc := newTestService(t, lock, time.Minute, slow, next)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errLeaseLost)
	assert.Zero(t, next.runs, "jobs after a lost lease must not start")
	assert.EqualValues(t, 1, lock.refreshes.Load())
	assert.Equal(t, 1, lock.releases)
}

func TestRunOnceRefreshesLeaseDuringLongJobs(t *testing.T) {
	slow := &testJob{name: "slow", block: true}
	lock := &fakeLock{ttl: 15 * time.Millisecond}
	svc := newTestService(t, lock, 60*time.Millisecond, slow)

	err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, lock.refreshes.Load(), int32(2))
}

func TestRunOnceStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := &testJob{name: "never"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, 0, job)

	assert.ErrorIs(t, svc.RunOnce(ctx), context.Canceled)
	assert.Zero(t, job.runs)
	assert.Equal(t, 1, lock.releases)
}

func TestRunReturnsWhenContextEnds(t *testing.T) {
	job := &testJob{name: "tick"}
	svc := newTestService(t, &fakeLock{}, 0, job)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, job.runs)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(&testJob{name: "a"}, &testJob{name: "a"})
	assert.Error(t, err)
	_, err = NewRegistry(&testJob{})
	assert.Error(t, err)

	registry, err := NewRegistry(nil, &testJob{name: "a"}, &testJob{name: "b"})
	require.NoError(t, err)
	names := []string{}
	for _, job := range registry.Jobs() {
		names = append(names, job.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestNewServiceValidates(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)
	_, err = NewService(ServiceParams{Registry: registry, Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop(), Registry: registry})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	assert.Error(t, err)
}
