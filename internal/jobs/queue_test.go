package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/pipeline"
)

func newTestQueue(t *testing.T, workers int) *MemoryQueue {
	t.Helper()
	q := NewMemoryQueue(workers)
	t.Cleanup(q.Close)
	return q
}

func waitForStatus(t *testing.T, q *MemoryQueue, id string, want JobStatus) JobInfo {
	t.Helper()
	var info JobInfo
	require.Eventually(t, func() bool {
		var err error
		info, err = q.GetStatus(id)
		return err == nil && info.Status == want
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return info
}

func TestMemoryQueue_RunsJob(t *testing.T) {
	q := newTestQueue(t, 2)

	id, err := q.Enqueue(func(ctx context.Context) (any, error) {
		return "done", nil
	})
	require.NoError(t, err)

	info := waitForStatus(t, q, id, StatusFinished)
	assert.Equal(t, "done", info.Result)
	assert.Empty(t, info.Error)
	assert.False(t, info.StartedAt.IsZero())
	assert.False(t, info.FinishedAt.IsZero())
}

func TestMemoryQueue_FailedJob(t *testing.T) {
	q := newTestQueue(t, 1)

	id, err := q.Enqueue(func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	info := waitForStatus(t, q, id, StatusFailed)
	assert.Contains(t, info.Error, "boom")
	assert.Nil(t, info.Result)
}

func TestMemoryQueue_CancelQueuedJob(t *testing.T) {
	q := newTestQueue(t, 1)

	release := make(chan struct{})
	blocker, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)
	waitForStatus(t, q, blocker, StatusStarted)

	// The single worker is busy, so this one stays queued.
	queued, err := q.Enqueue(func(ctx context.Context) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.True(t, q.Cancel(queued))
	info, err := q.GetStatus(queued)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, info.Status)

	close(release)
	waitForStatus(t, q, blocker, StatusFinished)

	// A canceled job never runs even after the worker frees up.
	info, err = q.GetStatus(queued)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, info.Status)
}

func TestMemoryQueue_CancelRunningJob(t *testing.T) {
	q := newTestQueue(t, 1)

	id, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	waitForStatus(t, q, id, StatusStarted)

	assert.True(t, q.Cancel(id))
	waitForStatus(t, q, id, StatusCanceled)
}

func TestMemoryQueue_CancelFinishedJobReturnsFalse(t *testing.T) {
	q := newTestQueue(t, 1)

	id, err := q.Enqueue(func(ctx context.Context) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	waitForStatus(t, q, id, StatusFinished)

	assert.False(t, q.Cancel(id))
}

func TestMemoryQueue_UnknownJob(t *testing.T) {
	q := newTestQueue(t, 1)

	_, err := q.GetStatus("nope")
	require.Error(t, err)
	assert.False(t, q.Cancel("nope"))
}

func TestMemoryQueue_ClosedRejectsEnqueue(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()

	_, err := q.Enqueue(func(ctx context.Context) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestAuditService_RequiresCompanyName(t *testing.T) {
	q := newTestQueue(t, 1)
	svc := NewAuditService(q, nil)

	_, err := svc.EnqueueAudit(pipeline.Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company name")
}
