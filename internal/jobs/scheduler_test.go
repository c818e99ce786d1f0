package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestScheduler(t *testing.T) (*TimerScheduler, *MemoryQueue) {
	t.Helper()
	q := newTestQueue(t, 2)
	s := NewTimerScheduler(q)
	t.Cleanup(s.Close)
	return s, q
}

func TestTimerScheduler_FiresDueJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	var fired atomic.Bool
	id, err := s.Schedule(time.Now(), func(ctx context.Context) (any, error) {
		fired.Store(true)
		return nil, nil
	}, map[string]string{"task": "test"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, fired.Load, 5*time.Second, 5*time.Millisecond)
	assert.Empty(t, s.ListJobs())
}

func TestTimerScheduler_PastTimeFiresImmediately(t *testing.T) {
	s, _ := newTestScheduler(t)

	var fired atomic.Bool
	_, err := s.Schedule(time.Now().Add(-time.Hour), func(ctx context.Context) (any, error) {
		fired.Store(true)
		return nil, nil
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, fired.Load, 5*time.Second, 5*time.Millisecond)
}

func TestTimerScheduler_CancelPendingJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	id, err := s.Schedule(time.Now().Add(time.Hour), func(ctx context.Context) (any, error) {
		t.Error("canceled job must not fire")
		return nil, nil
	}, map[string]string{"task": "prune"})
	require.NoError(t, err)

	pending := s.ListJobs()
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, "prune", pending[0].Meta["task"])

	assert.True(t, s.Cancel(id))
	assert.Empty(t, s.ListJobs())
	assert.False(t, s.Cancel(id))
}

func TestTimerScheduler_LogsJobDroppedByClosedQueue(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	q := NewMemoryQueue(1)
	q.Close()
	s := NewTimerScheduler(q)
	t.Cleanup(s.Close)

	_, err := s.Schedule(time.Now(), func(ctx context.Context) (any, error) {
		t.Error("job must not run after a failed enqueue")
		return nil, nil
	}, map[string]string{"task": "prune"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("jobs: scheduled job dropped, enqueue failed").Len() == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTimerScheduler_CloseRejectsNewJobs(t *testing.T) {
	q := newTestQueue(t, 1)
	s := NewTimerScheduler(q)

	_, err := s.Schedule(time.Now().Add(time.Hour), func(ctx context.Context) (any, error) {
		return nil, nil
	}, nil)
	require.NoError(t, err)

	s.Close()
	assert.Empty(t, s.ListJobs())

	_, err = s.Schedule(time.Now(), func(ctx context.Context) (any, error) {
		return nil, nil
	}, nil)
	require.Error(t, err)
}
