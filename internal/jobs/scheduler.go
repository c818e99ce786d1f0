package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ScheduledJob describes one pending timer-driven job.
type ScheduledJob struct {
	ID   string            `json:"id"`
	At   time.Time         `json:"at"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Scheduler fires jobs at a point in time by handing them to a Queue.
type Scheduler interface {
	Schedule(at time.Time, fn JobFunc, meta map[string]string) (string, error)
	Cancel(id string) bool
	ListJobs() []ScheduledJob
	Close()
}

// TimerScheduler implements Scheduler with one timer goroutine per entry.
type TimerScheduler struct {
	queue Queue

	mu      sync.Mutex
	entries map[string]*schedulerEntry
	closed  bool
}

type schedulerEntry struct {
	job   ScheduledJob
	timer *time.Timer
}

// NewTimerScheduler creates a scheduler that enqueues fired jobs on q.
func NewTimerScheduler(q Queue) *TimerScheduler {
	return &TimerScheduler{
		queue:   q,
		entries: make(map[string]*schedulerEntry),
	}
}

// Schedule registers fn to be enqueued at the given time.
func (s *TimerScheduler) Schedule(at time.Time, fn JobFunc, meta map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", eris.New("jobs: scheduler is closed")
	}

	id := uuid.NewString()
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	entry := &schedulerEntry{job: ScheduledJob{ID: id, At: at, Meta: meta}}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.entries, id)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			if _, err := s.queue.Enqueue(fn); err != nil {
				zap.L().Error("jobs: scheduled job dropped, enqueue failed",
					zap.String("scheduled_id", id),
					zap.Any("meta", meta),
					zap.Error(err),
				)
			}
		}
	})
	s.entries[id] = entry
	return id, nil
}

// Cancel stops a scheduled job that has not fired yet.
func (s *TimerScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.entries, id)
	return true
}

// ListJobs returns the jobs still waiting to fire.
func (s *TimerScheduler) ListJobs() []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledJob, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.job)
	}
	return out
}

// Close cancels all pending timers.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, entry := range s.entries {
		entry.timer.Stop()
		delete(s.entries, id)
	}
}
