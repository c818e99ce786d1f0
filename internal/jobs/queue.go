// Package jobs provides the job queue and scheduler the audit pipeline runs
// behind. Runs are independent; the queue gives each one its own goroutine
// up to a worker limit.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusStarted  JobStatus = "started"
	StatusFinished JobStatus = "finished"
	StatusFailed   JobStatus = "failed"
	StatusCanceled JobStatus = "canceled"
)

// JobFunc is the unit of work a job executes.
type JobFunc func(ctx context.Context) (any, error)

// JobInfo is a point-in-time snapshot of a job.
type JobInfo struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Result     any       `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Queue runs jobs asynchronously.
type Queue interface {
	Enqueue(fn JobFunc) (string, error)
	GetStatus(id string) (JobInfo, error)
	Cancel(id string) bool
	Close()
}

type job struct {
	info   JobInfo
	fn     JobFunc
	cancel context.CancelFunc
}

// MemoryQueue is an in-process Queue with a bounded worker pool.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    map[string]*job
	pending chan string
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// NewMemoryQueue starts a queue with the given number of workers.
func NewMemoryQueue(workers int) *MemoryQueue {
	if workers <= 0 {
		workers = 2
	}
	q := &MemoryQueue{
		jobs:    make(map[string]*job),
		pending: make(chan string, 256),
		done:    make(chan struct{}),
	}
	for range workers {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue schedules fn and returns its job id.
func (q *MemoryQueue) Enqueue(fn JobFunc) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", eris.New("jobs: queue is closed")
	}

	id := uuid.NewString()
	q.jobs[id] = &job{
		info: JobInfo{ID: id, Status: StatusQueued, EnqueuedAt: time.Now().UTC()},
		fn:   fn,
	}

	select {
	case q.pending <- id:
	default:
		delete(q.jobs, id)
		return "", eris.New("jobs: queue is full")
	}
	return id, nil
}

// GetStatus returns the current snapshot of a job.
func (q *MemoryQueue) GetStatus(id string) (JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return JobInfo{}, eris.Errorf("jobs: unknown job %s", id)
	}
	return j.info, nil
}

// Cancel cancels a queued or running job. Returns false if the job is
// unknown or already finished.
func (q *MemoryQueue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return false
	}
	switch j.info.Status {
	case StatusQueued:
		j.info.Status = StatusCanceled
		j.info.FinishedAt = time.Now().UTC()
		return true
	case StatusStarted:
		if j.cancel != nil {
			j.cancel()
			return true
		}
	}
	return false
}

// Close stops accepting jobs and waits for running ones to finish.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case id := <-q.pending:
			q.run(id)
		}
	}
}

func (q *MemoryQueue) run(id string) {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok || j.info.Status != StatusQueued {
		q.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.info.Status = StatusStarted
	j.info.StartedAt = time.Now().UTC()
	fn := j.fn
	q.mu.Unlock()
	defer cancel()

	result, err := fn(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	j.info.FinishedAt = time.Now().UTC()
	switch {
	case ctx.Err() != nil:
		j.info.Status = StatusCanceled
		if err != nil {
			j.info.Error = err.Error()
		}
	case err != nil:
		j.info.Status = StatusFailed
		j.info.Error = err.Error()
		zap.L().Error("job failed", zap.String("job_id", id), zap.Error(err))
	default:
		j.info.Status = StatusFinished
		j.info.Result = result
	}
}
