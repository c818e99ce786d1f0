package jobs

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/pipeline"
)

// AuditService enqueues audit runs as background jobs.
type AuditService struct {
	queue Queue
	pipe  *pipeline.Pipeline
}

// NewAuditService creates the service.
func NewAuditService(queue Queue, pipe *pipeline.Pipeline) *AuditService {
	return &AuditService{queue: queue, pipe: pipe}
}

// EnqueueAudit schedules an audit and returns its job id. The job's result
// is the assembled FullReport.
func (s *AuditService) EnqueueAudit(in pipeline.Input) (string, error) {
	if in.CompanyName == "" {
		return "", eris.New("jobs: company name is required")
	}
	return s.queue.Enqueue(func(ctx context.Context) (any, error) {
		return s.pipe.Run(ctx, in)
	})
}

// Status reports a job's current state.
func (s *AuditService) Status(jobID string) (JobInfo, error) {
	return s.queue.GetStatus(jobID)
}

// Cancel cancels a queued or running audit job.
func (s *AuditService) Cancel(jobID string) bool {
	return s.queue.Cancel(jobID)
}
