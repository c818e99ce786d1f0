// Package store persists audit runs, reports, and crawl snapshots.
package store

import (
	"context"
	"time"

	"github.com/sourcelens/audit-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the audit pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, siteID, companyName, domain string) (*model.AuditRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.AuditRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error)

	// Reports
	SaveReport(ctx context.Context, runID string, report *model.FullReport) error
	GetReport(ctx context.Context, runID string) (*model.FullReport, error)

	// Per-question simulation outcomes, persisted for trend queries.
	SaveQuestionResults(ctx context.Context, runID string, results []model.QuestionResult) error

	// Snapshot cache
	GetSnapshot(ctx context.Context, domain string) (*model.SiteSnapshot, error)
	SetSnapshot(ctx context.Context, snapshot *model.SiteSnapshot, ttl time.Duration) error
	DeleteExpiredSnapshots(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
