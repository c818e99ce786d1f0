package model

import "time"

// RunStatus tracks an audit run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// AuditRun is one persisted audit of a site.
type AuditRun struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"site_id"`
	CompanyName string    `json:"company_name"`
	Domain      string    `json:"domain"`
	Status      RunStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SiteSnapshot is the cached crawl-and-extract output for a domain. Audits
// within the TTL reuse it instead of re-crawling.
type SiteSnapshot struct {
	ID          string          `json:"id"`
	Domain      string          `json:"domain"`
	CompanyName string          `json:"company_name"`
	Pages       []ExtractedPage `json:"pages"`
	FetchedAt   time.Time       `json:"fetched_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}
