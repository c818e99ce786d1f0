package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/db"
	"github.com/sourcelens/audit-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id      TEXT NOT NULL,
	company_name TEXT NOT NULL,
	domain       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	run_id     TEXT PRIMARY KEY REFERENCES audit_runs(id),
	version    TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS question_results (
	run_id        TEXT NOT NULL REFERENCES audit_runs(id),
	question_id   TEXT NOT NULL,
	category      TEXT NOT NULL,
	difficulty    TEXT NOT NULL,
	answerability TEXT NOT NULL,
	confidence    TEXT NOT NULL,
	score         DOUBLE PRECISION NOT NULL,
	signals_found INTEGER NOT NULL,
	signals_total INTEGER NOT NULL,
	PRIMARY KEY (run_id, question_id)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	pages        JSONB NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_runs_domain ON audit_runs(domain);
CREATE INDEX IF NOT EXISTS idx_snapshots_domain ON snapshots(domain);
CREATE INDEX IF NOT EXISTS idx_snapshots_expires_at ON snapshots(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, siteID, companyName, domain string) (*model.AuditRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_runs (id, site_id, company_name, domain, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, siteID, companyName, domain, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.AuditRun{
		ID:          id,
		SiteID:      siteID,
		CompanyName: companyName,
		Domain:      domain,
		Status:      model.RunStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	var r model.AuditRun
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, company_name, domain, status, error, created_at, updated_at
		 FROM audit_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.SiteID, &r.CompanyName, &r.Domain, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error) {
	query := `SELECT id, site_id, company_name, domain, status, error, created_at, updated_at
	          FROM audit_runs WHERE true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ` + arg(filter.Domain)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		var r model.AuditRun
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.SiteID, &r.CompanyName, &r.Domain, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveReport(ctx context.Context, runID string, report *model.FullReport) error {
	body, err := model.MarshalReport(report)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (run_id, version, body, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO UPDATE SET version = EXCLUDED.version, body = EXCLUDED.body`,
		runID, report.Metadata.Version, body, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save report for run %s", runID)
}

func (s *PostgresStore) GetReport(ctx context.Context, runID string) (*model.FullReport, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM reports WHERE run_id = $1`, runID,
	).Scan(&body)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report for run %s", runID)
	}
	return model.UnmarshalReport(body)
}

// SaveQuestionResults bulk-inserts per-question outcomes via COPY.
func (s *PostgresStore) SaveQuestionResults(ctx context.Context, runID string, results []model.QuestionResult) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(results))
	for _, qr := range results {
		rows = append(rows, []any{
			runID, qr.Question.ID, string(qr.Question.Category), string(qr.Question.Difficulty),
			string(qr.Answerability), string(qr.Confidence), qr.Score, qr.SignalsFound, qr.SignalsTotal,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "question_results",
		[]string{"run_id", "question_id", "category", "difficulty", "answerability", "confidence", "score", "signals_found", "signals_total"},
		rows,
	)
	return eris.Wrapf(err, "postgres: save question results for run %s", runID)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, domain string) (*model.SiteSnapshot, error) {
	var snap model.SiteSnapshot
	var pagesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, domain, company_name, pages, fetched_at, expires_at FROM snapshots
		 WHERE domain = $1 AND expires_at > now()
		 ORDER BY fetched_at DESC LIMIT 1`,
		domain,
	).Scan(&snap.ID, &snap.Domain, &snap.CompanyName, &pagesJSON, &snap.FetchedAt, &snap.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get snapshot")
	}
	if err := json.Unmarshal(pagesJSON, &snap.Pages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal snapshot pages")
	}
	return &snap, nil
}

func (s *PostgresStore) SetSnapshot(ctx context.Context, snapshot *model.SiteSnapshot, ttl time.Duration) error {
	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	pagesJSON, err := json.Marshal(snapshot.Pages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot pages")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, domain, company_name, pages, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, snapshot.Domain, snapshot.CompanyName, pagesJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set snapshot")
}

func (s *PostgresStore) DeleteExpiredSnapshots(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
