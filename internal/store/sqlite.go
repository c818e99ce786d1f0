package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sourcelens/audit-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id           TEXT PRIMARY KEY,
	site_id      TEXT NOT NULL,
	company_name TEXT NOT NULL,
	domain       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	error        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	run_id     TEXT PRIMARY KEY REFERENCES audit_runs(id),
	version    TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS question_results (
	run_id        TEXT NOT NULL REFERENCES audit_runs(id),
	question_id   TEXT NOT NULL,
	category      TEXT NOT NULL,
	difficulty    TEXT NOT NULL,
	answerability TEXT NOT NULL,
	confidence    TEXT NOT NULL,
	score         REAL NOT NULL,
	signals_found INTEGER NOT NULL,
	signals_total INTEGER NOT NULL,
	PRIMARY KEY (run_id, question_id)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	pages        TEXT NOT NULL,
	fetched_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_runs_domain ON audit_runs(domain);
CREATE INDEX IF NOT EXISTS idx_snapshots_domain ON snapshots(domain);
CREATE INDEX IF NOT EXISTS idx_snapshots_expires_at ON snapshots(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, siteID, companyName, domain string) (*model.AuditRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (id, site_id, company_name, domain, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, siteID, companyName, domain, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, company_name, domain, status, error, created_at, updated_at
		 FROM audit_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error) {
	query := `SELECT id, site_id, company_name, domain, status, error, created_at, updated_at
	          FROM audit_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, runID string, report *model.FullReport) error {
	body, err := model.MarshalReport(report)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, version, body, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET version = excluded.version, body = excluded.body`,
		runID, report.Metadata.Version, string(body), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save report for run %s", runID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*model.FullReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM reports WHERE run_id = ?`, runID,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report for run %s", runID)
	}
	return model.UnmarshalReport([]byte(body))
}

func (s *SQLiteStore) SaveQuestionResults(ctx context.Context, runID string, results []model.QuestionResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO question_results
		 (run_id, question_id, category, difficulty, answerability, confidence, score, signals_found, signals_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare question results")
	}
	defer stmt.Close()

	for _, qr := range results {
		if _, err := stmt.ExecContext(ctx,
			runID, qr.Question.ID, string(qr.Question.Category), string(qr.Question.Difficulty),
			string(qr.Answerability), string(qr.Confidence), qr.Score, qr.SignalsFound, qr.SignalsTotal,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert question result %s", qr.Question.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit question results")
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, domain string) (*model.SiteSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, company_name, pages, fetched_at, expires_at FROM snapshots
		 WHERE domain = ? AND expires_at > datetime('now')
		 ORDER BY fetched_at DESC LIMIT 1`,
		domain,
	)

	var snap model.SiteSnapshot
	var pagesJSON string
	err := row.Scan(&snap.ID, &snap.Domain, &snap.CompanyName, &pagesJSON, &snap.FetchedAt, &snap.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get snapshot")
	}
	if err := json.Unmarshal([]byte(pagesJSON), &snap.Pages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal snapshot pages")
	}
	return &snap, nil
}

func (s *SQLiteStore) SetSnapshot(ctx context.Context, snapshot *model.SiteSnapshot, ttl time.Duration) error {
	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	pagesJSON, err := json.Marshal(snapshot.Pages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot pages")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, domain, company_name, pages, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, snapshot.Domain, snapshot.CompanyName, string(pagesJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set snapshot")
}

func (s *SQLiteStore) DeleteExpiredSnapshots(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired snapshots")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.AuditRun, error) {
	var r model.AuditRun
	var errMsg sql.NullString

	err := row.Scan(&r.ID, &r.SiteID, &r.CompanyName, &r.Domain, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
