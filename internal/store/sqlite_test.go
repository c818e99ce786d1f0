package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
)

// newTestSQLiteStore creates a migrated SQLite store in a temp directory.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testReport(score float64) *model.FullReport {
	return &model.FullReport{
		Metadata: model.ReportMetadata{
			ReportID:    "rep-1",
			Version:     model.ReportVersion,
			CompanyName: "Acme",
			Domain:      "acme.com",
			CreatedAt:   time.Now().UTC(),
		},
		Score: model.ScoreSection{TotalScore: score, Grade: "B"},
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "site-1", "Acme", "acme.com")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Empty(t, got.Error)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, ""))
	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, "provider unreachable"))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "provider unreachable", got.Error)
}

func TestSQLiteStore_UpdateRunStatus_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusComplete, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
}

func TestSQLiteStore_ListRuns_Filters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a1, err := s.CreateRun(ctx, "site-1", "Acme", "acme.com")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "site-1", "Acme", "acme.com")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "site-2", "Rival", "rival.com")
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunStatus(ctx, a1.ID, model.RunStatusComplete, ""))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDomain, err := s.ListRuns(ctx, RunFilter{Domain: "acme.com"})
	require.NoError(t, err)
	assert.Len(t, byDomain, 2)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a1.ID, byStatus[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	offset, err := s.ListRuns(ctx, RunFilter{Limit: 10, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, offset, 1)
}

func TestSQLiteStore_SaveReport_UpsertAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "site-1", "Acme", "acme.com")
	require.NoError(t, err)

	require.NoError(t, s.SaveReport(ctx, run.ID, testReport(70)))

	got, err := s.GetReport(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 70.0, got.Score.TotalScore)
	assert.Equal(t, model.ReportVersion, got.Metadata.Version)

	// Saving again replaces the stored body.
	require.NoError(t, s.SaveReport(ctx, run.ID, testReport(85)))
	got, err = s.GetReport(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.Score.TotalScore)
}

func TestSQLiteStore_GetReport_Missing(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetReport(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_SaveQuestionResults(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "site-1", "Acme", "acme.com")
	require.NoError(t, err)

	results := []model.QuestionResult{
		{
			Question:      model.Question{ID: "q1", Category: model.CategoryIdentity, Difficulty: model.DifficultyEasy},
			Answerability: model.AnswerabilityFully,
			Confidence:    model.ConfidenceHigh,
			Score:         0.9,
			SignalsFound:  2,
			SignalsTotal:  2,
		},
		{
			Question:      model.Question{ID: "q2", Category: model.CategoryOfferings, Difficulty: model.DifficultyMedium},
			Answerability: model.AnswerabilityNot,
			Confidence:    model.ConfidenceLow,
		},
	}

	require.NoError(t, s.SaveQuestionResults(ctx, run.ID, results))
	// Re-saving the same run replaces rows instead of erroring.
	require.NoError(t, s.SaveQuestionResults(ctx, run.ID, results))
	require.NoError(t, s.SaveQuestionResults(ctx, run.ID, nil))
}

func TestSQLiteStore_SnapshotCache(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := &model.SiteSnapshot{
		Domain:      "acme.com",
		CompanyName: "Acme",
		Pages: []model.ExtractedPage{
			{URL: "https://acme.com/", Title: "Acme"},
		},
	}
	require.NoError(t, s.SetSnapshot(ctx, snap, 48*time.Hour))

	got, err := s.GetSnapshot(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.CompanyName)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "https://acme.com/", got.Pages[0].URL)

	missing, err := s.GetSnapshot(ctx, "unknown.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_SnapshotExpiry(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	expired := &model.SiteSnapshot{Domain: "old.com", CompanyName: "Old"}
	require.NoError(t, s.SetSnapshot(ctx, expired, -48*time.Hour))

	fresh := &model.SiteSnapshot{Domain: "fresh.com", CompanyName: "Fresh"}
	require.NoError(t, s.SetSnapshot(ctx, fresh, 48*time.Hour))

	got, err := s.GetSnapshot(ctx, "old.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := s.DeleteExpiredSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	kept, err := s.GetSnapshot(ctx, "fresh.com")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
