package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/retrieval"
)

func newTestIndex() *retrieval.Index {
	ix := retrieval.NewIndex(nil)
	ix.Add("pricing#0", "Acme pricing plans start at $49 per month with a free trial",
		nil, "https://acme.com/pricing", "Pricing", "")
	ix.Add("about#0", "Acme is a logistics platform for retailers, founded in Denver",
		nil, "https://acme.com/about", "About", "")
	return ix
}

func pricingQuestion() model.Question {
	return model.Question{
		ID:              "q-pricing",
		Template:        "What pricing plans does {company} offer?",
		Category:        model.CategoryOfferings,
		Difficulty:      model.DifficultyMedium,
		ExpectedSignals: []string{"pricing", "plan"},
	}
}

func TestRun_AnswerableQuestion(t *testing.T) {
	r := NewRunner(DefaultOptions())

	result, err := r.Run(context.Background(), newTestIndex(), "site-1", "run-1", "Acme",
		[]model.Question{pricingQuestion()})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	qr := result.Results[0]

	assert.Equal(t, "What pricing plans does Acme offer?", qr.RenderedText)
	assert.Positive(t, qr.Context.Count)
	assert.Contains(t, qr.Context.UniqueSources, "https://acme.com/pricing")

	assert.Equal(t, 2, qr.SignalsFound)
	assert.Equal(t, 2, qr.SignalsTotal)
	assert.Equal(t, model.AnswerabilityFully, qr.Answerability)
	assert.Equal(t, model.ConfidenceHigh, qr.Confidence)
	assert.Greater(t, qr.Score, 0.7)

	assert.Equal(t, 1, result.Answered)
	assert.Equal(t, 100.0, result.CoveragePercent)
	assert.InDelta(t, qr.Score*100, result.OverallScore, 1e-9)
	assert.InDelta(t, result.CategoryScores[model.CategoryOfferings], result.OverallScore, 1e-9)
}

func TestRun_EmptyIndexLeavesEverythingUnanswered(t *testing.T) {
	r := NewRunner(DefaultOptions())
	ix := retrieval.NewIndex(nil)

	result, err := r.Run(context.Background(), ix, "site-1", "run-1", "Acme",
		[]model.Question{pricingQuestion()})
	require.NoError(t, err)

	qr := result.Results[0]
	assert.Equal(t, model.AnswerabilityNot, qr.Answerability)
	// Nothing retrieved is a certain negative, not an uncertain one.
	assert.Equal(t, model.ConfidenceHigh, qr.Confidence)
	assert.Zero(t, qr.Score)

	assert.Equal(t, 1, result.Unanswered)
	assert.Zero(t, result.CoveragePercent)
}

func TestRun_InputErrors(t *testing.T) {
	r := NewRunner(DefaultOptions())
	ix := newTestIndex()
	ctx := context.Background()

	_, err := r.Run(ctx, ix, "site-1", "run-1", "", []model.Question{pricingQuestion()})
	require.Error(t, err)

	_, err = r.Run(ctx, ix, "site-1", "run-1", "Acme", nil)
	require.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	r := NewRunner(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, newTestIndex(), "site-1", "run-1", "Acme",
		[]model.Question{pricingQuestion()})

	require.ErrorIs(t, err, model.ErrCancelled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.Results)
}

func TestMatchSignal_ExactSubstring(t *testing.T) {
	m := matchSignal("pricing", "Our Pricing page lists three plans.", true, 0.5)

	assert.True(t, m.Found)
	assert.InDelta(t, 1.0, m.Confidence, 1e-9)
	assert.Contains(t, m.Evidence, "Pricing")
}

func TestMatchSignal_FuzzyWordMatch(t *testing.T) {
	// "free trial period" has 2 of 3 words present.
	m := matchSignal("free trial period", "Start a free 14-day trial today.", true, 0.5)

	assert.True(t, m.Found)
	assert.InDelta(t, 2.0/3.0, m.Confidence, 1e-9)
	assert.NotEmpty(t, m.Evidence)
}

func TestMatchSignal_BelowThreshold(t *testing.T) {
	m := matchSignal("enterprise support contract", "We sell software.", true, 0.5)

	assert.False(t, m.Found)
	assert.Zero(t, m.Confidence)
}

func TestMatchSignal_FuzzyDisabled(t *testing.T) {
	m := matchSignal("free trial period", "Start a free 14-day trial today.", false, 0.5)

	assert.False(t, m.Found)
	assert.Zero(t, m.Confidence)
}

func TestBuildContext(t *testing.T) {
	results := []model.RetrievalResult{
		{DocID: "a#0", Content: "first chunk", CombinedScore: 0.03, URL: "https://acme.com/a"},
		{DocID: "a#1", Content: "second chunk", CombinedScore: 0.01, URL: "https://acme.com/a"},
		{DocID: "b#0", Content: "third chunk", CombinedScore: 0.02, URL: "https://acme.com/b"},
	}

	rc := buildContext(results, 2000)
	assert.Equal(t, 3, rc.Count)
	assert.InDelta(t, 0.02, rc.AvgScore, 1e-9)
	assert.InDelta(t, 0.03, rc.MaxScore, 1e-9)
	assert.Equal(t, []string{"https://acme.com/a", "https://acme.com/b"}, rc.UniqueSources)
	assert.Contains(t, rc.ContentPreview, "first chunk")
	assert.Contains(t, rc.ContentPreview, "third chunk")
}

func TestBuildContext_TruncatesPreview(t *testing.T) {
	rc := buildContext([]model.RetrievalResult{
		{DocID: "a#0", Content: "aaaaaaaaaa", CombinedScore: 0.01},
		{DocID: "a#1", Content: "bbbbbbbbbb", CombinedScore: 0.01},
	}, 12)

	assert.Len(t, rc.ContentPreview, 12)
}
