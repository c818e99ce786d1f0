package benchmark

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
)

func batchOf(outcomes []visibility) *model.ObservationBatch {
	b := &model.ObservationBatch{Succeeded: len(outcomes)}
	for i, v := range outcomes {
		parsed := model.ParsedObservation{
			CompanyMentioned: v.visible,
			URLCited:         v.cited,
		}
		b.Results = append(b.Results, model.ObservationResult{
			QuestionID: fmt.Sprintf("q%d", i),
			Parsed:     parsed,
		})
	}
	return b
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		ours, theirs visibility
		want         model.MatchupOutcome
	}{
		{"both cited", visibility{true, true}, visibility{true, true}, model.OutcomeMutualWin},
		{"both visible uncited", visibility{true, false}, visibility{true, false}, model.OutcomeMutualWin},
		{"our citation beats their mention", visibility{true, true}, visibility{true, false}, model.OutcomeWin},
		{"their citation beats our mention", visibility{true, false}, visibility{true, true}, model.OutcomeLoss},
		{"only we are visible", visibility{true, false}, visibility{false, false}, model.OutcomeWin},
		{"only they are visible", visibility{false, false}, visibility{true, false}, model.OutcomeLoss},
		{"neither visible", visibility{false, false}, visibility{false, false}, model.OutcomeMutualLoss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.ours, tt.theirs))
		})
	}
}

func TestRun_HeadToHead(t *testing.T) {
	// 4 questions: we are visible on q0 and q1 (cited on q1); the competitor
	// is visible on q1 and q2 (cited on neither).
	ours := batchOf([]visibility{
		{true, false},
		{true, true},
		{false, false},
		{false, false},
	})
	theirs := batchOf([]visibility{
		{false, false},
		{true, false},
		{true, false},
		{false, false},
	})

	result, err := NewBenchmarker().Run(ours, []Competitor{
		{Name: "Rival", Domain: "rival.com", Batch: theirs},
	})
	require.NoError(t, err)

	// q0 win, q1 win (our citation), q2 loss, q3 mutual loss.
	assert.Equal(t, 2, result.OverallWins)
	assert.Equal(t, 1, result.OverallLosses)
	assert.Equal(t, 1, result.OverallTies)
	assert.InDelta(t, 2.0/4.0, result.OverallWinRate, 1e-9)

	assert.InDelta(t, 0.5, result.YourMentionRate, 1e-9)
	assert.InDelta(t, 0.25, result.YourCitationRate, 1e-9)
	assert.InDelta(t, 0.5, result.AvgCompetitorMentionRate, 1e-9)

	require.Len(t, result.Competitors, 1)
	cr := result.Competitors[0]
	assert.Equal(t, 2, cr.Wins)
	assert.Equal(t, 1, cr.Losses)
	assert.Equal(t, 1, cr.Ties)
	assert.InDelta(t, 0.0, cr.MentionAdvantage, 1e-9)

	assert.Equal(t, []string{"q0", "q1"}, result.UniqueWins)
	assert.Equal(t, []string{"q2"}, result.UniqueLosses)
}

func TestRun_UniqueOutcomesRequireEveryCompetitor(t *testing.T) {
	ours := batchOf([]visibility{{true, false}, {false, false}})
	compA := batchOf([]visibility{{false, false}, {true, false}})
	compB := batchOf([]visibility{{false, false}, {true, false}})
	// Competitor B is missing q1, so q1 cannot be a unique loss.
	compB.Results = compB.Results[:1]

	result, err := NewBenchmarker().Run(ours, []Competitor{
		{Name: "A", Batch: compA},
		{Name: "B", Batch: compB},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"q0"}, result.UniqueWins)
	assert.Empty(t, result.UniqueLosses)
}

func TestRun_WinRateCountsAllMatchups(t *testing.T) {
	// 2 questions x 2 competitors = 4 matchups; we win all against A and
	// lose all against B.
	ours := batchOf([]visibility{{true, true}, {true, true}})
	weak := batchOf([]visibility{{false, false}, {false, false}})
	strong := batchOf([]visibility{{true, true}, {true, true}})
	// Against the equally strong competitor both questions are mutual wins.

	result, err := NewBenchmarker().Run(ours, []Competitor{
		{Name: "Weak", Batch: weak},
		{Name: "Strong", Batch: strong},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.OverallWins)
	assert.Equal(t, 0, result.OverallLosses)
	assert.Equal(t, 2, result.OverallTies)
	assert.InDelta(t, 2.0/4.0, result.OverallWinRate, 1e-9)
}

func TestRun_FailedResultsAreInvisible(t *testing.T) {
	ours := batchOf([]visibility{{true, false}})
	theirs := batchOf([]visibility{{true, true}})
	theirs.Results[0].Failed = true

	result, err := NewBenchmarker().Run(ours, []Competitor{{Name: "X", Batch: theirs}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.OverallWins)
	assert.Zero(t, result.Competitors[0].CitationRate)
}

func TestRun_InputErrors(t *testing.T) {
	b := NewBenchmarker()
	ours := batchOf([]visibility{{true, false}})

	_, err := b.Run(nil, []Competitor{{Name: "X"}})
	require.Error(t, err)

	_, err = b.Run(ours, nil)
	require.Error(t, err)

	ours.Cancelled = true
	_, err = b.Run(ours, []Competitor{{Name: "X"}})
	require.Error(t, err)
}
