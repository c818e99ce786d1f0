package impact

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
)

// tierBSim builds a two-question simulation where q1 is weak on pricing and
// q2 is already answered.
func tierBSim() *model.SimulationResult {
	return &model.SimulationResult{
		SiteID:         "example.com",
		CompanyName:    "Example",
		TotalQuestions: 2,
		Results: []model.QuestionResult{
			{
				Question: model.Question{
					ID:              "q1",
					Template:        "What pricing plans does {company} offer?",
					Category:        model.CategoryOfferings,
					ExpectedSignals: []string{"pricing", "plan"},
				},
				Context:       model.RetrievedContext{AvgScore: 0.4},
				Answerability: model.AnswerabilityNot,
				Confidence:    model.ConfidenceLow,
				Score:         0.2,
				SignalsFound:  0,
				SignalsTotal:  2,
			},
			{
				Question: model.Question{
					ID:              "q2",
					Template:        "What is {company}?",
					Category:        model.CategoryIdentity,
					ExpectedSignals: []string{"company"},
				},
				Context:       model.RetrievedContext{AvgScore: 0.8},
				Answerability: model.AnswerabilityFully,
				Confidence:    model.ConfidenceHigh,
				Score:         0.9,
				SignalsFound:  1,
				SignalsTotal:  1,
			},
		},
	}
}

func pricingFix() model.Fix {
	return model.Fix{
		ID:                 "fix-pricing",
		ReasonCode:         model.ReasonMissingPricing,
		AffectedQuestions:  []string{"q1"},
		AffectedCategories: []model.Category{model.CategoryOfferings},
	}
}

func TestTierB_EstimatePlan_RescoresPatchedQuestions(t *testing.T) {
	tb := NewTierB(DefaultTierBOptions(), NewTierC(DefaultTierCOptions()))
	sim := tierBSim()

	got, err := tb.EstimatePlan(context.Background(), &model.FixPlan{Fixes: []model.Fix{pricingFix()}}, sim)
	require.NoError(t, err)

	// q1 after the patch: relevance 0.4 + 0.3 = 0.7, both pricing signals
	// newly matched, confidence 0.3 + 0.3 = 0.6. New score is
	// 0.4*0.7 + 0.4*1.0 + 0.2*0.6 = 0.8, a delta of 0.6 over 2 questions,
	// so 30 points on the report scale.
	assert.InDelta(t, 30.0, got.Total.Expected, 1e-9)
	assert.InDelta(t, 24.0, got.Total.Min, 1e-9)
	assert.InDelta(t, 36.0, got.Total.Max, 1e-9)
	assert.Equal(t, model.ImpactTierB, got.Tier)
	assert.Equal(t, model.ImpactConfidenceHigh, got.Total.Confidence)

	perFix, ok := got.PerFix["fix-pricing"]
	require.True(t, ok)
	assert.Equal(t, model.ImpactTierB, perFix.Tier)
	assert.InDelta(t, 30.0, perFix.Expected, 1e-9)
}

func TestTierB_EstimatePlan_DoesNotMutateInputs(t *testing.T) {
	tb := NewTierB(DefaultTierBOptions(), NewTierC(DefaultTierCOptions()))
	sim := tierBSim()
	plan := &model.FixPlan{Fixes: []model.Fix{pricingFix()}}

	simBefore, err := json.Marshal(sim)
	require.NoError(t, err)
	planBefore, err := json.Marshal(plan)
	require.NoError(t, err)

	_, err = tb.EstimatePlan(context.Background(), plan, sim)
	require.NoError(t, err)

	simAfter, err := json.Marshal(sim)
	require.NoError(t, err)
	planAfter, err := json.Marshal(plan)
	require.NoError(t, err)

	assert.JSONEq(t, string(simBefore), string(simAfter))
	assert.JSONEq(t, string(planBefore), string(planAfter))
}

func TestTierB_FixesBeyondTopN_UseLookup(t *testing.T) {
	opts := DefaultTierBOptions()
	opts.TopN = 1
	tb := NewTierB(opts, NewTierC(DefaultTierCOptions()))
	sim := tierBSim()

	second := model.Fix{
		ID:                "fix-extra",
		ReasonCode:        model.ReasonMissingLocation,
		AffectedQuestions: []string{"q2"},
	}
	got, err := tb.EstimatePlan(context.Background(), &model.FixPlan{
		Fixes: []model.Fix{pricingFix(), second},
	}, sim)
	require.NoError(t, err)

	assert.Equal(t, model.ImpactTierB, got.PerFix["fix-pricing"].Tier)
	assert.Equal(t, model.ImpactTierC, got.PerFix["fix-extra"].Tier)
}

func TestTierB_RelevanceCapHolds(t *testing.T) {
	tb := NewTierB(DefaultTierBOptions(), NewTierC(DefaultTierCOptions()))
	sim := tierBSim()
	sim.Results[0].Context.AvgScore = 0.9

	// Patching the same question twice cannot push relevance past the cap,
	// so the second application moves only signals, which are exhausted.
	plan := &model.FixPlan{Fixes: []model.Fix{pricingFix(), func() model.Fix {
		f := pricingFix()
		f.ID = "fix-pricing-2"
		return f
	}()}}

	got, err := tb.EstimatePlan(context.Background(), plan, sim)
	require.NoError(t, err)

	// relevance 0.9 -> capped at 0.95; signals 2/2; confidence 0.3+0.3=0.6.
	// score = 0.4*0.95 + 0.4*1.0 + 0.2*0.6 = 0.9, delta 0.7 over 2 -> 35.
	assert.InDelta(t, 35.0, got.Total.Expected, 1e-9)
}

func TestTierB_QuestionWithoutSignals_KeepsNeutralRatio(t *testing.T) {
	tb := NewTierB(DefaultTierBOptions(), NewTierC(DefaultTierCOptions()))

	// The simulation blend scores a no-signal question with a neutral 0.5
	// ratio: 0.4*0.5 + 0.4*0.5 + 0.2*0.3 = 0.46.
	sim := &model.SimulationResult{
		SiteID:         "example.com",
		CompanyName:    "Example",
		TotalQuestions: 1,
		Results: []model.QuestionResult{
			{
				Question: model.Question{
					ID:       "q1",
					Template: "Where can I read about {company}?",
					Category: model.CategoryIdentity,
				},
				Context:       model.RetrievedContext{AvgScore: 0.5},
				Answerability: model.AnswerabilityPartially,
				Confidence:    model.ConfidenceLow,
				Score:         0.46,
				SignalsFound:  0,
				SignalsTotal:  0,
			},
		},
	}
	fix := model.Fix{
		ID:                "fix-buried",
		ReasonCode:        model.ReasonBuriedAnswer,
		AffectedQuestions: []string{"q1"},
	}

	got, err := tb.EstimatePlan(context.Background(), &model.FixPlan{Fixes: []model.Fix{fix}}, sim)
	require.NoError(t, err)

	// The patch moves relevance to 0.8 and confidence to 0.45 while the
	// signal ratio stays 0.5: 0.4*0.8 + 0.4*0.5 + 0.2*0.45 = 0.61, a delta
	// of 0.15 over one question, so 15 points.
	assert.InDelta(t, 15.0, got.Total.Expected, 1e-9)
	assert.InDelta(t, 12.0, got.Total.Min, 1e-9)
	assert.InDelta(t, 18.0, got.Total.Max, 1e-9)
	assert.Equal(t, model.ImpactConfidenceHigh, got.Total.Confidence)
}

func TestTierB_EstimatePlan_InputErrors(t *testing.T) {
	tb := NewTierB(DefaultTierBOptions(), NewTierC(DefaultTierCOptions()))
	sim := tierBSim()

	_, err := tb.EstimatePlan(context.Background(), nil, sim)
	require.Error(t, err)

	_, err = tb.EstimatePlan(context.Background(), &model.FixPlan{}, &model.SimulationResult{})
	require.Error(t, err)

	cancelled := tierBSim()
	cancelled.Cancelled = true
	_, err = tb.EstimatePlan(context.Background(), &model.FixPlan{}, cancelled)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tb.EstimatePlan(ctx, &model.FixPlan{Fixes: []model.Fix{pricingFix()}}, sim)
	require.ErrorIs(t, err, model.ErrCancelled)
}
