// Package impact estimates how many report points a fix plan is worth.
// Tier C is a lookup-based range; Tier B re-scores affected questions
// against a synthetic content patch.
package impact

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/fixes"
	"github.com/sourcelens/audit-cli/internal/model"
)

// pointTriple is the fixed (min, expected, max) impact in report points for
// one reason code.
type pointTriple struct {
	min, expected, max float64
}

var tierCTable = map[model.ReasonCode]pointTriple{
	model.ReasonMissingDefinition:  {3, 6, 9},
	model.ReasonMissingPricing:     {2.5, 5, 8},
	model.ReasonMissingContact:     {2, 4, 6},
	model.ReasonMissingLocation:    {1, 2, 3},
	model.ReasonMissingFeatures:    {2.5, 5, 7.5},
	model.ReasonMissingSocialProof: {1.5, 3, 5},
	model.ReasonBuriedAnswer:       {1, 2.5, 4},
	model.ReasonFragmentedInfo:     {1, 2.5, 4},
	model.ReasonNoDedicatedPage:    {2, 4, 6},
	model.ReasonPoorHeadings:       {1, 2, 3.5},
	model.ReasonNotCitable:         {1, 2, 3},
	model.ReasonVagueLanguage:      {0.5, 1.5, 2.5},
	model.ReasonOutdatedInfo:       {1, 2, 3},
	model.ReasonInconsistent:       {2, 4, 6.5},
	model.ReasonTrustGap:           {1.5, 3, 4.5},
	model.ReasonNoAuthority:        {0.5, 1.5, 2.5},
	model.ReasonUnverifiedClaims:   {0.5, 1.5, 2.5},
	model.ReasonRenderRequired:     {3, 6, 10},
	model.ReasonBlockedByRobots:    {4, 8, 12},
}

// questionCountMultiplier scales impact by the number of affected questions.
var questionCountMultiplier = map[int]float64{
	1: 1.0,
	2: 1.4,
	3: 1.7,
	4: 2.0,
	5: 2.2,
}

func countMultiplier(n int) float64 {
	if n <= 0 {
		return 1.0
	}
	if m, ok := questionCountMultiplier[n]; ok {
		return m
	}
	m := 2.2 + 0.05*float64(n-5)
	if m > 2.5 {
		m = 2.5
	}
	return m
}

// categoryWeightFactor scales impact by the highest-leverage affected
// category, mirroring the rubric's category weights.
var categoryWeightFactor = map[model.Category]float64{
	model.CategoryIdentity:        1.1,
	model.CategoryOfferings:       1.2,
	model.CategoryContact:         0.9,
	model.CategoryTrust:           1.0,
	model.CategoryDifferentiation: 1.0,
}

func maxCategoryFactor(categories []model.Category) float64 {
	factor := 0.0
	for _, cat := range categories {
		if f, ok := categoryWeightFactor[cat]; ok && f > factor {
			factor = f
		}
	}
	if factor == 0 {
		factor = 1.0
	}
	return factor
}

// TierCOptions controls the lookup estimator.
type TierCOptions struct {
	MaxTotalImpact float64
}

// DefaultTierCOptions returns the standard Tier C configuration.
func DefaultTierCOptions() TierCOptions {
	return TierCOptions{MaxTotalImpact: 30.0}
}

// TierC is the lookup-based estimator.
type TierC struct {
	opts TierCOptions
}

// NewTierC creates a Tier C estimator.
func NewTierC(opts TierCOptions) *TierC {
	if opts.MaxTotalImpact <= 0 {
		opts.MaxTotalImpact = 30.0
	}
	return &TierC{opts: opts}
}

// EstimateFix returns the lookup range for a single fix.
func (t *TierC) EstimateFix(fix model.Fix) model.ImpactRange {
	triple, ok := tierCTable[fix.ReasonCode]
	if !ok {
		triple = pointTriple{0.5, 1, 2}
	}
	mult := countMultiplier(len(fix.AffectedQuestions)) * maxCategoryFactor(fix.AffectedCategories)

	return model.ImpactRange{
		Min:        triple.min * mult,
		Expected:   triple.expected * mult,
		Max:        triple.max * mult,
		Confidence: tierCConfidence(fix),
		Tier:       model.ImpactTierC,
	}
}

func tierCConfidence(fix model.Fix) model.ImpactConfidence {
	severity := fixes.SeverityOf(fix.ReasonCode)
	affected := len(fix.AffectedQuestions)
	switch {
	case severity == fixes.SeverityCritical && affected <= 2:
		return model.ImpactConfidenceHigh
	case severity == fixes.SeverityCritical || severity == fixes.SeverityHigh || affected <= 3:
		return model.ImpactConfidenceMedium
	default:
		return model.ImpactConfidenceLow
	}
}

// EstimatePlan aggregates fix ranges with diminishing returns: the i-th fix
// (sorted by expected impact descending) contributes 0.8^(i-1) of its range.
// Totals are capped at MaxTotalImpact. Cancellation is checked at each fix
// boundary.
func (t *TierC) EstimatePlan(ctx context.Context, plan *model.FixPlan) (*model.FixPlanImpact, error) {
	if plan == nil {
		return nil, eris.New("impact: fix plan is nil")
	}

	perFix := make(map[string]model.ImpactRange, len(plan.Fixes))
	ranges := make([]model.ImpactRange, 0, len(plan.Fixes))
	for _, fix := range plan.Fixes {
		if ctx.Err() != nil {
			return nil, model.ErrCancelled
		}
		r := t.EstimateFix(fix)
		perFix[fix.ID] = r
		ranges = append(ranges, r)
	}

	sort.SliceStable(ranges, func(a, b int) bool {
		return ranges[a].Expected > ranges[b].Expected
	})

	total := model.ImpactRange{Tier: model.ImpactTierC, Confidence: model.ImpactConfidenceHigh}
	discount := 1.0
	for _, r := range ranges {
		total.Min += r.Min * discount
		total.Expected += r.Expected * discount
		total.Max += r.Max * discount
		discount *= 0.8
		if rankConfidence(r.Confidence) < rankConfidence(total.Confidence) {
			total.Confidence = r.Confidence
		}
	}
	total.Min = capAt(total.Min, t.opts.MaxTotalImpact)
	total.Expected = capAt(total.Expected, t.opts.MaxTotalImpact)
	total.Max = capAt(total.Max, t.opts.MaxTotalImpact)
	if len(ranges) == 0 {
		total.Confidence = model.ImpactConfidenceLow
	}

	return &model.FixPlanImpact{
		Total:  total,
		PerFix: perFix,
		Tier:   model.ImpactTierC,
	}, nil
}

func capAt(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

func rankConfidence(c model.ImpactConfidence) int {
	switch c {
	case model.ImpactConfidenceHigh:
		return 3
	case model.ImpactConfidenceMedium:
		return 2
	default:
		return 1
	}
}
