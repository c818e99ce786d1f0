package impact

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/retrieval"
)

// signalPatterns lists, per reason code, the signal keywords a synthetic
// content patch would introduce. A pending signal counts as newly matched
// when it shares a word with one of these patterns.
var signalPatterns = map[model.ReasonCode][]string{
	model.ReasonMissingDefinition:  {"company", "about", "helps", "platform", "service"},
	model.ReasonMissingPricing:     {"price", "pricing", "plan", "cost", "month", "tier", "$"},
	model.ReasonMissingContact:     {"email", "phone", "contact", "address", "@"},
	model.ReasonMissingLocation:    {"headquartered", "located", "office", "city"},
	model.ReasonMissingFeatures:    {"feature", "product", "offers", "capability"},
	model.ReasonMissingSocialProof: {"customer", "testimonial", "case", "trusted", "review"},
	model.ReasonBuriedAnswer:       {"heading", "answer"},
	model.ReasonFragmentedInfo:     {"overview", "summary"},
	model.ReasonNoDedicatedPage:    {"page", "dedicated"},
	model.ReasonPoorHeadings:       {"heading"},
	model.ReasonNotCitable:         {"statement"},
	model.ReasonVagueLanguage:      {"specific", "measurable"},
	model.ReasonOutdatedInfo:       {"updated", "date"},
	model.ReasonInconsistent:       {"consistent"},
	model.ReasonTrustGap:           {"certification", "security", "team", "trusted"},
	model.ReasonNoAuthority:        {"expert", "author"},
	model.ReasonUnverifiedClaims:   {"source", "evidence", "number"},
	model.ReasonRenderRequired:     {"content"},
	model.ReasonBlockedByRobots:    {"content"},
}

// TierBOptions controls the synthetic patch estimator.
type TierBOptions struct {
	// TopN bounds how many fixes, in plan order, get patched in.
	TopN int
	// RelevanceBoost is added to a patched question's normalized relevance,
	// capped at RelevanceCap.
	RelevanceBoost float64
	RelevanceCap   float64
	// Weights of the simulation score blend, reused for re-scoring.
	RelevanceWeight  float64
	SignalWeight     float64
	ConfidenceWeight float64
}

// DefaultTierBOptions returns the standard Tier B configuration.
func DefaultTierBOptions() TierBOptions {
	return TierBOptions{
		TopN:             5,
		RelevanceBoost:   0.3,
		RelevanceCap:     0.95,
		RelevanceWeight:  0.4,
		SignalWeight:     0.4,
		ConfidenceWeight: 0.2,
	}
}

// TierB estimates fix impact by patching a synthetic chunk into the affected
// question results and re-scoring them. Inputs are never mutated: all work
// happens on copied values.
type TierB struct {
	opts  TierBOptions
	tierC *TierC
}

// NewTierB creates a Tier B estimator. Fixes beyond TopN, and plans where
// patching moves nothing, fall back to the Tier C lookup.
func NewTierB(opts TierBOptions, tierC *TierC) *TierB {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	if opts.RelevanceBoost <= 0 {
		opts.RelevanceBoost = 0.3
	}
	if opts.RelevanceCap <= 0 {
		opts.RelevanceCap = 0.95
	}
	if tierC == nil {
		tierC = NewTierC(DefaultTierCOptions())
	}
	return &TierB{opts: opts, tierC: tierC}
}

// patchedState is the mutable copy of one question's scoring inputs.
type patchedState struct {
	relevance float64
	found     int
	total     int
	confNum   float64
	origScore float64
}

// EstimatePlan re-scores the questions affected by the top-N fixes and turns
// the cumulative score delta into an impact range on the 0-100 report scale.
func (t *TierB) EstimatePlan(ctx context.Context, plan *model.FixPlan, sim *model.SimulationResult) (*model.FixPlanImpact, error) {
	if plan == nil {
		return nil, eris.New("impact: fix plan is nil")
	}
	if sim == nil || len(sim.Results) == 0 {
		return nil, eris.New("impact: simulation result has no questions")
	}
	if sim.Cancelled {
		return nil, eris.New("impact: refusing cancelled simulation result")
	}

	topN := t.opts.TopN
	if topN > len(plan.Fixes) {
		topN = len(plan.Fixes)
	}

	perFix := make(map[string]model.ImpactRange, len(plan.Fixes))
	states := make(map[string]*patchedState)

	for i, fix := range plan.Fixes {
		if ctx.Err() != nil {
			return nil, model.ErrCancelled
		}
		if i >= topN {
			perFix[fix.ID] = t.tierC.EstimateFix(fix)
			continue
		}
		perFix[fix.ID] = t.estimateFix(fix, sim)
		t.applyPatch(fix, sim, states)
	}

	scaled, improved, patched := t.cumulativeDelta(sim, states)

	total := model.ImpactRange{
		Min:        clipNonNegative(0.8 * scaled),
		Expected:   clipNonNegative(scaled),
		Max:        clipNonNegative(1.2 * scaled),
		Confidence: tierBConfidence(improved, patched),
		Tier:       model.ImpactTierB,
	}

	return &model.FixPlanImpact{
		Total:  total,
		PerFix: perFix,
		Tier:   model.ImpactTierB,
	}, nil
}

// estimateFix scores one fix in isolation: patch only this fix and measure
// the delta it produces on its own.
func (t *TierB) estimateFix(fix model.Fix, sim *model.SimulationResult) model.ImpactRange {
	states := make(map[string]*patchedState)
	t.applyPatch(fix, sim, states)
	scaled, improved, patched := t.cumulativeDelta(sim, states)

	return model.ImpactRange{
		Min:        clipNonNegative(0.8 * scaled),
		Expected:   clipNonNegative(scaled),
		Max:        clipNonNegative(1.2 * scaled),
		Confidence: tierBConfidence(improved, patched),
		Tier:       model.ImpactTierB,
	}
}

// applyPatch folds one fix's synthetic chunk into the patched states of its
// affected questions. The underlying SimulationResult is only read.
func (t *TierB) applyPatch(fix model.Fix, sim *model.SimulationResult, states map[string]*patchedState) {
	patterns := signalPatterns[fix.ReasonCode]
	for _, qid := range fix.AffectedQuestions {
		state, ok := states[qid]
		if !ok {
			qr, found := sim.ResultByQuestionID(qid)
			if !found {
				continue
			}
			state = &patchedState{
				relevance: retrieval.Normalize(qr.Context.AvgScore),
				found:     qr.SignalsFound,
				total:     qr.SignalsTotal,
				confNum:   model.ConfidenceNumeric(qr.Confidence),
				origScore: qr.Score,
			}
			states[qid] = state
		}

		relBefore, foundBefore := state.relevance, state.found

		state.relevance += t.opts.RelevanceBoost
		if state.relevance > t.opts.RelevanceCap {
			state.relevance = t.opts.RelevanceCap
		}

		qr, _ := sim.ResultByQuestionID(qid)
		newlyMatched := pendingSignalMatches(qr, patterns, state.found)
		state.found += newlyMatched
		if state.found > state.total {
			state.found = state.total
		}

		relImproved := state.relevance > relBefore
		sigImproved := state.found > foundBefore
		switch {
		case relImproved && sigImproved:
			state.confNum += 0.3
		case relImproved || sigImproved:
			state.confNum += 0.15
		}
		if state.confNum > 1 {
			state.confNum = 1
		}
	}
}

// pendingSignalMatches counts expected signals, beyond those already found,
// that a patch introducing the given patterns would satisfy.
func pendingSignalMatches(qr model.QuestionResult, patterns []string, alreadyFound int) int {
	pending := qr.SignalsTotal - alreadyFound
	if pending <= 0 || len(patterns) == 0 {
		return 0
	}
	matched := 0
	for _, sig := range qr.Question.ExpectedSignals {
		if matched >= pending {
			break
		}
		lower := strings.ToLower(sig)
		for _, p := range patterns {
			if strings.Contains(lower, p) || strings.Contains(p, lower) {
				matched++
				break
			}
		}
	}
	return matched
}

// cumulativeDelta re-scores every patched question and converts the summed
// score delta to report points. It also reports how many patched questions
// improved by more than 0.05.
func (t *TierB) cumulativeDelta(sim *model.SimulationResult, states map[string]*patchedState) (scaled float64, improved, patched int) {
	var deltaSum float64
	for _, state := range states {
		// Questions with no expected signals score a neutral 0.5 ratio in
		// the simulation blend; re-scoring must use the same value or the
		// patch would read as a regression.
		sigRatio := 0.5
		if state.total > 0 {
			sigRatio = float64(state.found) / float64(state.total)
		}
		score := t.opts.RelevanceWeight*state.relevance +
			t.opts.SignalWeight*sigRatio +
			t.opts.ConfidenceWeight*state.confNum
		if score > 1 {
			score = 1
		}
		delta := score - state.origScore
		deltaSum += delta
		if delta > 0.05 {
			improved++
		}
		patched++
	}
	if sim.TotalQuestions > 0 {
		scaled = deltaSum / float64(sim.TotalQuestions) * 100
	}
	return scaled, improved, patched
}

func tierBConfidence(improved, patched int) model.ImpactConfidence {
	if patched == 0 {
		return model.ImpactConfidenceLow
	}
	frac := float64(improved) / float64(patched)
	switch {
	case frac > 0.7:
		return model.ImpactConfidenceHigh
	case frac > 0.3:
		return model.ImpactConfidenceMedium
	default:
		return model.ImpactConfidenceLow
	}
}

func clipNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
