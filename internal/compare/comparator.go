// Package compare aligns simulated answerability with observed provider
// behavior and grades how far apart they are.
package compare

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
)

// Thresholds grade the mention-rate gap between simulation and observation.
type Thresholds struct {
	Low               float64
	Medium            float64
	High              float64
	RefreshOnAccuracy float64
}

// DefaultThresholds returns the standard divergence thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Low:               0.1,
		Medium:            0.2,
		High:              0.35,
		RefreshOnAccuracy: 0.5,
	}
}

// ThresholdsFromConfig maps the report config section onto thresholds.
func ThresholdsFromConfig(cfg config.ReportConfig) Thresholds {
	t := DefaultThresholds()
	if cfg.DivergenceLow > 0 {
		t.Low = cfg.DivergenceLow
	}
	if cfg.DivergenceMedium > 0 {
		t.Medium = cfg.DivergenceMedium
	}
	if cfg.DivergenceHigh > 0 {
		t.High = cfg.DivergenceHigh
	}
	if cfg.RefreshOnLowAccuracy > 0 {
		t.RefreshOnAccuracy = cfg.RefreshOnLowAccuracy
	}
	return t
}

// Comparator grades simulation predictions against observed outcomes.
type Comparator struct {
	thresholds Thresholds
}

// NewComparator creates a comparator.
func NewComparator(thresholds Thresholds) *Comparator {
	return &Comparator{thresholds: thresholds}
}

// Compare aligns every question present in both the simulation and the
// observation batch and summarizes prediction accuracy.
func (c *Comparator) Compare(sim *model.SimulationResult, obs *model.ObservationBatch) (*model.ComparisonSummary, error) {
	if sim == nil || len(sim.Results) == 0 {
		return nil, eris.New("compare: simulation result has no questions")
	}
	if obs == nil || len(obs.Results) == 0 {
		return nil, eris.New("compare: observation batch has no results")
	}
	if sim.Cancelled {
		return nil, eris.New("compare: refusing cancelled simulation result")
	}
	if obs.Cancelled {
		return nil, eris.New("compare: refusing cancelled observation batch")
	}

	summary := &model.ComparisonSummary{}
	var simPositives, mentions, citations, observed int

	for _, qr := range sim.Results {
		simPositive := qr.Answerability == model.AnswerabilityFully ||
			qr.Answerability == model.AnswerabilityPartially
		if simPositive {
			simPositives++
		}

		or, found := obs.ResultByQuestionID(qr.Question.ID)
		comparison := model.QuestionComparison{
			QuestionID:  qr.Question.ID,
			SimPositive: simPositive,
		}

		switch {
		case !found || or.Failed || or.Parsed.Refused:
			comparison.Outcome = model.PredictionUnknown
			summary.Unknown++
		default:
			observed++
			obsPositive := or.Parsed.CompanyMentioned || or.Parsed.URLCited
			comparison.ObsPositive = obsPositive
			if or.Parsed.CompanyMentioned || or.Parsed.DomainMentioned {
				mentions++
			}
			if or.Parsed.URLCited || len(or.Parsed.Citations) > 0 {
				citations++
			}
			switch {
			case simPositive == obsPositive:
				comparison.Outcome = model.PredictionCorrect
				summary.Correct++
			case simPositive && !obsPositive:
				comparison.Outcome = model.PredictionOptimistic
				summary.Optimistic++
			default:
				comparison.Outcome = model.PredictionPessimistic
				summary.Pessimistic++
			}
		}
		summary.Comparisons = append(summary.Comparisons, comparison)
	}

	summary.TotalCompared = len(summary.Comparisons)
	if summary.TotalCompared > 0 {
		summary.PredictionAccuracy = float64(summary.Correct) / float64(summary.TotalCompared)
		summary.SimulatedPositiveRate = float64(simPositives) / float64(summary.TotalCompared)
	}
	if observed > 0 {
		summary.ObservedMentionRate = float64(mentions) / float64(observed)
		summary.ObservedCitationRate = float64(citations) / float64(observed)
	}

	return summary, nil
}

// Divergence synthesizes the divergence section from a comparison summary.
func (c *Comparator) Divergence(summary *model.ComparisonSummary) *model.DivergenceSection {
	delta := summary.ObservedMentionRate - summary.SimulatedPositiveRate
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}

	level := model.DivergenceNone
	switch {
	case absDelta >= c.thresholds.High:
		level = model.DivergenceHigh
	case absDelta >= c.thresholds.Medium:
		level = model.DivergenceMedium
	case absDelta >= c.thresholds.Low:
		level = model.DivergenceLow
	}

	section := &model.DivergenceSection{
		Level:              level,
		MentionRateDelta:   delta,
		PredictionAccuracy: summary.PredictionAccuracy,
	}

	if summary.TotalCompared > 0 {
		section.OptimismBias = float64(summary.Optimistic) / float64(summary.TotalCompared)
		section.PessimismBias = float64(summary.Pessimistic) / float64(summary.TotalCompared)
	}

	if level == model.DivergenceHigh {
		section.ShouldRefresh = true
		section.RefreshReasons = append(section.RefreshReasons,
			fmt.Sprintf("mention rate diverges from simulated answerability by %.0f%%", absDelta*100))
	}
	if summary.PredictionAccuracy < c.thresholds.RefreshOnAccuracy {
		section.ShouldRefresh = true
		section.RefreshReasons = append(section.RefreshReasons,
			fmt.Sprintf("prediction accuracy %.0f%% is below %.0f%%",
				summary.PredictionAccuracy*100, c.thresholds.RefreshOnAccuracy*100))
	}

	switch {
	case section.OptimismBias > section.PessimismBias && section.OptimismBias > 0.2:
		section.CalibrationNotes = append(section.CalibrationNotes,
			"the simulation is optimistic: content retrieves well locally but real models rarely surface it")
	case section.PessimismBias > section.OptimismBias && section.PessimismBias > 0.2:
		section.CalibrationNotes = append(section.CalibrationNotes,
			"the simulation is pessimistic: real models mention the company more often than retrieval predicts")
	}

	return section
}
