// Package report assembles the versioned FullReport from pipeline outputs.
// Assembly is a pure function of its inputs.
package report

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/fixes"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/scoring"
)

// Inputs bundles everything the assembler consumes. Observation, Benchmark,
// Comparison, and Divergence are optional.
type Inputs struct {
	SiteID      string
	RunID       string
	CompanyName string
	Domain      string

	RunStartedAt   *time.Time
	RunCompletedAt *time.Time

	Simulation *model.SimulationResult
	Breakdown  *scoring.Breakdown
	FixPlan    *model.FixPlan
	PlanImpact *model.FixPlanImpact

	Observation *model.ObservationBatch
	Comparison  *model.ComparisonSummary
	Benchmark   *model.BenchmarkResult
	Divergence  *model.DivergenceSection
}

// Assembler builds FullReports.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds the report. Floats are rounded to 2 decimals, rates to 3.
func (a *Assembler) Assemble(in Inputs) (*model.FullReport, error) {
	if in.Simulation == nil || in.Breakdown == nil {
		return nil, eris.New("report: simulation result and score breakdown are required")
	}
	if in.FixPlan == nil {
		return nil, eris.New("report: fix plan is required")
	}
	if in.Simulation.Cancelled {
		return nil, eris.New("report: refusing cancelled simulation result")
	}

	r := &model.FullReport{
		Metadata: a.metadata(in),
		Score:    a.scoreSection(in),
		Fixes:    a.fixSection(in),
	}

	if in.Observation != nil {
		section := a.observationSection(in)
		r.Observation = &section
		mentionRate := section.CompanyMentionRate
		r.MentionRate = &mentionRate
	}
	if in.Benchmark != nil {
		section := a.benchmarkSection(in.Benchmark)
		r.Benchmark = &section
	}
	if in.Divergence != nil {
		section := *in.Divergence
		section.MentionRateDelta = model.Round3(section.MentionRateDelta)
		section.PredictionAccuracy = model.Round3(section.PredictionAccuracy)
		section.OptimismBias = model.Round3(section.OptimismBias)
		section.PessimismBias = model.Round3(section.PessimismBias)
		r.Divergence = &section
	}

	total := in.Breakdown.TotalScore
	r.ScoreConservative = int(math.Floor(total * 0.85))
	r.ScoreTypical = int(math.Floor(total))
	r.ScoreGenerous = int(math.Floor(math.Min(100, total*1.1)))

	return r, nil
}

func (a *Assembler) metadata(in Inputs) model.ReportMetadata {
	md := model.ReportMetadata{
		ReportID:           uuid.NewString(),
		SiteID:             in.SiteID,
		RunID:              in.RunID,
		Version:            model.ReportVersion,
		CompanyName:        in.CompanyName,
		Domain:             in.Domain,
		CreatedAt:          time.Now().UTC(),
		RunStartedAt:       in.RunStartedAt,
		RunCompletedAt:     in.RunCompletedAt,
		IncludeObservation: in.Observation != nil,
		IncludeBenchmark:   in.Benchmark != nil,
	}
	if in.RunStartedAt != nil && in.RunCompletedAt != nil {
		md.RunDurationSeconds = model.Round2(in.RunCompletedAt.Sub(*in.RunStartedAt).Seconds())
	}
	if in.Observation == nil {
		md.Limitations = append(md.Limitations,
			"observation was not run; mention and citation rates reflect simulation only")
	}
	if in.Benchmark == nil {
		md.Limitations = append(md.Limitations,
			"no competitor benchmark was run")
	}
	if in.Divergence == nil {
		md.Limitations = append(md.Limitations,
			"no divergence analysis: simulation predictions are uncalibrated against live models")
	}
	return md
}

func (a *Assembler) scoreSection(in Inputs) model.ScoreSection {
	b := in.Breakdown
	sim := in.Simulation

	section := model.ScoreSection{
		TotalScore:          model.Round2(b.TotalScore),
		Grade:               b.Grade,
		GradeDescription:    b.GradeDescription,
		CategoryScores:      make(map[model.Category]float64, len(b.CategoryScores)),
		TotalQuestions:      sim.TotalQuestions,
		QuestionsAnswered:   sim.Answered,
		QuestionsPartial:    sim.Partial,
		QuestionsUnanswered: sim.Unanswered,
		CoveragePercentage:  model.Round2(sim.CoveragePercent),
		CalculationSummary:  b.CalculationSummary,
		FormulaUsed:         b.FormulaUsed,
		RubricVersion:       b.RubricVersion,
	}
	for cat, score := range b.CategoryScores {
		section.CategoryScores[cat] = model.Round2(score)
	}
	for _, cs := range b.CriterionScores {
		section.CriterionScores = append(section.CriterionScores, model.CriterionScore{
			Name:      cs.Name,
			Raw:       model.Round2(cs.Raw),
			Weight:    cs.Weight,
			MaxPoints: cs.MaxPoints,
			Points:    model.Round2(cs.Points),
		})
	}
	return section
}

func (a *Assembler) fixSection(in Inputs) model.FixSection {
	plan := in.FixPlan
	section := model.FixSection{
		TotalFixes:           plan.TotalFixes,
		CriticalFixes:        plan.CriticalFixes,
		HighPriorityFixes:    plan.HighPriorityFixes,
		EstimatedTotalImpact: model.Round2(plan.EstimatedTotalImpact),
		CategoriesAddressed:  plan.CategoriesAddressed,
	}

	questions := make(map[string]bool)
	for _, fix := range plan.Fixes {
		section.Fixes = append(section.Fixes, model.ReportFix{
			ID:                 fix.ID,
			ReasonCode:         fix.ReasonCode,
			Title:              fix.Title,
			Description:        fix.Description,
			Scaffold:           fix.Scaffold,
			Priority:           fix.Priority,
			EstimatedImpact:    a.fixImpact(fix, in.PlanImpact),
			Effort:             fix.Effort,
			TargetURL:          fix.TargetURL,
			AffectedQuestions:  fix.AffectedQuestions,
			AffectedCategories: fix.AffectedCategories,
		})
		for _, qid := range fix.AffectedQuestions {
			questions[qid] = true
		}
	}
	section.QuestionsAddressed = len(questions)
	return section
}

// fixImpact takes the per-fix range from the plan impact when available,
// otherwise derives one from the fix's own point estimate.
func (a *Assembler) fixImpact(fix model.Fix, planImpact *model.FixPlanImpact) model.FixImpactRange {
	if planImpact != nil {
		if r, ok := planImpact.PerFix[fix.ID]; ok {
			return model.FixImpactRange{
				Min:      model.Round2(r.Min),
				Expected: model.Round2(r.Expected),
				Max:      model.Round2(r.Max),
			}
		}
	}
	return model.FixImpactRange{
		Min:      model.Round2(fix.EstimatedImpact * 0.5),
		Expected: model.Round2(fix.EstimatedImpact),
		Max:      model.Round2(fix.EstimatedImpact * 1.5),
	}
}

func (a *Assembler) observationSection(in Inputs) model.ObservationSection {
	obs := in.Observation
	section := model.ObservationSection{
		Provider:        obs.Provider,
		Model:           obs.Model,
		TotalQuestions:  len(obs.Results),
		QuestionResults: obs.Results,
	}

	var domainMentions int
	for _, r := range obs.Results {
		if r.Failed {
			continue
		}
		if r.Parsed.CompanyMentioned {
			section.QuestionsWithMention++
		}
		if r.Parsed.DomainMentioned {
			domainMentions++
		}
		if r.Parsed.URLCited || len(r.Parsed.Citations) > 0 {
			section.QuestionsWithCitation++
		}
	}
	if section.TotalQuestions > 0 {
		n := float64(section.TotalQuestions)
		section.CompanyMentionRate = model.Round3(float64(section.QuestionsWithMention) / n)
		section.DomainMentionRate = model.Round3(float64(domainMentions) / n)
		section.CitationRate = model.Round3(float64(section.QuestionsWithCitation) / n)
	}

	if in.Comparison != nil {
		section.PredictionAccuracy = model.Round3(in.Comparison.PredictionAccuracy)
		section.CorrectPredictions = in.Comparison.Correct
		section.OptimisticPredictions = in.Comparison.Optimistic
		section.PessimisticPredictions = in.Comparison.Pessimistic
	}

	section.Insights = observationInsights(section)
	section.Recommendations = observationRecommendations(section)
	return section
}

func observationInsights(s model.ObservationSection) []string {
	var insights []string
	switch {
	case s.CompanyMentionRate >= 0.7:
		insights = append(insights, "AI assistants mention the company in most answers")
	case s.CompanyMentionRate <= 0.2:
		insights = append(insights, "AI assistants rarely mention the company")
	}
	if s.CitationRate == 0 && s.TotalQuestions > 0 {
		insights = append(insights, "no answer cited the company's website")
	}
	return insights
}

func observationRecommendations(s model.ObservationSection) []string {
	var recs []string
	if s.CitationRate < s.CompanyMentionRate {
		recs = append(recs,
			"the company gets mentioned without citations; publish canonical, linkable fact pages")
	}
	if s.CompanyMentionRate <= 0.2 {
		recs = append(recs,
			"low mention rate; apply the critical fixes first, then re-observe")
	}
	return recs
}

func (a *Assembler) benchmarkSection(b *model.BenchmarkResult) model.BenchmarkSection {
	section := model.BenchmarkSection{
		TotalCompetitors:          b.TotalCompetitors,
		TotalQuestions:            b.TotalQuestions,
		YourMentionRate:           model.Round3(b.YourMentionRate),
		YourCitationRate:          model.Round3(b.YourCitationRate),
		AvgCompetitorMentionRate:  model.Round3(b.AvgCompetitorMentionRate),
		AvgCompetitorCitationRate: model.Round3(b.AvgCompetitorCitationRate),
		OverallWins:               b.OverallWins,
		OverallLosses:             b.OverallLosses,
		OverallTies:               b.OverallTies,
		OverallWinRate:            model.Round3(b.OverallWinRate),
		UniqueWins:                b.UniqueWins,
		UniqueLosses:              b.UniqueLosses,
		QuestionBenchmarks:        b.QuestionBenchmarks,
		Insights:                  b.Insights,
		Recommendations:           b.Recommendations,
	}
	for _, c := range b.Competitors {
		c.MentionRate = model.Round3(c.MentionRate)
		c.CitationRate = model.Round3(c.CitationRate)
		c.WinRate = model.Round3(c.WinRate)
		c.MentionAdvantage = model.Round3(c.MentionAdvantage)
		c.CitationAdvantage = model.Round3(c.CitationAdvantage)
		section.Competitors = append(section.Competitors, c)
	}
	return section
}

// SeverityCount reports how many fixes in a section carry each severity.
// Used by the CLI summary output.
func SeverityCount(section model.FixSection) map[fixes.Severity]int {
	counts := make(map[fixes.Severity]int)
	for _, f := range section.Fixes {
		counts[fixes.SeverityOf(f.ReasonCode)]++
	}
	return counts
}
