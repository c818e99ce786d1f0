package scoring

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/retrieval"
)

// Formula literally describes the blend so the math is auditable from the
// report alone.
const Formula = "total = 0.7 * sum(criterion_raw * criterion_weight * criterion_max_points) + 0.3 * sum(category_score * category_weight), clamped to [0,100]"

// QuestionDetail is the serialized per-question scoring trace.
type QuestionDetail struct {
	QuestionID     string   `json:"question_id"`
	Base           float64  `json:"base"`
	DifficultyMult float64  `json:"difficulty_mult"`
	CategoryWeight float64  `json:"category_weight"`
	Final          float64  `json:"final"`
	Steps          []string `json:"steps"`
}

// Breakdown is the transparent scoring output.
type Breakdown struct {
	TotalScore         float64                    `json:"total_score"`
	Grade              string                     `json:"grade"`
	GradeDescription   string                     `json:"grade_description"`
	CriterionScores    []model.CriterionScore     `json:"criterion_scores"`
	CategoryScores     map[model.Category]float64 `json:"category_scores"`
	QuestionDetails    []QuestionDetail           `json:"question_details"`
	CalculationSummary []string                   `json:"calculation_summary"`
	FormulaUsed        string                     `json:"formula_used"`
	RubricVersion      string                     `json:"rubric_version"`
}

// Calculator computes score breakdowns. Stateless given a rubric.
type Calculator struct {
	rubric Rubric
}

// NewCalculator creates a calculator over the given rubric.
func NewCalculator(rubric Rubric) *Calculator {
	return &Calculator{rubric: rubric}
}

// Calculate aggregates a SimulationResult into a Breakdown.
func (c *Calculator) Calculate(sim *model.SimulationResult) (*Breakdown, error) {
	if sim == nil || len(sim.Results) == 0 {
		return nil, eris.New("scoring: simulation result has no questions")
	}
	if sim.Cancelled {
		return nil, eris.New("scoring: refusing cancelled simulation result")
	}

	b := &Breakdown{
		CategoryScores: make(map[model.Category]float64),
		FormulaUsed:    Formula,
		RubricVersion:  c.rubric.Version,
	}

	criteria := c.computeCriteria(sim)
	criterionTotal := 0.0
	for _, name := range []string{
		CriterionContentRelevance,
		CriterionSignalCoverage,
		CriterionAnswerConfidence,
		CriterionSourceQuality,
	} {
		raw := criteria[name]
		weight := c.rubric.CriterionWeights[name]
		points := raw * weight * c.rubric.CriterionMaxPoints
		criterionTotal += points
		b.CriterionScores = append(b.CriterionScores, model.CriterionScore{
			Name:      name,
			Raw:       raw,
			Weight:    weight,
			MaxPoints: c.rubric.CriterionMaxPoints,
			Points:    points,
		})
		b.CalculationSummary = append(b.CalculationSummary,
			fmt.Sprintf("%s: raw=%.4f weight=%.2f points=%.2f", name, raw, weight, points))
	}

	categoryTotal := c.computeCategories(sim, b)

	total := c.rubric.CriterionBlendWeight*criterionTotal + c.rubric.CategoryBlendWeight*categoryTotal
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	b.TotalScore = total
	b.Grade, b.GradeDescription = GradeFor(total)

	b.CalculationSummary = append(b.CalculationSummary,
		fmt.Sprintf("criterion_total=%.2f category_total=%.2f", criterionTotal, categoryTotal),
		fmt.Sprintf("total = 0.7*%.2f + 0.3*%.2f = %.2f (grade %s)", criterionTotal, categoryTotal, total, b.Grade),
	)

	return b, nil
}

// computeCriteria produces the four raw criterion values in [0,1].
func (c *Calculator) computeCriteria(sim *model.SimulationResult) map[string]float64 {
	n := float64(len(sim.Results))

	var relSum, confSum, maxRelSum float64
	var signalsFound, signalsTotal int
	uniqueSources := make(map[string]bool)
	for _, qr := range sim.Results {
		relSum += retrieval.Normalize(qr.Context.AvgScore)
		maxRelSum += retrieval.Normalize(qr.Context.MaxScore)
		confSum += model.ConfidenceNumeric(qr.Confidence)
		signalsFound += qr.SignalsFound
		signalsTotal += qr.SignalsTotal
		for _, src := range qr.Context.UniqueSources {
			uniqueSources[src] = true
		}
	}

	coverage := 0.0
	if signalsTotal > 0 {
		coverage = float64(signalsFound) / float64(signalsTotal)
	}

	sourceBreadth := float64(len(uniqueSources)) / 10
	if sourceBreadth > 1 {
		sourceBreadth = 1
	}

	return map[string]float64{
		CriterionContentRelevance: relSum / n,
		CriterionSignalCoverage:   coverage,
		CriterionAnswerConfidence: confSum / n,
		CriterionSourceQuality:    0.3*sourceBreadth + 0.7*(maxRelSum/n),
	}
}

// computeCategories fills per-question details and category scores, and
// returns the weighted category sub-total (0-100).
func (c *Calculator) computeCategories(sim *model.SimulationResult, b *Breakdown) float64 {
	catSums := make(map[model.Category]float64)
	catCounts := make(map[model.Category]int)

	for _, qr := range sim.Results {
		mult := c.rubric.DifficultyMultipliers[qr.Question.Difficulty]
		if mult == 0 {
			mult = 1
		}
		catWeight := c.rubric.CategoryWeights[qr.Question.Category]

		base := qr.Score
		adjusted := base * mult
		if adjusted > 1 {
			adjusted = 1
		}
		final := adjusted * catWeight

		b.QuestionDetails = append(b.QuestionDetails, QuestionDetail{
			QuestionID:     qr.Question.ID,
			Base:           base,
			DifficultyMult: mult,
			CategoryWeight: catWeight,
			Final:          final,
			Steps: []string{
				fmt.Sprintf("base = %.4f", base),
				fmt.Sprintf("adjusted = min(1, %.4f * %.2f) = %.4f", base, mult, adjusted),
				fmt.Sprintf("final = %.4f * %.2f = %.4f", adjusted, catWeight, final),
			},
		})

		catSums[qr.Question.Category] += adjusted
		catCounts[qr.Question.Category]++
	}

	// Stable iteration order for the summary lines.
	cats := make([]model.Category, 0, len(catSums))
	for cat := range catSums {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	categoryTotal := 0.0
	for _, cat := range cats {
		score := catSums[cat] / float64(catCounts[cat]) * 100
		b.CategoryScores[cat] = score
		categoryTotal += score * c.rubric.CategoryWeights[cat]
		b.CalculationSummary = append(b.CalculationSummary,
			fmt.Sprintf("category %s: score=%.2f weight=%.2f", cat, score, c.rubric.CategoryWeights[cat]))
	}
	return categoryTotal
}
