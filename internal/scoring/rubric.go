// Package scoring turns a SimulationResult into an auditable 0-100 score
// breakdown governed by a versioned rubric.
package scoring

import "github.com/sourcelens/audit-cli/internal/model"

// RubricVersion identifies the default rubric.
const RubricVersion = "1.0"

// Criterion names. Weights sum to 1.0.
const (
	CriterionContentRelevance = "content_relevance"
	CriterionSignalCoverage   = "signal_coverage"
	CriterionAnswerConfidence = "answer_confidence"
	CriterionSourceQuality    = "source_quality"
)

// Rubric holds the weights, multipliers, and thresholds governing scoring.
type Rubric struct {
	Version               string
	CriterionWeights      map[string]float64
	CriterionMaxPoints    float64
	CategoryWeights       map[model.Category]float64
	DifficultyMultipliers map[model.Difficulty]float64
	CriterionBlendWeight  float64
	CategoryBlendWeight   float64
}

// DefaultRubric returns the versioned default rubric.
func DefaultRubric() Rubric {
	return Rubric{
		Version: RubricVersion,
		CriterionWeights: map[string]float64{
			CriterionContentRelevance: 0.35,
			CriterionSignalCoverage:   0.35,
			CriterionAnswerConfidence: 0.20,
			CriterionSourceQuality:    0.10,
		},
		CriterionMaxPoints: 100,
		CategoryWeights: map[model.Category]float64{
			model.CategoryIdentity:        0.25,
			model.CategoryOfferings:       0.30,
			model.CategoryContact:         0.15,
			model.CategoryTrust:           0.15,
			model.CategoryDifferentiation: 0.15,
		},
		DifficultyMultipliers: map[model.Difficulty]float64{
			model.DifficultyEasy:   1.0,
			model.DifficultyMedium: 1.2,
			model.DifficultyHard:   1.5,
		},
		CriterionBlendWeight: 0.7,
		CategoryBlendWeight:  0.3,
	}
}

// gradeThreshold maps minimum scores to letter grades, highest first.
var gradeThresholds = []struct {
	min   float64
	grade string
	desc  string
}{
	{97, "A+", "Exceptional AI sourceability"},
	{93, "A", "Excellent AI sourceability"},
	{90, "A-", "Excellent AI sourceability"},
	{87, "B+", "Good AI sourceability"},
	{83, "B", "Good AI sourceability"},
	{80, "B-", "Good AI sourceability"},
	{77, "C+", "Fair AI sourceability"},
	{73, "C", "Fair AI sourceability"},
	{70, "C-", "Fair AI sourceability"},
	{67, "D+", "Poor AI sourceability"},
	{63, "D", "Poor AI sourceability"},
	{60, "D-", "Poor AI sourceability"},
}

// GradeFor returns the letter grade and description for a 0-100 score.
func GradeFor(score float64) (string, string) {
	for _, t := range gradeThresholds {
		if score >= t.min {
			return t.grade, t.desc
		}
	}
	return "F", "Not sourceable by AI assistants"
}
