package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// ReportVersion is the current FullReport envelope version. Readers must
// refuse any other value.
const ReportVersion = "1.1"

// ReportMetadata identifies a report and records what it covers.
type ReportMetadata struct {
	ReportID           string     `json:"report_id"`
	SiteID             string     `json:"site_id"`
	RunID              string     `json:"run_id"`
	Version            string     `json:"version"`
	CompanyName        string     `json:"company_name"`
	Domain             string     `json:"domain"`
	CreatedAt          time.Time  `json:"created_at"`
	RunStartedAt       *time.Time `json:"run_started_at,omitempty"`
	RunCompletedAt     *time.Time `json:"run_completed_at,omitempty"`
	RunDurationSeconds float64    `json:"run_duration_seconds,omitempty"`
	IncludeObservation bool       `json:"include_observation"`
	IncludeBenchmark   bool       `json:"include_benchmark"`
	Limitations        []string   `json:"limitations"`
	Notes              []string   `json:"notes"`
}

// CriterionScore is one scored rubric criterion in the report.
type CriterionScore struct {
	Name      string  `json:"name"`
	Raw       float64 `json:"raw"`
	Weight    float64 `json:"weight"`
	MaxPoints float64 `json:"max_points"`
	Points    float64 `json:"points"`
}

// ScoreSection is the scoring portion of the report.
type ScoreSection struct {
	TotalScore          float64              `json:"total_score"`
	Grade               string               `json:"grade"`
	GradeDescription    string               `json:"grade_description"`
	CategoryScores      map[Category]float64 `json:"category_scores"`
	CriterionScores     []CriterionScore     `json:"criterion_scores"`
	TotalQuestions      int                  `json:"total_questions"`
	QuestionsAnswered   int                  `json:"questions_answered"`
	QuestionsPartial    int                  `json:"questions_partial"`
	QuestionsUnanswered int                  `json:"questions_unanswered"`
	CoveragePercentage  float64              `json:"coverage_percentage"`
	CalculationSummary  []string             `json:"calculation_summary"`
	FormulaUsed         string               `json:"formula_used"`
	RubricVersion       string               `json:"rubric_version"`
}

// FixImpactRange is the per-fix impact triple carried on the wire.
type FixImpactRange struct {
	Min      float64 `json:"min"`
	Expected float64 `json:"expected"`
	Max      float64 `json:"max"`
}

// ReportFix is one fix entry in the report.
type ReportFix struct {
	ID                 string         `json:"id"`
	ReasonCode         ReasonCode     `json:"reason_code"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Scaffold           string         `json:"scaffold"`
	Priority           int            `json:"priority"`
	EstimatedImpact    FixImpactRange `json:"estimated_impact"`
	Effort             EffortLevel    `json:"effort_level"`
	TargetURL          string         `json:"target_url,omitempty"`
	AffectedQuestions  []string       `json:"affected_questions"`
	AffectedCategories []Category     `json:"affected_categories"`
}

// FixSection folds the FixPlan into the report.
type FixSection struct {
	TotalFixes           int         `json:"total_fixes"`
	CriticalFixes        int         `json:"critical_fixes"`
	HighPriorityFixes    int         `json:"high_priority_fixes"`
	EstimatedTotalImpact float64     `json:"estimated_total_impact"`
	Fixes                []ReportFix `json:"fixes"`
	CategoriesAddressed  []Category  `json:"categories_addressed"`
	QuestionsAddressed   int         `json:"questions_addressed"`
}

// ObservationSection summarizes real-model behavior.
type ObservationSection struct {
	CompanyMentionRate     float64             `json:"company_mention_rate"`
	DomainMentionRate      float64             `json:"domain_mention_rate"`
	CitationRate           float64             `json:"citation_rate"`
	TotalQuestions         int                 `json:"total_questions"`
	QuestionsWithMention   int                 `json:"questions_with_mention"`
	QuestionsWithCitation  int                 `json:"questions_with_citation"`
	Provider               string              `json:"provider"`
	Model                  string              `json:"model"`
	QuestionResults        []ObservationResult `json:"question_results"`
	PredictionAccuracy     float64             `json:"prediction_accuracy"`
	OptimisticPredictions  int                 `json:"optimistic_predictions"`
	PessimisticPredictions int                 `json:"pessimistic_predictions"`
	CorrectPredictions     int                 `json:"correct_predictions"`
	Insights               []string            `json:"insights"`
	Recommendations        []string            `json:"recommendations"`
}

// BenchmarkSection is the competitor comparison portion of the report.
type BenchmarkSection struct {
	TotalCompetitors          int                 `json:"total_competitors"`
	TotalQuestions            int                 `json:"total_questions"`
	YourMentionRate           float64             `json:"your_mention_rate"`
	YourCitationRate          float64             `json:"your_citation_rate"`
	AvgCompetitorMentionRate  float64             `json:"avg_competitor_mention_rate"`
	AvgCompetitorCitationRate float64             `json:"avg_competitor_citation_rate"`
	OverallWins               int                 `json:"overall_wins"`
	OverallLosses             int                 `json:"overall_losses"`
	OverallTies               int                 `json:"overall_ties"`
	OverallWinRate            float64             `json:"overall_win_rate"`
	UniqueWins                []string            `json:"unique_wins"`
	UniqueLosses              []string            `json:"unique_losses"`
	Competitors               []CompetitorResult  `json:"competitors"`
	QuestionBenchmarks        []QuestionBenchmark `json:"question_benchmarks"`
	Insights                  []string            `json:"insights"`
	Recommendations           []string            `json:"recommendations"`
}

// DivergenceSection reports the simulation-vs-observation gap.
type DivergenceSection struct {
	Level              DivergenceLevel `json:"level"`
	MentionRateDelta   float64         `json:"mention_rate_delta"`
	PredictionAccuracy float64         `json:"prediction_accuracy"`
	ShouldRefresh      bool            `json:"should_refresh"`
	RefreshReasons     []string        `json:"refresh_reasons"`
	OptimismBias       float64         `json:"optimism_bias"`
	PessimismBias      float64         `json:"pessimism_bias"`
	CalibrationNotes   []string        `json:"calibration_notes"`
}

// FullReport is the versioned envelope combining every pipeline output.
// It is the authoritative wire format.
type FullReport struct {
	Metadata    ReportMetadata      `json:"metadata"`
	Score       ScoreSection        `json:"score"`
	Fixes       FixSection          `json:"fixes"`
	Observation *ObservationSection `json:"observation,omitempty"`
	Benchmark   *BenchmarkSection   `json:"benchmark,omitempty"`
	Divergence  *DivergenceSection  `json:"divergence,omitempty"`

	// Denormalized quick-access fields for external storage.
	ScoreConservative int      `json:"score_conservative"`
	ScoreTypical      int      `json:"score_typical"`
	ScoreGenerous     int      `json:"score_generous"`
	MentionRate       *float64 `json:"mention_rate,omitempty"`
}

// MarshalReport serializes a FullReport to JSON.
func MarshalReport(r *FullReport) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal report")
	}
	return data, nil
}

// UnmarshalReport deserializes a FullReport, refusing unknown versions.
func UnmarshalReport(data []byte) (*FullReport, error) {
	var r FullReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "model: unmarshal report")
	}
	if r.Metadata.Version != ReportVersion {
		return nil, eris.Errorf("model: unsupported report version %q (want %q)",
			r.Metadata.Version, ReportVersion)
	}
	return &r, nil
}

// Round2 rounds a raw float to 2 decimals, the serialization rule for
// scores and points.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds a rate to 3 decimals, the serialization rule for rates.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
