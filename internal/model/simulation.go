package model

// Answerability is the categorical outcome of simulating one question.
type Answerability string

const (
	AnswerabilityFully         Answerability = "fully"
	AnswerabilityPartially     Answerability = "partially"
	AnswerabilityNot           Answerability = "not"
	AnswerabilityContradictory Answerability = "contradictory"
)

// ConfidenceLevel is the coarse trust scale attached to a QuestionResult.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceNumeric maps a confidence level to its numeric weight used by
// the scoring blend.
func ConfidenceNumeric(c ConfidenceLevel) float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.6
	default:
		return 0.3
	}
}

// QuestionResult is the simulation outcome for a single question.
type QuestionResult struct {
	Question      Question         `json:"question"`
	RenderedText  string           `json:"rendered_text"`
	Context       RetrievedContext `json:"context"`
	Answerability Answerability    `json:"answerability"`
	Confidence    ConfidenceLevel  `json:"confidence"`
	Score         float64          `json:"score"`
	SignalsFound  int              `json:"signals_found"`
	SignalsTotal  int              `json:"signals_total"`
	SignalMatches []SignalMatch    `json:"signal_matches"`
	DurationMs    int64            `json:"duration_ms"`
}

// SimulationResult aggregates the per-question outcomes of one run.
// Category and difficulty scores are 0-100; OverallScore is the weighted
// 0-100 total.
type SimulationResult struct {
	SiteID           string             `json:"site_id"`
	RunID            string             `json:"run_id"`
	CompanyName      string             `json:"company_name"`
	Results          []QuestionResult   `json:"results"`
	TotalQuestions   int                `json:"total_questions"`
	Answered         int                `json:"answered"`
	Partial          int                `json:"partial"`
	Unanswered       int                `json:"unanswered"`
	CategoryScores   map[Category]float64   `json:"category_scores"`
	DifficultyScores map[Difficulty]float64 `json:"difficulty_scores"`
	OverallScore     float64            `json:"overall_score"`
	CoveragePercent  float64            `json:"coverage_percent"`
	AvgConfidence    float64            `json:"avg_confidence"`
	DurationMs       int64              `json:"duration_ms"`
	Cancelled        bool               `json:"cancelled,omitempty"`
}

// ResultByQuestionID returns the QuestionResult for the given question id.
func (s *SimulationResult) ResultByQuestionID(id string) (QuestionResult, bool) {
	for _, r := range s.Results {
		if r.Question.ID == id {
			return r, true
		}
	}
	return QuestionResult{}, false
}
