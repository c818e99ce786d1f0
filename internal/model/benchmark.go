package model

// MatchupOutcome classifies one question head-to-head against a competitor,
// from our perspective.
type MatchupOutcome string

const (
	OutcomeWin        MatchupOutcome = "win"
	OutcomeLoss       MatchupOutcome = "loss"
	OutcomeTie        MatchupOutcome = "tie"
	OutcomeMutualWin  MatchupOutcome = "mutual_win"
	OutcomeMutualLoss MatchupOutcome = "mutual_loss"
)

// CompetitorResult is one competitor's aggregate visibility plus the
// per-question head-to-head outcomes against us.
type CompetitorResult struct {
	Name              string                    `json:"name"`
	Domain            string                    `json:"domain"`
	MentionRate       float64                   `json:"mention_rate"`
	CitationRate      float64                   `json:"citation_rate"`
	Wins              int                       `json:"wins"`
	Losses            int                       `json:"losses"`
	Ties              int                       `json:"ties"`
	WinRate           float64                   `json:"win_rate"`
	MentionAdvantage  float64                   `json:"mention_advantage"`
	CitationAdvantage float64                   `json:"citation_advantage"`
	Outcomes          map[string]MatchupOutcome `json:"outcomes"`
}

// QuestionBenchmark is the cross-competitor view of a single question.
type QuestionBenchmark struct {
	QuestionID string                    `json:"question_id"`
	Question   string                    `json:"question"`
	YouVisible bool                      `json:"you_visible"`
	YouCited   bool                      `json:"you_cited"`
	Outcomes   map[string]MatchupOutcome `json:"outcomes"`
}

// BenchmarkResult ranks the site against its competitors.
type BenchmarkResult struct {
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

// PredictionOutcome classifies simulation-vs-observation agreement for one
// question.
type PredictionOutcome string

const (
	PredictionCorrect     PredictionOutcome = "correct"
	PredictionOptimistic  PredictionOutcome = "optimistic"
	PredictionPessimistic PredictionOutcome = "pessimistic"
	PredictionUnknown     PredictionOutcome = "unknown"
)

// QuestionComparison aligns one question's simulated and observed outcomes.
type QuestionComparison struct {
	QuestionID  string            `json:"question_id"`
	SimPositive bool              `json:"sim_positive"`
	ObsPositive bool              `json:"obs_positive"`
	Outcome     PredictionOutcome `json:"outcome"`
}

// ComparisonSummary aggregates simulation-vs-observation alignment.
type ComparisonSummary struct {
	Comparisons            []QuestionComparison `json:"comparisons"`
	TotalCompared          int                  `json:"total_compared"`
	Correct                int                  `json:"correct"`
	Optimistic             int                  `json:"optimistic"`
	Pessimistic            int                  `json:"pessimistic"`
	Unknown                int                  `json:"unknown"`
	PredictionAccuracy     float64              `json:"prediction_accuracy"`
	ObservedMentionRate    float64              `json:"observed_mention_rate"`
	ObservedCitationRate   float64              `json:"observed_citation_rate"`
	SimulatedPositiveRate  float64              `json:"simulated_positive_rate"`
}

// DivergenceLevel grades the sim-vs-observed gap.
type DivergenceLevel string

const (
	DivergenceNone   DivergenceLevel = "none"
	DivergenceLow    DivergenceLevel = "low"
	DivergenceMedium DivergenceLevel = "medium"
	DivergenceHigh   DivergenceLevel = "high"
)
