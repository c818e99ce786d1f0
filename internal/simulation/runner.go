// Package simulation answers the core question of an audit: could each
// evaluation question be answered from the site's indexed content?
package simulation

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/retrieval"
)

// Options controls the simulation runner. Zero values fall back to the
// documented defaults.
type Options struct {
	ChunksPerQuestion            int
	MinRelevanceScore            float64
	FullyAnswerableThreshold     float64
	PartiallyAnswerableThreshold float64
	SignalMatchThreshold         float64
	UseFuzzyMatching             bool
	MaxContentLength             int
	RelevanceWeight              float64
	SignalWeight                 float64
	ConfidenceWeight             float64
}

// DefaultOptions returns the standard simulation configuration.
func DefaultOptions() Options {
	return Options{
		ChunksPerQuestion:            5,
		MinRelevanceScore:            0.3,
		FullyAnswerableThreshold:     0.7,
		PartiallyAnswerableThreshold: 0.3,
		SignalMatchThreshold:         0.5,
		UseFuzzyMatching:             true,
		MaxContentLength:             2000,
		RelevanceWeight:              0.4,
		SignalWeight:                 0.4,
		ConfidenceWeight:             0.2,
	}
}

// OptionsFromConfig maps the config tree onto runner options.
func OptionsFromConfig(cfg config.SimulationConfig) Options {
	opts := DefaultOptions()
	if cfg.ChunksPerQuestion > 0 {
		opts.ChunksPerQuestion = cfg.ChunksPerQuestion
	}
	if cfg.MinRelevanceScore > 0 {
		opts.MinRelevanceScore = cfg.MinRelevanceScore
	}
	if cfg.FullyAnswerableThreshold > 0 {
		opts.FullyAnswerableThreshold = cfg.FullyAnswerableThreshold
	}
	if cfg.PartiallyAnswerableThreshold > 0 {
		opts.PartiallyAnswerableThreshold = cfg.PartiallyAnswerableThreshold
	}
	if cfg.SignalMatchThreshold > 0 {
		opts.SignalMatchThreshold = cfg.SignalMatchThreshold
	}
	opts.UseFuzzyMatching = cfg.UseFuzzyMatching
	if cfg.MaxContentLength > 0 {
		opts.MaxContentLength = cfg.MaxContentLength
	}
	if cfg.RelevanceWeight > 0 {
		opts.RelevanceWeight = cfg.RelevanceWeight
	}
	if cfg.SignalWeight > 0 {
		opts.SignalWeight = cfg.SignalWeight
	}
	if cfg.ConfidenceWeight > 0 {
		opts.ConfidenceWeight = cfg.ConfidenceWeight
	}
	return opts
}

// Runner simulates answerability of questions against a populated index.
type Runner struct {
	opts Options
}

// NewRunner creates a simulation runner.
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run processes questions in input order and returns the aggregated
// SimulationResult. QuestionResults appear in input order. An empty index is
// not an error: every question comes back not-answerable.
//
// Cancellation is checked at each question boundary; on cancellation the
// partial result is returned marked cancelled along with model.ErrCancelled.
func (r *Runner) Run(ctx context.Context, index *retrieval.Index, siteID, runID, companyName string, questions []model.Question) (*model.SimulationResult, error) {
	if companyName == "" {
		return nil, eris.New("simulation: company name is required")
	}
	if len(questions) == 0 {
		return nil, eris.New("simulation: question set is empty")
	}

	start := time.Now()
	result := &model.SimulationResult{
		SiteID:      siteID,
		RunID:       runID,
		CompanyName: companyName,
	}

	for _, q := range questions {
		if ctx.Err() != nil {
			result.Cancelled = true
			r.aggregate(result)
			result.DurationMs = time.Since(start).Milliseconds()
			return result, model.ErrCancelled
		}
		qr := r.simulateQuestion(ctx, index, companyName, q)
		result.Results = append(result.Results, qr)
	}

	r.aggregate(result)
	result.DurationMs = time.Since(start).Milliseconds()

	zap.L().Info("simulation: run complete",
		zap.String("run_id", runID),
		zap.Int("questions", result.TotalQuestions),
		zap.Float64("overall_score", result.OverallScore),
		zap.Float64("coverage", result.CoveragePercent),
	)

	return result, nil
}

func (r *Runner) simulateQuestion(ctx context.Context, index *retrieval.Index, companyName string, q model.Question) model.QuestionResult {
	start := time.Now()
	rendered := q.Render(companyName)

	qr := model.QuestionResult{
		Question:     q,
		RenderedText: rendered,
		SignalsTotal: len(q.ExpectedSignals),
	}

	search := index.Search(ctx, rendered, r.opts.ChunksPerQuestion, r.opts.MinRelevanceScore)
	qr.Context = buildContext(search.Results, r.opts.MaxContentLength)

	if qr.Context.Count == 0 {
		// Nothing retrieved: we are certain there is nothing to answer with.
		qr.Answerability = model.AnswerabilityNot
		qr.Confidence = model.ConfidenceHigh
		qr.Score = 0
		qr.DurationMs = time.Since(start).Milliseconds()
		return qr
	}

	for _, sig := range q.ExpectedSignals {
		m := matchSignal(sig, qr.Context.ContentPreview, r.opts.UseFuzzyMatching, r.opts.SignalMatchThreshold)
		if m.Found {
			qr.SignalsFound++
		}
		qr.SignalMatches = append(qr.SignalMatches, m)
	}

	relevance := retrieval.Normalize(qr.Context.AvgScore)
	maxRelevance := retrieval.Normalize(qr.Context.MaxScore)
	signalRatio := 0.5
	if qr.SignalsTotal > 0 {
		signalRatio = float64(qr.SignalsFound) / float64(qr.SignalsTotal)
	}

	switch {
	case maxRelevance >= 0.7 && signalRatio >= 0.7:
		qr.Confidence = model.ConfidenceHigh
	case maxRelevance >= 0.4 || signalRatio >= 0.4:
		qr.Confidence = model.ConfidenceMedium
	default:
		qr.Confidence = model.ConfidenceLow
	}
	confNum := model.ConfidenceNumeric(qr.Confidence)

	qr.Score = r.opts.RelevanceWeight*relevance +
		r.opts.SignalWeight*signalRatio +
		r.opts.ConfidenceWeight*confNum
	if qr.Score > 1 {
		qr.Score = 1
	}

	switch {
	case qr.Score >= r.opts.FullyAnswerableThreshold:
		qr.Answerability = model.AnswerabilityFully
	case qr.Score >= r.opts.PartiallyAnswerableThreshold:
		qr.Answerability = model.AnswerabilityPartially
	default:
		qr.Answerability = model.AnswerabilityNot
	}

	qr.DurationMs = time.Since(start).Milliseconds()
	return qr
}

// buildContext assembles the RetrievedContext for one question.
func buildContext(results []model.RetrievalResult, maxContentLength int) model.RetrievedContext {
	rc := model.RetrievedContext{
		Results: results,
		Count:   len(results),
	}
	if len(results) == 0 {
		return rc
	}

	var sum float64
	seen := make(map[string]bool)
	var preview strings.Builder
	for _, res := range results {
		sum += res.CombinedScore
		if res.CombinedScore > rc.MaxScore {
			rc.MaxScore = res.CombinedScore
		}
		if res.URL != "" && !seen[res.URL] {
			seen[res.URL] = true
			rc.UniqueSources = append(rc.UniqueSources, res.URL)
		}
		if preview.Len() < maxContentLength {
			preview.WriteString(res.Content)
			preview.WriteString("\n")
		}
	}
	rc.AvgScore = sum / float64(len(results))

	p := preview.String()
	if len(p) > maxContentLength {
		p = p[:maxContentLength]
	}
	rc.ContentPreview = p
	return rc
}

// aggregate fills the counters and 0-100 aggregate scores.
func (r *Runner) aggregate(result *model.SimulationResult) {
	result.TotalQuestions = len(result.Results)
	result.CategoryScores = make(map[model.Category]float64)
	result.DifficultyScores = make(map[model.Difficulty]float64)
	if result.TotalQuestions == 0 {
		return
	}

	catSums := make(map[model.Category]float64)
	catCounts := make(map[model.Category]int)
	diffSums := make(map[model.Difficulty]float64)
	diffCounts := make(map[model.Difficulty]int)

	var weightedSum, weightTotal, confSum float64
	for _, qr := range result.Results {
		switch qr.Answerability {
		case model.AnswerabilityFully:
			result.Answered++
		case model.AnswerabilityPartially:
			result.Partial++
		default:
			result.Unanswered++
		}

		catSums[qr.Question.Category] += qr.Score
		catCounts[qr.Question.Category]++
		diffSums[qr.Question.Difficulty] += qr.Score
		diffCounts[qr.Question.Difficulty]++

		w := qr.Question.Weight
		if w <= 0 {
			w = 1
		}
		weightedSum += w * qr.Score
		weightTotal += w
		confSum += model.ConfidenceNumeric(qr.Confidence) * 100
	}

	for cat, sum := range catSums {
		result.CategoryScores[cat] = sum / float64(catCounts[cat]) * 100
	}
	for d, sum := range diffSums {
		result.DifficultyScores[d] = sum / float64(diffCounts[d]) * 100
	}

	result.OverallScore = weightedSum / weightTotal * 100
	result.CoveragePercent = float64(result.Answered+result.Partial) / float64(result.TotalQuestions) * 100
	result.AvgConfidence = confSum / float64(result.TotalQuestions)
}
