// Package benchmark ranks a site's AI visibility against competitors using
// observation batches collected for the same question set.
package benchmark

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/model"
)

// Competitor pairs a competitor's identity with its observation batch.
type Competitor struct {
	Name   string
	Domain string
	Batch  *model.ObservationBatch
}

// Benchmarker compares observation batches question by question.
type Benchmarker struct{}

// NewBenchmarker creates a benchmarker.
func NewBenchmarker() *Benchmarker {
	return &Benchmarker{}
}

// visibility is one side's standing on a single question.
type visibility struct {
	visible bool
	cited   bool
}

func visibilityOf(r model.ObservationResult) visibility {
	if r.Failed {
		return visibility{}
	}
	return visibility{
		visible: r.Parsed.CompanyMentioned || r.Parsed.URLCited,
		cited:   r.Parsed.URLCited || len(r.Parsed.CompanyURLs) > 0,
	}
}

// classify grades one question head-to-head from our perspective. A citation
// beats a mere mention; equal standing with both visible is a mutual win.
func classify(ours, theirs visibility) model.MatchupOutcome {
	switch {
	case ours.visible && theirs.visible:
		switch {
		case ours.cited && !theirs.cited:
			return model.OutcomeWin
		case theirs.cited && !ours.cited:
			return model.OutcomeLoss
		default:
			return model.OutcomeMutualWin
		}
	case ours.visible:
		return model.OutcomeWin
	case theirs.visible:
		return model.OutcomeLoss
	default:
		return model.OutcomeMutualLoss
	}
}

// Run benchmarks our observation batch against every competitor.
func (b *Benchmarker) Run(ours *model.ObservationBatch, competitors []Competitor) (*model.BenchmarkResult, error) {
	if ours == nil || len(ours.Results) == 0 {
		return nil, eris.New("benchmark: our observation batch has no results")
	}
	if ours.Cancelled {
		return nil, eris.New("benchmark: refusing cancelled observation batch")
	}
	if len(competitors) == 0 {
		return nil, eris.New("benchmark: no competitors")
	}

	result := &model.BenchmarkResult{
		TotalCompetitors: len(competitors),
		TotalQuestions:   len(ours.Results),
	}

	var ourMentions, ourCitations int
	questionBenchmarks := make([]model.QuestionBenchmark, 0, len(ours.Results))
	for _, r := range ours.Results {
		v := visibilityOf(r)
		if v.visible {
			ourMentions++
		}
		if v.cited {
			ourCitations++
		}
		questionBenchmarks = append(questionBenchmarks, model.QuestionBenchmark{
			QuestionID: r.QuestionID,
			YouVisible: v.visible,
			YouCited:   v.cited,
			Outcomes:   make(map[string]model.MatchupOutcome),
		})
	}
	result.YourMentionRate = rate(ourMentions, len(ours.Results))
	result.YourCitationRate = rate(ourCitations, len(ours.Results))

	var totalMatchups int
	var compMentionRates, compCitationRates float64
	for _, comp := range competitors {
		cr := b.compareCompetitor(ours, comp, questionBenchmarks, result)
		compMentionRates += cr.MentionRate
		compCitationRates += cr.CitationRate
		totalMatchups += len(cr.Outcomes)
		result.Competitors = append(result.Competitors, cr)
	}
	result.AvgCompetitorMentionRate = compMentionRates / float64(len(competitors))
	result.AvgCompetitorCitationRate = compCitationRates / float64(len(competitors))
	if totalMatchups > 0 {
		result.OverallWinRate = float64(result.OverallWins) / float64(totalMatchups)
	}

	result.QuestionBenchmarks = questionBenchmarks
	result.UniqueWins, result.UniqueLosses = uniqueOutcomes(questionBenchmarks, len(competitors))
	result.Insights = b.insights(result)
	result.Recommendations = b.recommendations(result)

	return result, nil
}

func (b *Benchmarker) compareCompetitor(ours *model.ObservationBatch, comp Competitor, questionBenchmarks []model.QuestionBenchmark, overall *model.BenchmarkResult) model.CompetitorResult {
	cr := model.CompetitorResult{
		Name:     comp.Name,
		Domain:   comp.Domain,
		Outcomes: make(map[string]model.MatchupOutcome),
	}
	if comp.Batch == nil {
		return cr
	}

	var theirMentions, theirCitations, compared int
	for i, r := range ours.Results {
		theirResult, ok := comp.Batch.ResultByQuestionID(r.QuestionID)
		if !ok {
			continue
		}
		compared++
		theirs := visibilityOf(theirResult)
		if theirs.visible {
			theirMentions++
		}
		if theirs.cited {
			theirCitations++
		}

		outcome := classify(visibilityOf(r), theirs)
		cr.Outcomes[r.QuestionID] = outcome
		questionBenchmarks[i].Outcomes[comp.Name] = outcome

		switch outcome {
		case model.OutcomeWin:
			cr.Wins++
			overall.OverallWins++
		case model.OutcomeLoss:
			cr.Losses++
			overall.OverallLosses++
		default:
			cr.Ties++
			overall.OverallTies++
		}
	}

	if compared > 0 {
		cr.MentionRate = rate(theirMentions, compared)
		cr.CitationRate = rate(theirCitations, compared)
		cr.WinRate = float64(cr.Wins) / float64(compared)
	}
	cr.MentionAdvantage = overall.YourMentionRate - cr.MentionRate
	cr.CitationAdvantage = overall.YourCitationRate - cr.CitationRate
	return cr
}

// uniqueOutcomes finds questions we win (or lose) against every competitor.
func uniqueOutcomes(questionBenchmarks []model.QuestionBenchmark, totalCompetitors int) (wins, losses []string) {
	for _, qb := range questionBenchmarks {
		if len(qb.Outcomes) < totalCompetitors {
			continue
		}
		allWins, allLosses := true, true
		for _, outcome := range qb.Outcomes {
			if outcome != model.OutcomeWin {
				allWins = false
			}
			if outcome != model.OutcomeLoss {
				allLosses = false
			}
		}
		if allWins {
			wins = append(wins, qb.QuestionID)
		}
		if allLosses {
			losses = append(losses, qb.QuestionID)
		}
	}
	sort.Strings(wins)
	sort.Strings(losses)
	return wins, losses
}

func (b *Benchmarker) insights(r *model.BenchmarkResult) []string {
	var insights []string
	switch {
	case r.YourMentionRate > r.AvgCompetitorMentionRate:
		insights = append(insights, fmt.Sprintf(
			"AI assistants mention you in %.0f%% of answers, above the competitor average of %.0f%%",
			r.YourMentionRate*100, r.AvgCompetitorMentionRate*100))
	case r.YourMentionRate < r.AvgCompetitorMentionRate:
		insights = append(insights, fmt.Sprintf(
			"AI assistants mention you in %.0f%% of answers, below the competitor average of %.0f%%",
			r.YourMentionRate*100, r.AvgCompetitorMentionRate*100))
	}
	if len(r.UniqueWins) > 0 {
		insights = append(insights, fmt.Sprintf(
			"you are the only visible company on %d question(s)", len(r.UniqueWins)))
	}
	if len(r.UniqueLosses) > 0 {
		insights = append(insights, fmt.Sprintf(
			"every competitor beats you on %d question(s)", len(r.UniqueLosses)))
	}
	return insights
}

func (b *Benchmarker) recommendations(r *model.BenchmarkResult) []string {
	var recs []string
	if r.YourCitationRate < r.AvgCompetitorCitationRate {
		recs = append(recs,
			"competitors get cited more often; publish quotable, self-contained statements of key facts")
	}
	if len(r.UniqueLosses) > 0 {
		recs = append(recs,
			"prioritize the questions every competitor wins; those topics are missing or weak on your site")
	}
	if r.OverallWinRate < 0.5 {
		recs = append(recs,
			"your overall win rate is below half; review the fix plan before re-running the benchmark")
	}
	return recs
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
