// Package fixes diagnoses why questions failed simulation and produces an
// ordered, impact-estimated fix plan.
package fixes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/retrieval"
)

// Options controls fix generation.
type Options struct {
	LowScoreThreshold    float64
	PartialThreshold     float64
	MaxFixes             int
	MaxFixesPerCategory  int
	IncludeExamples      bool
	ExtractSiteContent   bool
	MaxExtractedSnippets int
}

// DefaultOptions returns the standard fix generation configuration.
func DefaultOptions() Options {
	return Options{
		LowScoreThreshold:    0.5,
		PartialThreshold:     0.7,
		MaxFixes:             10,
		MaxFixesPerCategory:  3,
		IncludeExamples:      true,
		ExtractSiteContent:   true,
		MaxExtractedSnippets: 3,
	}
}

// OptionsFromConfig maps the config tree onto generator options.
func OptionsFromConfig(cfg config.FixesConfig) Options {
	opts := DefaultOptions()
	if cfg.LowScoreThreshold > 0 {
		opts.LowScoreThreshold = cfg.LowScoreThreshold
	}
	if cfg.PartialThreshold > 0 {
		opts.PartialThreshold = cfg.PartialThreshold
	}
	if cfg.MaxFixes > 0 {
		opts.MaxFixes = cfg.MaxFixes
	}
	if cfg.MaxFixesPerCategory > 0 {
		opts.MaxFixesPerCategory = cfg.MaxFixesPerCategory
	}
	opts.IncludeExamples = cfg.IncludeExamples
	opts.ExtractSiteContent = cfg.ExtractSiteContent
	if cfg.MaxExtractedSnippets > 0 {
		opts.MaxExtractedSnippets = cfg.MaxExtractedSnippets
	}
	return opts
}

// Generator builds fix plans from simulation results.
type Generator struct {
	opts Options
}

// NewGenerator creates a fix generator.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate diagnoses weak questions and emits an ordered FixPlan.
// siteContent optionally maps URL to page text for evidence extraction.
// Cancellation is checked at each fix boundary.
func (g *Generator) Generate(ctx context.Context, sim *model.SimulationResult, siteContent map[string]string) (*model.FixPlan, error) {
	if sim == nil || len(sim.Results) == 0 {
		return nil, eris.New("fixes: simulation result has no questions")
	}
	if sim.Cancelled {
		return nil, eris.New("fixes: refusing cancelled simulation result")
	}

	// Group problem questions by reason code, preserving input order.
	grouped := make(map[model.ReasonCode][]model.QuestionResult)
	var codeOrder []model.ReasonCode
	for _, qr := range sim.Results {
		if !g.isProblem(qr) {
			continue
		}
		for _, code := range diagnose(qr) {
			if _, seen := grouped[code]; !seen {
				codeOrder = append(codeOrder, code)
			}
			grouped[code] = append(grouped[code], qr)
		}
	}

	plan := &model.FixPlan{}
	for _, code := range codeOrder {
		if ctx.Err() != nil {
			return nil, model.ErrCancelled
		}
		fix, err := g.buildFix(code, grouped[code], sim.CompanyName, siteContent)
		if err != nil {
			return nil, err
		}
		plan.Fixes = append(plan.Fixes, fix)
	}

	g.rank(plan)
	g.finalize(plan)

	zap.L().Info("fixes: plan generated",
		zap.String("run_id", sim.RunID),
		zap.Int("fixes", plan.TotalFixes),
		zap.Float64("estimated_total_impact", plan.EstimatedTotalImpact),
	)

	return plan, nil
}

// isProblem applies the problem-identification rule.
func (g *Generator) isProblem(qr model.QuestionResult) bool {
	switch qr.Answerability {
	case model.AnswerabilityNot, model.AnswerabilityContradictory:
		return true
	case model.AnswerabilityPartially:
		return qr.Score < g.opts.PartialThreshold
	case model.AnswerabilityFully:
		return qr.Score < g.opts.LowScoreThreshold
	}
	return false
}

// diagnose returns up to two reason codes for a problem question, in
// precedence order.
func diagnose(qr model.QuestionResult) []model.ReasonCode {
	var codes []model.ReasonCode
	add := func(c model.ReasonCode) {
		for _, have := range codes {
			if have == c {
				return
			}
		}
		if len(codes) < 2 {
			codes = append(codes, c)
		}
	}

	if qr.Answerability == model.AnswerabilityContradictory {
		add(model.ReasonInconsistent)
	}

	if qr.Context.Count == 0 {
		add(missingCodeFor(qr.Question.Category))
		return codes
	}

	avgRelevance := retrieval.Normalize(qr.Context.AvgScore)
	if avgRelevance < 0.4 {
		add(model.ReasonBuriedAnswer)
	}

	coverage := 1.0
	if qr.SignalsTotal > 0 {
		coverage = float64(qr.SignalsFound) / float64(qr.SignalsTotal)
	}
	switch {
	case coverage < 0.3:
		add(keywordMissingCode(qr))
	case coverage < 0.6:
		add(model.ReasonFragmentedInfo)
	}

	if len(codes) == 0 && qr.Confidence == model.ConfidenceLow {
		add(model.ReasonVagueLanguage)
	}
	if len(codes) == 0 {
		add(model.ReasonBuriedAnswer)
	}
	return codes
}

// missingCodeFor maps a category to its missing-content reason code.
func missingCodeFor(cat model.Category) model.ReasonCode {
	switch cat {
	case model.CategoryOfferings:
		return model.ReasonMissingFeatures
	case model.CategoryContact:
		return model.ReasonMissingContact
	case model.CategoryTrust:
		return model.ReasonMissingSocialProof
	case model.CategoryIdentity:
		return model.ReasonMissingDefinition
	default:
		return model.ReasonNoDedicatedPage
	}
}

// keywordMissingCode picks the missing code for low signal coverage based on
// question keywords, then category.
func keywordMissingCode(qr model.QuestionResult) model.ReasonCode {
	text := strings.ToLower(qr.RenderedText)
	switch {
	case strings.Contains(text, "pricing"), strings.Contains(text, "cost"), strings.Contains(text, "price"):
		return model.ReasonMissingPricing
	case strings.Contains(text, "contact"), strings.Contains(text, "reach"):
		return model.ReasonMissingContact
	case strings.Contains(text, "located"), strings.Contains(text, "location"), strings.Contains(text, "where"):
		return model.ReasonMissingLocation
	case qr.Question.Category == model.CategoryTrust:
		return model.ReasonTrustGap
	default:
		return model.ReasonMissingDefinition
	}
}

// buildFix materializes one fix from the template for a reason code.
func (g *Generator) buildFix(code model.ReasonCode, questions []model.QuestionResult, companyName string, siteContent map[string]string) (model.Fix, error) {
	tmpl, ok := TemplateFor(code)
	if !ok {
		return model.Fix{}, eris.Errorf("fixes: no template for reason code %s", code)
	}

	var ids []string
	var categories []model.Category
	seenCat := make(map[model.Category]bool)
	var weightSum float64
	for _, qr := range questions {
		ids = append(ids, qr.Question.ID)
		if !seenCat[qr.Question.Category] {
			seenCat[qr.Question.Category] = true
			categories = append(categories, qr.Question.Category)
		}
		w := qr.Question.Weight
		if w <= 0 {
			w = 1
		}
		weightSum += w
	}
	avgWeight := weightSum / float64(len(questions))

	scaffold := strings.ReplaceAll(tmpl.Scaffold, "[COMPANY_NAME]", companyName)

	var desc strings.Builder
	fmt.Fprintf(&desc, "%s content addressing %d question(s): %s.",
		tmpl.ActionVerb, len(questions), joinQuestions(questions))
	for _, snip := range g.evidenceSnippets(questions, siteContent) {
		fmt.Fprintf(&desc, "\nCurrent content: %q", snip)
	}
	if g.opts.IncludeExamples {
		for _, ex := range tmpl.Examples {
			fmt.Fprintf(&desc, "\nExample: %s", ex)
		}
	}

	questionFactor := 1 + 0.1*float64(len(questions)-1)
	if questionFactor > 1.5 {
		questionFactor = 1.5
	}
	impact := tmpl.BaseImpact * questionFactor * avgWeight
	if impact < 0 {
		impact = 0
	}
	if impact > 0.5 {
		impact = 0.5
	}

	return model.Fix{
		ID:                 uuid.NewString(),
		ReasonCode:         code,
		Title:              tmpl.Title,
		Description:        desc.String(),
		Scaffold:           scaffold,
		Priority:           tmpl.Priority,
		EstimatedImpact:    impact,
		Effort:             tmpl.Effort,
		TargetURL:          targetURL(code, categories),
		AffectedQuestions:  ids,
		AffectedCategories: categories,
	}, nil
}

// evidenceSnippets pulls short excerpts from the top-scoring chunk of each
// grouped question, preferring full page text when available.
func (g *Generator) evidenceSnippets(questions []model.QuestionResult, siteContent map[string]string) []string {
	if !g.opts.ExtractSiteContent {
		return nil
	}
	var snippets []string
	for _, qr := range questions {
		if len(snippets) == g.opts.MaxExtractedSnippets {
			break
		}
		if len(qr.Context.Results) == 0 {
			continue
		}
		top := qr.Context.Results[0]
		text := top.Content
		if page, ok := siteContent[top.URL]; ok && page != "" {
			text = page
		}
		snippets = append(snippets, truncate(text, 160))
	}
	return snippets
}

func joinQuestions(questions []model.QuestionResult) string {
	var parts []string
	for _, qr := range questions {
		parts = append(parts, qr.RenderedText)
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// rank orders fixes by ascending priority, ties broken by descending
// estimated impact, then reason code for determinism, and applies the
// per-category and total caps.
func (g *Generator) rank(plan *model.FixPlan) {
	sort.SliceStable(plan.Fixes, func(a, b int) bool {
		fa, fb := plan.Fixes[a], plan.Fixes[b]
		if fa.Priority != fb.Priority {
			return fa.Priority < fb.Priority
		}
		if fa.EstimatedImpact != fb.EstimatedImpact {
			return fa.EstimatedImpact > fb.EstimatedImpact
		}
		return fa.ReasonCode < fb.ReasonCode
	})

	catCounts := make(map[model.Category]int)
	var kept []model.Fix
	for _, fix := range plan.Fixes {
		if len(kept) == g.opts.MaxFixes {
			break
		}
		primary := model.Category("")
		if len(fix.AffectedCategories) > 0 {
			primary = fix.AffectedCategories[0]
		}
		if catCounts[primary] >= g.opts.MaxFixesPerCategory {
			continue
		}
		catCounts[primary]++
		kept = append(kept, fix)
	}
	plan.Fixes = kept
}

// finalize fills the plan counters.
func (g *Generator) finalize(plan *model.FixPlan) {
	plan.TotalFixes = len(plan.Fixes)
	seenCat := make(map[model.Category]bool)
	var total float64
	for _, fix := range plan.Fixes {
		tmpl, _ := TemplateFor(fix.ReasonCode)
		if tmpl.Severity == SeverityCritical {
			plan.CriticalFixes++
		}
		if fix.Priority <= 2 {
			plan.HighPriorityFixes++
		}
		total += fix.EstimatedImpact
		for _, cat := range fix.AffectedCategories {
			if !seenCat[cat] {
				seenCat[cat] = true
				plan.CategoriesAddressed = append(plan.CategoriesAddressed, cat)
			}
		}
	}
	if total > 1 {
		total = 1
	}
	plan.EstimatedTotalImpact = total
}

// SeverityOf exposes a fix's severity for impact estimation.
func SeverityOf(code model.ReasonCode) Severity {
	if t, ok := TemplateFor(code); ok {
		return t.Severity
	}
	return SeverityLow
}
