package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/model"
)

// DeriveOptions controls site-specific question derivation.
type DeriveOptions struct {
	MaxQuestions        int
	MinKeywordFrequency int
}

// DefaultDeriveOptions returns the standard derivation limits.
func DefaultDeriveOptions() DeriveOptions {
	return DeriveOptions{MaxQuestions: 5, MinKeywordFrequency: 3}
}

// topicPatterns detect site topics worth asking about. At most one question
// is emitted per topic.
var topicPatterns = []struct {
	id       string
	pattern  *regexp.Regexp
	template string
	category model.Category
	diff     model.Difficulty
	signals  []string
}{
	{
		id:       "drv-pricing",
		pattern:  regexp.MustCompile(`(?i)\b(pricing|price|cost|plans?)\b`),
		template: "What pricing plans does {company} offer?",
		category: model.CategoryOfferings,
		diff:     model.DifficultyMedium,
		signals:  []string{"pricing", "plan", "tier"},
	},
	{
		id:       "drv-blog",
		pattern:  regexp.MustCompile(`(?i)\b(blog|insights|articles)\b`),
		template: "Does {company} publish a blog or insights?",
		category: model.CategoryTrust,
		diff:     model.DifficultyEasy,
		signals:  []string{"blog", "articles", "insights"},
	},
	{
		id:       "drv-careers",
		pattern:  regexp.MustCompile(`(?i)\b(careers?|jobs|hiring)\b`),
		template: "Is {company} hiring?",
		category: model.CategoryIdentity,
		diff:     model.DifficultyEasy,
		signals:  []string{"careers", "jobs", "hiring"},
	},
	{
		id:       "drv-api",
		pattern:  regexp.MustCompile(`(?i)\bAPI\b`),
		template: "Does {company} provide an API for developers?",
		category: model.CategoryOfferings,
		diff:     model.DifficultyHard,
		signals:  []string{"api", "developer", "documentation"},
	},
	{
		id:       "drv-integrations",
		pattern:  regexp.MustCompile(`(?i)\bintegrat(e|es|ion|ions)\b`),
		template: "What tools does {company} integrate with?",
		category: model.CategoryOfferings,
		diff:     model.DifficultyMedium,
		signals:  []string{"integration", "connect", "works with"},
	},
}

// productHeading matches headings that name a product, e.g. "Acme Flow Platform".
var productHeading = regexp.MustCompile(`^(?:Introducing\s+)?([A-Z][\w-]*(?:\s+[A-Z][\w-]*){0,2})\s+(?:Platform|Suite|Product|App|Tool|Engine)$`)

// featureHeading matches headings that announce a feature list.
var featureHeading = regexp.MustCompile(`(?i)\bfeatures?\b`)

var aiTrigger = regexp.MustCompile(`(?i)\bai\b|machine learning`)

// GenerateForSite produces the question set for a site: the fixed universal
// set plus up to MaxQuestions derived questions. Missing page texts produce
// an empty derived list, not an error.
func (c *Catalog) GenerateForSite(siteCtx model.SiteContext, opts DeriveOptions) (model.QuestionSet, error) {
	if siteCtx.CompanyName == "" {
		return model.QuestionSet{}, eris.New("catalog: company name is required")
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 5
	}
	if opts.MinKeywordFrequency <= 0 {
		opts.MinKeywordFrequency = 3
	}

	set := model.QuestionSet{Universal: c.Universal()}

	corpus := strings.Join(siteCtx.PageTexts, "\n")
	var headings []string
	for _, hs := range siteCtx.Headings {
		headings = append(headings, hs...)
	}
	sort.Strings(headings)
	metadata := strings.Join(append([]string{siteCtx.Title, siteCtx.Description}, siteCtx.Keywords...), " ")
	searchable := corpus + "\n" + strings.Join(headings, "\n") + "\n" + metadata

	var derived []model.Question

	// Topic detection over all texts, headings, and metadata.
	for _, tp := range topicPatterns {
		if tp.pattern.MatchString(searchable) {
			derived = append(derived, model.Question{
				ID:              tp.id,
				Template:        tp.template,
				Category:        tp.category,
				Difficulty:      tp.diff,
				Source:          model.SourceContent,
				Weight:          1.0,
				ExpectedSignals: tp.signals,
			})
		}
	}

	// Entity extraction from headings: up to 2 products, 1 feature question.
	products := 0
	sawFeatures := false
	for _, h := range headings {
		h = strings.TrimSpace(h)
		if m := productHeading.FindStringSubmatch(h); m != nil && products < 2 {
			products++
			name := m[1]
			derived = append(derived, model.Question{
				ID:              fmt.Sprintf("drv-product-%d", products),
				Template:        fmt.Sprintf("What is {company}'s %s?", name),
				Category:        model.CategoryOfferings,
				Difficulty:      model.DifficultyMedium,
				Source:          model.SourceHeading,
				Weight:          1.0,
				ExpectedSignals: []string{strings.ToLower(name)},
			})
		}
		if !sawFeatures && featureHeading.MatchString(h) {
			sawFeatures = true
			derived = append(derived, model.Question{
				ID:              "drv-features",
				Template:        "What features does {company} offer?",
				Category:        model.CategoryOfferings,
				Difficulty:      model.DifficultyEasy,
				Source:          model.SourceHeading,
				Weight:          1.0,
				ExpectedSignals: []string{"features", "capabilities"},
			})
		}
	}

	// Metadata triggers.
	if strings.Contains(strings.ToLower(metadata), "enterprise") {
		derived = append(derived, model.Question{
			ID:              "drv-enterprise",
			Template:        "Does {company} offer enterprise plans?",
			Category:        model.CategoryOfferings,
			Difficulty:      model.DifficultyMedium,
			Source:          model.SourceMetadata,
			Weight:          1.0,
			ExpectedSignals: []string{"enterprise", "custom", "sales"},
		})
	}
	if aiTrigger.MatchString(metadata) {
		derived = append(derived, model.Question{
			ID:              "drv-ai",
			Template:        "How does {company} use AI?",
			Category:        model.CategoryDifferentiation,
			Difficulty:      model.DifficultyMedium,
			Source:          model.SourceMetadata,
			Weight:          1.0,
			ExpectedSignals: []string{"ai", "machine learning", "model"},
		})
	}

	// Keyword extraction: at most one keyword-template question.
	if kw := topKeyword(corpus, opts.MinKeywordFrequency); kw != "" {
		derived = append(derived, model.Question{
			ID:              "drv-kw-" + kw,
			Template:        fmt.Sprintf("What does {company} say about %s?", kw),
			Category:        model.CategoryIdentity,
			Difficulty:      model.DifficultyMedium,
			Source:          model.SourceContent,
			Weight:          1.0,
			ExpectedSignals: []string{kw},
		})
	}

	set.Derived = dedupeQuestions(derived, opts.MaxQuestions)

	zap.L().Debug("catalog: derived questions",
		zap.String("company", siteCtx.CompanyName),
		zap.Int("count", len(set.Derived)),
	)

	return set, nil
}

// dedupeQuestions removes questions with duplicate normalized text, keeping
// first occurrences, then truncates to max.
func dedupeQuestions(qs []model.Question, max int) []model.Question {
	seen := make(map[string]bool, len(qs))
	var out []model.Question
	for _, q := range qs {
		key := strings.ToLower(strings.TrimSpace(q.Template))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

// topKeyword returns the most frequent non-stop-word of 3+ letters appearing
// at least minFreq times, or "" if none qualifies. Ties break alphabetically
// for determinism.
func topKeyword(corpus string, minFreq int) string {
	if corpus == "" {
		return ""
	}
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(corpus), -1) {
		if stopWords[w] {
			continue
		}
		counts[w]++
	}

	best := ""
	bestCount := 0
	for w, n := range counts {
		if n < minFreq {
			continue
		}
		if n > bestCount || (n == bestCount && w < best) {
			best = w
			bestCount = n
		}
	}
	return best
}
