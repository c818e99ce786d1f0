// Package catalog owns the versioned universal question set and derives
// additional site-specific questions from crawled content.
package catalog

import (
	"sync"

	"github.com/sourcelens/audit-cli/internal/model"
)

// Stats summarizes the universal question set.
type Stats struct {
	Version      string                   `json:"version"`
	Total        int                      `json:"total"`
	TotalWeight  float64                  `json:"total_weight"`
	ByCategory   map[model.Category]int   `json:"by_category"`
	ByDifficulty map[model.Difficulty]int `json:"by_difficulty"`
}

// Catalog exposes read-only access to the universal question set.
type Catalog struct {
	questions []model.Question
	byID      map[string]model.Question
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog over the compiled-in universal
// set. The value is immutable; this is a cached initializer, not state.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New()
	})
	return defaultCatalog
}

// New builds a catalog over the universal set.
func New() *Catalog {
	byID := make(map[string]model.Question, len(universalQuestions))
	for _, q := range universalQuestions {
		byID[q.ID] = q
	}
	return &Catalog{questions: universalQuestions, byID: byID}
}

// Universal returns a copy of the fixed universal question set.
func (c *Catalog) Universal() []model.Question {
	out := make([]model.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// ByCategory returns universal questions in the given category, in set order.
func (c *Catalog) ByCategory(cat model.Category) []model.Question {
	var out []model.Question
	for _, q := range c.questions {
		if q.Category == cat {
			out = append(out, q)
		}
	}
	return out
}

// ByDifficulty returns universal questions at the given difficulty.
func (c *Catalog) ByDifficulty(d model.Difficulty) []model.Question {
	var out []model.Question
	for _, q := range c.questions {
		if q.Difficulty == d {
			out = append(out, q)
		}
	}
	return out
}

// ByID returns the universal question with the given id.
func (c *Catalog) ByID(id string) (model.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Stats returns counts and the total weight of the universal set.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Version:      Version,
		Total:        len(c.questions),
		ByCategory:   make(map[model.Category]int),
		ByDifficulty: make(map[model.Difficulty]int),
	}
	for _, q := range c.questions {
		s.TotalWeight += q.Weight
		s.ByCategory[q.Category]++
		s.ByDifficulty[q.Difficulty]++
	}
	return s
}
