package model

import "strings"

// Category classifies what aspect of a company a question probes.
type Category string

const (
	CategoryIdentity        Category = "identity"
	CategoryOfferings       Category = "offerings"
	CategoryContact         Category = "contact"
	CategoryTrust           Category = "trust"
	CategoryDifferentiation Category = "differentiation"
)

// Categories lists all question categories in canonical order.
func Categories() []Category {
	return []Category{
		CategoryIdentity,
		CategoryOfferings,
		CategoryContact,
		CategoryTrust,
		CategoryDifferentiation,
	}
}

// Difficulty grades how hard a question is to answer from site content.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists all difficulties in canonical order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// QuestionSource records where a question came from.
type QuestionSource string

const (
	SourceUniversal QuestionSource = "universal"
	SourceSchema    QuestionSource = "schema"
	SourceHeading   QuestionSource = "heading"
	SourceContent   QuestionSource = "content"
	SourceMetadata  QuestionSource = "metadata"
)

// Question is a single evaluation question. Template contains a {company}
// placeholder substituted at render time.
type Question struct {
	ID              string            `json:"id"`
	Template        string            `json:"template"`
	Category        Category          `json:"category"`
	Difficulty      Difficulty        `json:"difficulty"`
	Source          QuestionSource    `json:"source"`
	Weight          float64           `json:"weight"`
	ExpectedSignals []string          `json:"expected_signals"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Render substitutes the {company} placeholder with the company name.
func (q Question) Render(companyName string) string {
	return strings.ReplaceAll(q.Template, "{company}", companyName)
}

// QuestionSet is the output of question generation for a site.
type QuestionSet struct {
	Universal []Question `json:"universal"`
	Derived   []Question `json:"derived"`
}

// All returns universal followed by derived questions.
func (s QuestionSet) All() []Question {
	out := make([]Question, 0, len(s.Universal)+len(s.Derived))
	out = append(out, s.Universal...)
	out = append(out, s.Derived...)
	return out
}

// SiteContext carries everything question derivation knows about a site.
type SiteContext struct {
	CompanyName string              `json:"company_name"`
	Domain      string              `json:"domain"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Keywords    []string            `json:"keywords,omitempty"`
	SchemaTypes []string            `json:"schema_types,omitempty"`
	Headings    map[string][]string `json:"headings,omitempty"`
	PageTexts   []string            `json:"page_texts,omitempty"`
}
