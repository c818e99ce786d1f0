package catalog

import "github.com/sourcelens/audit-cli/internal/model"

// Version identifies the universal question set. Weights, categories, and
// difficulties are fixed per version.
const Version = "1.0"

// universalQuestions is the fixed set of 15 evaluation questions applied to
// every site. Do not reorder or reweight without bumping Version.
var universalQuestions = []model.Question{
	{
		ID:              "u01",
		Template:        "What does {company} do?",
		Category:        model.CategoryIdentity,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"is a", "we provide", "platform"},
	},
	{
		ID:              "u02",
		Template:        "Who founded {company} and when?",
		Category:        model.CategoryIdentity,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"founded", "founder", "since"},
	},
	{
		ID:              "u03",
		Template:        "Where is {company} located?",
		Category:        model.CategoryContact,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"headquarters", "located", "address"},
	},
	{
		ID:              "u04",
		Template:        "What products or services does {company} offer?",
		Category:        model.CategoryOfferings,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"products", "services", "offer"},
	},
	{
		ID:              "u05",
		Template:        "How much does {company} cost?",
		Category:        model.CategoryOfferings,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"pricing", "per month", "plan"},
	},
	{
		ID:              "u06",
		Template:        "Does {company} offer a free trial or demo?",
		Category:        model.CategoryOfferings,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"free trial", "demo", "get started"},
	},
	{
		ID:              "u07",
		Template:        "What integrations does {company} support?",
		Category:        model.CategoryOfferings,
		Difficulty:      model.DifficultyHard,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"integration", "api", "connect"},
	},
	{
		ID:              "u08",
		Template:        "How can I contact {company}?",
		Category:        model.CategoryContact,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"contact", "email", "phone"},
	},
	{
		ID:              "u09",
		Template:        "What support options does {company} provide?",
		Category:        model.CategoryContact,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"support", "help center", "live chat"},
	},
	{
		ID:              "u10",
		Template:        "Is {company} legitimate and trustworthy?",
		Category:        model.CategoryTrust,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"customers", "reviews", "testimonials"},
	},
	{
		ID:              "u11",
		Template:        "Who are {company}'s customers?",
		Category:        model.CategoryTrust,
		Difficulty:      model.DifficultyMedium,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"trusted by", "case study", "clients"},
	},
	{
		ID:              "u12",
		Template:        "What security and compliance standards does {company} meet?",
		Category:        model.CategoryTrust,
		Difficulty:      model.DifficultyHard,
		Source:          model.SourceUniversal,
		Weight:          1.5,
		ExpectedSignals: []string{"security", "soc 2", "gdpr"},
	},
	{
		ID:              "u13",
		Template:        "What makes {company} different from competitors?",
		Category:        model.CategoryDifferentiation,
		Difficulty:      model.DifficultyHard,
		Source:          model.SourceUniversal,
		Weight:          1.5,
		ExpectedSignals: []string{"unlike", "unique", "only"},
	},
	{
		ID:              "u14",
		Template:        "What are the benefits of using {company}?",
		Category:        model.CategoryDifferentiation,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"benefits", "save", "faster"},
	},
	{
		ID:              "u15",
		Template:        "What industry is {company} in?",
		Category:        model.CategoryIdentity,
		Difficulty:      model.DifficultyEasy,
		Source:          model.SourceUniversal,
		Weight:          1.0,
		ExpectedSignals: []string{"industry", "market", "sector"},
	},
}
