package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
)

func TestDefault_CachesOneInstance(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestUniversal_ReturnsCopy(t *testing.T) {
	c := New()

	qs := c.Universal()
	require.NotEmpty(t, qs)
	original := qs[0].ID
	qs[0].ID = "mutated"

	assert.Equal(t, original, c.Universal()[0].ID)
}

func TestByID(t *testing.T) {
	c := New()

	q, ok := c.ByID("u01")
	require.True(t, ok)
	assert.Equal(t, "u01", q.ID)
	assert.Contains(t, q.Template, "{company}")

	_, ok = c.ByID("u99")
	assert.False(t, ok)
}

func TestByCategoryAndDifficulty(t *testing.T) {
	c := New()

	for _, cat := range model.Categories() {
		for _, q := range c.ByCategory(cat) {
			assert.Equal(t, cat, q.Category)
		}
	}
	for _, d := range model.Difficulties() {
		for _, q := range c.ByDifficulty(d) {
			assert.Equal(t, d, q.Difficulty)
		}
	}
}

func TestStats(t *testing.T) {
	c := New()

	s := c.Stats()
	assert.Equal(t, Version, s.Version)
	assert.Equal(t, len(c.Universal()), s.Total)
	assert.Positive(t, s.TotalWeight)

	var byCat, byDiff int
	for _, n := range s.ByCategory {
		byCat += n
	}
	for _, n := range s.ByDifficulty {
		byDiff += n
	}
	assert.Equal(t, s.Total, byCat)
	assert.Equal(t, s.Total, byDiff)
}

func TestGenerateForSite_TopicDetection(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{
		CompanyName: "Acme",
		Domain:      "acme.com",
		PageTexts: []string{
			"Our pricing starts at $49 per month.",
			"Read the Acme blog for shipping insights.",
			"The Acme API lets developers automate everything.",
		},
	}, DefaultDeriveOptions())
	require.NoError(t, err)

	ids := make([]string, 0, len(set.Derived))
	for _, q := range set.Derived {
		ids = append(ids, q.ID)
	}
	assert.Contains(t, ids, "drv-pricing")
	assert.Contains(t, ids, "drv-blog")
	assert.Contains(t, ids, "drv-api")
	assert.NotContains(t, ids, "drv-careers")

	for _, q := range set.Derived {
		assert.NotEmpty(t, q.ExpectedSignals, q.ID)
		assert.Contains(t, q.Template, "{company}", q.ID)
	}
}

func TestGenerateForSite_HeadingEntities(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{
		CompanyName: "Acme",
		Headings: map[string][]string{
			"h2": {"Acme Flow Platform", "Features"},
		},
	}, DefaultDeriveOptions())
	require.NoError(t, err)

	var productQ, featuresQ *model.Question
	for i := range set.Derived {
		switch set.Derived[i].ID {
		case "drv-product-1":
			productQ = &set.Derived[i]
		case "drv-features":
			featuresQ = &set.Derived[i]
		}
	}
	require.NotNil(t, productQ)
	assert.Contains(t, productQ.Template, "Acme Flow")
	assert.Equal(t, model.SourceHeading, productQ.Source)
	require.NotNil(t, featuresQ)
}

func TestGenerateForSite_MetadataTriggers(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{
		CompanyName: "Acme",
		Title:       "Acme - AI logistics for enterprise teams",
		Description: "Machine learning route planning",
	}, DefaultDeriveOptions())
	require.NoError(t, err)

	ids := make([]string, 0, len(set.Derived))
	for _, q := range set.Derived {
		ids = append(ids, q.ID)
	}
	assert.Contains(t, ids, "drv-enterprise")
	assert.Contains(t, ids, "drv-ai")
}

func TestGenerateForSite_KeywordQuestion(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{
		CompanyName: "Acme",
		PageTexts: []string{
			"Logistics logistics logistics logistics. We love logistics.",
		},
	}, DeriveOptions{MaxQuestions: 5, MinKeywordFrequency: 3})
	require.NoError(t, err)

	ids := make([]string, 0, len(set.Derived))
	for _, q := range set.Derived {
		ids = append(ids, q.ID)
	}
	assert.Contains(t, ids, "drv-kw-logistics")
}

func TestGenerateForSite_MaxQuestionsTruncates(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{
		CompanyName: "Acme",
		Title:       "Acme enterprise AI platform",
		PageTexts: []string{
			"pricing blog careers API integrations pricing blog careers",
		},
	}, DeriveOptions{MaxQuestions: 2, MinKeywordFrequency: 2})
	require.NoError(t, err)

	assert.Len(t, set.Derived, 2)
}

func TestGenerateForSite_EmptyContentDerivesNothing(t *testing.T) {
	c := New()

	set, err := c.GenerateForSite(model.SiteContext{CompanyName: "Acme"}, DefaultDeriveOptions())
	require.NoError(t, err)

	assert.Empty(t, set.Derived)
	assert.NotEmpty(t, set.Universal)
	assert.Len(t, set.All(), len(set.Universal))
}

func TestGenerateForSite_RequiresCompanyName(t *testing.T) {
	c := New()

	_, err := c.GenerateForSite(model.SiteContext{}, DefaultDeriveOptions())
	require.Error(t, err)
}

func TestTopKeyword(t *testing.T) {
	assert.Equal(t, "", topKeyword("", 3))
	assert.Equal(t, "", topKeyword("rare words only once", 3))
	// Stop words never win even when frequent.
	assert.Equal(t, "shipping", topKeyword("the the the the shipping shipping shipping", 3))
	// Ties break alphabetically.
	assert.Equal(t, "alpha", topKeyword("alpha beta alpha beta alpha beta", 3))
}
