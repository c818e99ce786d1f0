package fixes

import "github.com/sourcelens/audit-cli/internal/model"

// TemplatesVersion identifies the fix template map. Scaffolds contain
// [COMPANY_NAME] plus authoring-prompt tokens (e.g. [PRICE_1]) that the
// site owner fills in.
const TemplatesVersion = "1.0"

// Severity grades how damaging a reason code is to sourceability.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Template is the fixed scaffold for one reason code.
type Template struct {
	Title      string
	ActionVerb string
	Scaffold   string
	Examples   []string
	Priority   int
	BaseImpact float64
	Effort     model.EffortLevel
	Severity   Severity
}

// templates maps every reason code to its fix scaffold.
var templates = map[model.ReasonCode]Template{
	model.ReasonMissingDefinition: {
		Title:      "Add a clear company definition",
		ActionVerb: "Add",
		Scaffold:   "[COMPANY_NAME] is a [CATEGORY] company that helps [AUDIENCE] [OUTCOME]. Place this one-sentence definition in the first paragraph of your homepage and About page.",
		Examples:   []string{"Acme is a logistics platform that helps mid-size retailers ship faster."},
		Priority:   1,
		BaseImpact: 0.25,
		Effort:     model.EffortMedium,
		Severity:   SeverityCritical,
	},
	model.ReasonMissingPricing: {
		Title:      "Publish a pricing page",
		ActionVerb: "Publish",
		Scaffold:   "[COMPANY_NAME] offers [PLAN_COUNT] plans: [PLAN_1] at [PRICE_1], [PLAN_2] at [PRICE_2]. State prices in plain text, not images.",
		Examples:   []string{"Starter at $29/month, Growth at $99/month, Enterprise by contact."},
		Priority:   1,
		BaseImpact: 0.22,
		Effort:     model.EffortLow,
		Severity:   SeverityCritical,
	},
	model.ReasonMissingContact: {
		Title:      "Add reachable contact details",
		ActionVerb: "Add",
		Scaffold:   "Contact [COMPANY_NAME] at [EMAIL] or [PHONE]. Our office is at [ADDRESS]. Put this on a dedicated /contact page and in the site footer.",
		Examples:   []string{"Contact us at hello@example.com or +1 555 010 0000."},
		Priority:   2,
		BaseImpact: 0.18,
		Effort:     model.EffortLow,
		Severity:   SeverityHigh,
	},
	model.ReasonMissingLocation: {
		Title:      "State where the company is located",
		ActionVerb: "State",
		Scaffold:   "[COMPANY_NAME] is headquartered in [CITY], [COUNTRY]. Mention the location on the About and Contact pages.",
		Priority:   3,
		BaseImpact: 0.10,
		Effort:     model.EffortLow,
		Severity:   SeverityMedium,
	},
	model.ReasonMissingFeatures: {
		Title:      "Describe products and features explicitly",
		ActionVerb: "Describe",
		Scaffold:   "[COMPANY_NAME] offers [PRODUCT_1], [PRODUCT_2], and [PRODUCT_3]. For each, write a heading plus 2-3 sentences stating what it does and who it is for.",
		Examples:   []string{"Acme Routing plans delivery routes automatically, cutting fuel costs by up to 20%."},
		Priority:   2,
		BaseImpact: 0.20,
		Effort:     model.EffortMedium,
		Severity:   SeverityHigh,
	},
	model.ReasonMissingSocialProof: {
		Title:      "Add customer evidence",
		ActionVerb: "Add",
		Scaffold:   "[COMPANY_NAME] is trusted by [CUSTOMER_1] and [CUSTOMER_2]. Add named testimonials, case studies, or logos with permission.",
		Priority:   2,
		BaseImpact: 0.15,
		Effort:     model.EffortMedium,
		Severity:   SeverityHigh,
	},
	model.ReasonBuriedAnswer: {
		Title:      "Surface buried answers",
		ActionVerb: "Surface",
		Scaffold:   "Move the answer to [QUESTION_TOPIC] into the first screen of a relevant page, under a descriptive heading. Answers hidden in long paragraphs rank poorly for retrieval.",
		Priority:   3,
		BaseImpact: 0.12,
		Effort:     model.EffortMedium,
		Severity:   SeverityMedium,
	},
	model.ReasonFragmentedInfo: {
		Title:      "Consolidate scattered information",
		ActionVerb: "Consolidate",
		Scaffold:   "Information about [QUESTION_TOPIC] is spread across multiple pages. Create one canonical section that answers it completely, then link to it.",
		Priority:   3,
		BaseImpact: 0.12,
		Effort:     model.EffortMedium,
		Severity:   SeverityMedium,
	},
	model.ReasonNoDedicatedPage: {
		Title:      "Create a dedicated page",
		ActionVerb: "Create",
		Scaffold:   "Create a page dedicated to [QUESTION_TOPIC] for [COMPANY_NAME] with a descriptive URL, title, and H1.",
		Priority:   2,
		BaseImpact: 0.16,
		Effort:     model.EffortHigh,
		Severity:   SeverityHigh,
	},
	model.ReasonPoorHeadings: {
		Title:      "Rewrite headings to match questions",
		ActionVerb: "Rewrite",
		Scaffold:   "Use headings that state the answer topic plainly, e.g. \"Pricing\", \"How [COMPANY_NAME] works\", \"Contact us\". Avoid slogans as headings.",
		Priority:   3,
		BaseImpact: 0.10,
		Effort:     model.EffortLow,
		Severity:   SeverityMedium,
	},
	model.ReasonNotCitable: {
		Title:      "Make claims citable",
		ActionVerb: "Rework",
		Scaffold:   "Rework key claims into short, self-contained statements that a model can quote directly, each under its own heading.",
		Priority:   3,
		BaseImpact: 0.10,
		Effort:     model.EffortMedium,
		Severity:   SeverityMedium,
	},
	model.ReasonVagueLanguage: {
		Title:      "Replace vague language with specifics",
		ActionVerb: "Replace",
		Scaffold:   "Replace phrases like \"innovative solutions\" with concrete statements: what [COMPANY_NAME] does, for whom, and with what measurable result.",
		Priority:   4,
		BaseImpact: 0.08,
		Effort:     model.EffortMedium,
		Severity:   SeverityLow,
	},
	model.ReasonOutdatedInfo: {
		Title:      "Refresh outdated content",
		ActionVerb: "Refresh",
		Scaffold:   "Update content referring to [OUTDATED_ITEM] and add visible publication or updated dates.",
		Priority:   3,
		BaseImpact: 0.10,
		Effort:     model.EffortLow,
		Severity:   SeverityMedium,
	},
	model.ReasonInconsistent: {
		Title:      "Resolve contradictory statements",
		ActionVerb: "Resolve",
		Scaffold:   "Pages disagree about [QUESTION_TOPIC]. Pick the correct statement, fix every page that contradicts it, and keep a single source of truth.",
		Priority:   1,
		BaseImpact: 0.20,
		Effort:     model.EffortMedium,
		Severity:   SeverityCritical,
	},
	model.ReasonTrustGap: {
		Title:      "Close the trust gap",
		ActionVerb: "Add",
		Scaffold:   "Add trust signals for [COMPANY_NAME]: customer names, certifications, security standards, and a real team page.",
		Priority:   2,
		BaseImpact: 0.15,
		Effort:     model.EffortMedium,
		Severity:   SeverityHigh,
	},
	model.ReasonNoAuthority: {
		Title:      "Build topical authority",
		ActionVerb: "Publish",
		Scaffold:   "Publish substantive content about [TOPIC] authored by named experts at [COMPANY_NAME].",
		Priority:   4,
		BaseImpact: 0.08,
		Effort:     model.EffortHigh,
		Severity:   SeverityLow,
	},
	model.ReasonUnverifiedClaims: {
		Title:      "Back claims with evidence",
		ActionVerb: "Support",
		Scaffold:   "Support claims like [CLAIM] with numbers, sources, or customer references.",
		Priority:   4,
		BaseImpact: 0.08,
		Effort:     model.EffortMedium,
		Severity:   SeverityLow,
	},
	model.ReasonRenderRequired: {
		Title:      "Serve content without JavaScript",
		ActionVerb: "Serve",
		Scaffold:   "Key content on [COMPANY_NAME]'s site only appears after client-side rendering. Server-render or statically generate the pages AI crawlers need.",
		Priority:   1,
		BaseImpact: 0.25,
		Effort:     model.EffortHigh,
		Severity:   SeverityCritical,
	},
	model.ReasonBlockedByRobots: {
		Title:      "Unblock AI crawlers",
		ActionVerb: "Allow",
		Scaffold:   "robots.txt or meta directives block crawlers from [BLOCKED_PATHS]. Allow the user agents you want citing [COMPANY_NAME].",
		Priority:   1,
		BaseImpact: 0.30,
		Effort:     model.EffortLow,
		Severity:   SeverityCritical,
	},
}

// TemplateFor returns the template for a reason code.
func TemplateFor(code model.ReasonCode) (Template, bool) {
	t, ok := templates[code]
	return t, ok
}

// targetURLByReason suggests where the fix should land, keyed by reason code.
var targetURLByReason = map[model.ReasonCode]string{
	model.ReasonMissingPricing:     "/pricing",
	model.ReasonMissingContact:     "/contact",
	model.ReasonMissingLocation:    "/contact",
	model.ReasonMissingFeatures:    "/features",
	model.ReasonMissingDefinition:  "/about",
	model.ReasonMissingSocialProof: "/customers",
	model.ReasonTrustGap:           "/customers",
	model.ReasonBlockedByRobots:    "/robots.txt",
}

// targetURLByCategory is the fallback when the reason code has no mapping.
var targetURLByCategory = map[model.Category]string{
	model.CategoryIdentity:        "/about",
	model.CategoryOfferings:       "/products",
	model.CategoryContact:         "/contact",
	model.CategoryTrust:           "/customers",
	model.CategoryDifferentiation: "/why-us",
}

// targetURL resolves the suggested target for a reason code and the first
// affected category.
func targetURL(code model.ReasonCode, categories []model.Category) string {
	if u, ok := targetURLByReason[code]; ok {
		return u
	}
	if len(categories) > 0 {
		return targetURLByCategory[categories[0]]
	}
	return ""
}
