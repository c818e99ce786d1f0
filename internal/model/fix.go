package model

// ReasonCode is the closed enumeration of diagnoses for why a question
// failed. It drives fix template selection.
type ReasonCode string

const (
	ReasonMissingDefinition  ReasonCode = "MISSING_DEFINITION"
	ReasonMissingPricing     ReasonCode = "MISSING_PRICING"
	ReasonMissingContact     ReasonCode = "MISSING_CONTACT"
	ReasonMissingLocation    ReasonCode = "MISSING_LOCATION"
	ReasonMissingFeatures    ReasonCode = "MISSING_FEATURES"
	ReasonMissingSocialProof ReasonCode = "MISSING_SOCIAL_PROOF"
	ReasonBuriedAnswer       ReasonCode = "BURIED_ANSWER"
	ReasonFragmentedInfo     ReasonCode = "FRAGMENTED_INFO"
	ReasonNoDedicatedPage    ReasonCode = "NO_DEDICATED_PAGE"
	ReasonPoorHeadings       ReasonCode = "POOR_HEADINGS"
	ReasonNotCitable         ReasonCode = "NOT_CITABLE"
	ReasonVagueLanguage      ReasonCode = "VAGUE_LANGUAGE"
	ReasonOutdatedInfo       ReasonCode = "OUTDATED_INFO"
	ReasonInconsistent       ReasonCode = "INCONSISTENT"
	ReasonTrustGap           ReasonCode = "TRUST_GAP"
	ReasonNoAuthority        ReasonCode = "NO_AUTHORITY"
	ReasonUnverifiedClaims   ReasonCode = "UNVERIFIED_CLAIMS"
	ReasonRenderRequired     ReasonCode = "RENDER_REQUIRED"
	ReasonBlockedByRobots    ReasonCode = "BLOCKED_BY_ROBOTS"
)

// ReasonCodes lists every recognized reason code.
func ReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonMissingDefinition, ReasonMissingPricing, ReasonMissingContact,
		ReasonMissingLocation, ReasonMissingFeatures, ReasonMissingSocialProof,
		ReasonBuriedAnswer, ReasonFragmentedInfo, ReasonNoDedicatedPage,
		ReasonPoorHeadings, ReasonNotCitable, ReasonVagueLanguage,
		ReasonOutdatedInfo, ReasonInconsistent, ReasonTrustGap,
		ReasonNoAuthority, ReasonUnverifiedClaims, ReasonRenderRequired,
		ReasonBlockedByRobots,
	}
}

// ValidReasonCode reports whether c belongs to the closed set.
func ValidReasonCode(c ReasonCode) bool {
	for _, rc := range ReasonCodes() {
		if rc == c {
			return true
		}
	}
	return false
}

// EffortLevel grades how much work a fix requires.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// Fix is one structured recommendation. Priority 1 is the highest.
// EstimatedImpact is in score points on the 0-1 per-question scale.
type Fix struct {
	ID                 string      `json:"id"`
	ReasonCode         ReasonCode  `json:"reason_code"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	Scaffold           string      `json:"scaffold"`
	Priority           int         `json:"priority"`
	EstimatedImpact    float64     `json:"estimated_impact"`
	Effort             EffortLevel `json:"effort_level"`
	TargetURL          string      `json:"target_url,omitempty"`
	AffectedQuestions  []string    `json:"affected_questions"`
	AffectedCategories []Category  `json:"affected_categories"`
}

// FixPlan is the ordered set of fixes for one simulation, sorted by
// ascending priority with ties broken by descending estimated impact.
type FixPlan struct {
	Fixes                []Fix      `json:"fixes"`
	TotalFixes           int        `json:"total_fixes"`
	CriticalFixes        int        `json:"critical_fixes"`
	HighPriorityFixes    int        `json:"high_priority_fixes"`
	EstimatedTotalImpact float64    `json:"estimated_total_impact"`
	CategoriesAddressed  []Category `json:"categories_addressed"`
}

// ImpactConfidence grades how trustworthy an impact estimate is.
type ImpactConfidence string

const (
	ImpactConfidenceHigh   ImpactConfidence = "high"
	ImpactConfidenceMedium ImpactConfidence = "medium"
	ImpactConfidenceLow    ImpactConfidence = "low"
)

// ImpactTier names the estimation method that produced an ImpactRange.
type ImpactTier string

const (
	// ImpactTierB re-scores affected questions against a synthetic patch.
	ImpactTierB ImpactTier = "B"
	// ImpactTierC is a lookup-based range.
	ImpactTierC ImpactTier = "C"
)

// ImpactRange is a fix-impact estimate in report points (0-100 scale).
type ImpactRange struct {
	Min        float64          `json:"min"`
	Expected   float64          `json:"expected"`
	Max        float64          `json:"max"`
	Confidence ImpactConfidence `json:"confidence"`
	Tier       ImpactTier       `json:"tier"`
}

// FixPlanImpact is the aggregate impact estimate for a whole FixPlan,
// with the per-fix ranges that produced it.
type FixPlanImpact struct {
	Total  ImpactRange            `json:"total"`
	PerFix map[string]ImpactRange `json:"per_fix"`
	Tier   ImpactTier             `json:"tier"`
}
