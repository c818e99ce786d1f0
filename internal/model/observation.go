package model

// ObservationRequest describes one provider call to make.
type ObservationRequest struct {
	QuestionID  string  `json:"question_id"`
	Question    string  `json:"question"`
	CompanyName string  `json:"company_name"`
	Domain      string  `json:"domain"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ObservationUsage reports provider token consumption.
type ObservationUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MentionType classifies how a company surfaced in a response.
type MentionType string

const (
	MentionExact   MentionType = "exact"
	MentionPartial MentionType = "partial"
	MentionDomain  MentionType = "domain"
	MentionURL     MentionType = "url"
	MentionBranded MentionType = "branded"
)

// Mention is one detected company reference in a model response.
type Mention struct {
	Type       MentionType `json:"type"`
	Text       string      `json:"text"`
	Position   int         `json:"position"`
	Confidence float64     `json:"confidence"`
}

// CitationKind classifies a citation-pattern match.
type CitationKind string

const (
	CitationDirectQuote CitationKind = "direct_quote"
	CitationAttribution CitationKind = "attribution"
	CitationSourceLink  CitationKind = "source_link"
	CitationReference   CitationKind = "reference"
	CitationImplicit    CitationKind = "implicit"
)

// Citation is one citation-pattern match in a model response.
type Citation struct {
	Kind CitationKind `json:"kind"`
	Text string       `json:"text"`
	URL  string       `json:"url,omitempty"`
}

// Sentiment categorizes the tone of a response toward the company.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
	SentimentNeutral  Sentiment = "neutral"
)

// ParsedObservation is the structured reading of a raw provider response.
type ParsedObservation struct {
	CompanyMentioned  bool            `json:"company_mentioned"`
	DomainMentioned   bool            `json:"domain_mentioned"`
	URLCited          bool            `json:"url_cited"`
	Mentions          []Mention       `json:"mentions"`
	CitedURLs         []string        `json:"cited_urls"`
	CompanyURLs       []string        `json:"company_urls"`
	ExternalURLs      []string        `json:"external_urls"`
	Citations         []Citation      `json:"citations"`
	Sentiment         Sentiment       `json:"sentiment"`
	SentimentScore    float64         `json:"sentiment_score"`
	Confidence        ConfidenceLevel `json:"confidence"`
	Refused           bool            `json:"refused"`
	HallucinationRisk bool            `json:"hallucination_risk"`
}

// ObservationResult is the per-question record of one provider call.
type ObservationResult struct {
	QuestionID  string            `json:"question_id"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	RawResponse string            `json:"raw_response"`
	Usage       ObservationUsage  `json:"usage"`
	Parsed      ParsedObservation `json:"parsed"`
	Failed      bool              `json:"failed"`
	Error       string            `json:"error,omitempty"`
	DurationMs  int64             `json:"duration_ms"`
}

// ObservationBatch is the outcome of running a batch of observation
// requests. Failed is true only when no request produced a response.
type ObservationBatch struct {
	Results    []ObservationResult `json:"results"`
	Provider   string              `json:"provider"`
	Model      string              `json:"model"`
	Succeeded  int                 `json:"succeeded"`
	Failed     bool                `json:"failed"`
	Cancelled  bool                `json:"cancelled,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// ResultByQuestionID returns the observation result for a question id.
func (b *ObservationBatch) ResultByQuestionID(id string) (ObservationResult, bool) {
	for _, r := range b.Results {
		if r.QuestionID == id {
			return r, true
		}
	}
	return ObservationResult{}, false
}
