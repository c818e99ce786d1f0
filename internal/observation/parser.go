package observation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sourcelens/audit-cli/internal/model"
)

// corporateSuffixes are stripped when generating name variations.
var corporateSuffixes = []string{
	"inc", "inc.", "llc", "llc.", "ltd", "ltd.", "limited",
	"corp", "corp.", "corporation", "co", "co.", "company", "gmbh", "plc",
}

var urlRegexp = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// citationPatterns pair a regex with the kind of citation it indicates.
// {NAME} is replaced with the escaped company name variations.
var citationPatterns = []struct {
	kind    model.CitationKind
	pattern string
}{
	{model.CitationDirectQuote, `"[^"]{10,}"[^.]{0,60}(?:{NAME})`},
	{model.CitationDirectQuote, `(?:{NAME})[^.]{0,60}"[^"]{10,}"`},
	{model.CitationAttribution, `according to (?:{NAME})`},
	{model.CitationAttribution, `(?:{NAME})\s+(?:states|says|claims|describes|reports)`},
	{model.CitationSourceLink, `(?:source|via|see):?\s*https?://`},
	{model.CitationReference, `(?:based on|as reported by|per)\s+(?:their|the)?\s*(?:website|site|page|documentation)`},
	{model.CitationReference, `on\s+(?:their|its)\s+(?:website|site|pricing page|about page)`},
}

// positiveWords and negativeWords form the fixed sentiment lexicon.
var positiveWords = []string{
	"excellent", "great", "reliable", "trusted", "leading", "innovative",
	"popular", "strong", "well-known", "reputable", "successful", "robust",
	"helpful", "best", "notable", "respected",
}

var negativeWords = []string{
	"poor", "unreliable", "controversial", "criticized", "weak", "obscure",
	"struggling", "problematic", "negative", "complaints", "lawsuit",
	"scam", "untrustworthy", "declining",
}

// hedgingPhrases lower confidence; certaintyPhrases raise it.
var hedgingPhrases = []string{
	"might", "may be", "possibly", "perhaps", "it seems", "appears to",
	"i'm not sure", "i am not sure", "unclear", "likely", "i believe",
	"as far as i know", "not certain", "could be",
}

var certaintyPhrases = []string{
	"is a", "provides", "offers", "specializes in", "was founded",
	"is headquartered", "is based in", "is known for",
}

// refusalPatterns indicate the model declined or had no information.
var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i (?:don'?t|do not) have (?:any |specific |detailed |enough )?(?:information|details|data)`),
	regexp.MustCompile(`(?i)i(?:'m| am) not familiar with`),
	regexp.MustCompile(`(?i)i (?:cannot|can'?t) (?:find|provide|verify|confirm)`),
	regexp.MustCompile(`(?i)no (?:reliable |public |available )?information (?:is )?available`),
	regexp.MustCompile(`(?i)i(?:'m| am) unable to`),
	regexp.MustCompile(`(?i)there is no (?:company|organization) (?:named|called)`),
}

// claimPatterns detect specific factual claims used by the hallucination
// risk heuristic.
var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[0-9][0-9,.]*`),
	regexp.MustCompile(`\b[0-9]+(?:\.[0-9]+)?%`),
	regexp.MustCompile(`(?i)\bfounded in \d{4}`),
	regexp.MustCompile(`(?i)\bin \d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:over|more than|approximately|around) [0-9,]+`),
	regexp.MustCompile(`(?i)\bheadquartered in [A-Z][a-z]+`),
	regexp.MustCompile(`\b[0-9,]+ (?:employees|customers|users|clients)\b`),
}

// Parser converts raw provider responses into structured observations.
type Parser struct{}

// NewParser creates a response parser.
func NewParser() *Parser {
	return &Parser{}
}

// nameVariation carries one matchable form of the company name.
type nameVariation struct {
	text       string
	mtype      model.MentionType
	confidence float64
}

// variations generates the matchable forms of a company name, strongest
// first: the exact name, the name with corporate suffixes stripped, the
// name without a leading "The", and the first content word of a multi-word
// name.
func variations(companyName string) []nameVariation {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return nil
	}

	out := []nameVariation{{text: name, mtype: model.MentionExact, confidence: 1.0}}
	seen := map[string]bool{strings.ToLower(name): true}

	add := func(text string, mtype model.MentionType, conf float64) {
		text = strings.TrimSpace(text)
		key := strings.ToLower(text)
		if len(text) < 3 || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, nameVariation{text: text, mtype: mtype, confidence: conf})
	}

	words := strings.Fields(name)
	if len(words) > 1 {
		last := strings.ToLower(strings.Trim(words[len(words)-1], ",."))
		for _, suffix := range corporateSuffixes {
			if last == suffix {
				add(strings.Join(words[:len(words)-1], " "), model.MentionPartial, 0.9)
				break
			}
		}
	}

	if strings.HasPrefix(strings.ToLower(name), "the ") {
		add(name[4:], model.MentionPartial, 0.8)
	}

	if len(words) > 1 {
		add(words[0], model.MentionBranded, 0.6)
	}

	return out
}

// Parse analyzes a raw response for mentions of the company and its domain.
func (p *Parser) Parse(raw, companyName, domain string) model.ParsedObservation {
	obs := model.ParsedObservation{
		Sentiment:  model.SentimentNeutral,
		Confidence: model.ConfidenceMedium,
	}
	if strings.TrimSpace(raw) == "" {
		obs.Confidence = model.ConfidenceLow
		return obs
	}

	lower := strings.ToLower(raw)
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://"))
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimSuffix(domain, "/")

	obs.Mentions = p.extractMentions(raw, lower, companyName, domain)
	for _, m := range obs.Mentions {
		switch m.Type {
		case model.MentionDomain:
			obs.DomainMentioned = true
		case model.MentionURL:
			obs.URLCited = true
		default:
			obs.CompanyMentioned = true
		}
	}

	obs.CitedURLs = urlRegexp.FindAllString(raw, -1)
	for _, u := range obs.CitedURLs {
		if domain != "" && strings.Contains(strings.ToLower(u), domain) {
			obs.CompanyURLs = append(obs.CompanyURLs, u)
			obs.URLCited = true
		} else {
			obs.ExternalURLs = append(obs.ExternalURLs, u)
		}
	}

	obs.Citations = p.extractCitations(raw, companyName)
	if obs.CompanyMentioned && len(obs.Citations) == 0 && hasFactualClaim(raw) {
		obs.Citations = append(obs.Citations, model.Citation{
			Kind: model.CitationImplicit,
			Text: firstSentenceMentioning(raw, companyName),
		})
	}

	obs.Sentiment, obs.SentimentScore = sentimentOf(lower)
	obs.Refused = isRefusal(raw)
	obs.Confidence = confidenceOf(lower, obs.CompanyMentioned, obs.Refused)

	if obs.Confidence == model.ConfidenceHigh && !obs.Refused {
		claims := countClaims(raw)
		explicitCitation := false
		for _, c := range obs.Citations {
			if c.Kind != model.CitationImplicit {
				explicitCitation = true
				break
			}
		}
		if claims >= 3 && !explicitCitation && len(obs.CompanyURLs) == 0 {
			obs.HallucinationRisk = true
		}
	}

	return obs
}

// extractMentions finds every variation occurrence, dedupes by start
// position keeping the highest-confidence mention, and returns mentions in
// position order.
func (p *Parser) extractMentions(raw, lower, companyName, domain string) []model.Mention {
	byPosition := make(map[int]model.Mention)

	record := func(pos int, m model.Mention) {
		if existing, ok := byPosition[pos]; ok && existing.Confidence >= m.Confidence {
			return
		}
		byPosition[pos] = m
	}

	for _, v := range variations(companyName) {
		needle := strings.ToLower(v.text)
		for start := 0; ; {
			i := strings.Index(lower[start:], needle)
			if i < 0 {
				break
			}
			pos := start + i
			record(pos, model.Mention{
				Type:       v.mtype,
				Text:       raw[pos : pos+len(needle)],
				Position:   pos,
				Confidence: v.confidence,
			})
			start = pos + len(needle)
		}
	}

	if domain != "" {
		for start := 0; ; {
			i := strings.Index(lower[start:], domain)
			if i < 0 {
				break
			}
			pos := start + i
			mtype := model.MentionDomain
			conf := 0.9
			// A domain inside a URL counts as a URL mention.
			if pos >= 8 && strings.Contains(lower[maxInt(0, pos-8):pos], "http") {
				mtype = model.MentionURL
				conf = 1.0
			}
			record(pos, model.Mention{
				Type:       mtype,
				Text:       raw[pos : pos+len(domain)],
				Position:   pos,
				Confidence: conf,
			})
			start = pos + len(domain)
		}
	}

	mentions := make([]model.Mention, 0, len(byPosition))
	for _, m := range byPosition {
		mentions = append(mentions, m)
	}
	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Position < mentions[j].Position })
	return mentions
}

func (p *Parser) extractCitations(raw, companyName string) []model.Citation {
	var namePattern strings.Builder
	for i, v := range variations(companyName) {
		if i > 0 {
			namePattern.WriteByte('|')
		}
		namePattern.WriteString(regexp.QuoteMeta(v.text))
	}
	if namePattern.Len() == 0 {
		namePattern.WriteString(regexp.QuoteMeta(companyName))
	}

	var citations []model.Citation
	for _, cp := range citationPatterns {
		pattern := strings.ReplaceAll(cp.pattern, "{NAME}", namePattern.String())
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			continue
		}
		for _, match := range re.FindAllString(raw, -1) {
			c := model.Citation{Kind: cp.kind, Text: truncate(match, 200)}
			if u := urlRegexp.FindString(match); u != "" {
				c.URL = u
			}
			citations = append(citations, c)
		}
	}
	return citations
}

func sentimentOf(lower string) (model.Sentiment, float64) {
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	if pos+neg == 0 {
		return model.SentimentNeutral, 0
	}
	score := float64(pos-neg) / float64(pos+neg)
	switch {
	case score > 0.3:
		return model.SentimentPositive, score
	case score < -0.3:
		return model.SentimentNegative, score
	case pos > 0 && neg > 0:
		return model.SentimentMixed, score
	default:
		return model.SentimentNeutral, score
	}
}

func confidenceOf(lower string, mentioned, refused bool) model.ConfidenceLevel {
	if refused {
		return model.ConfidenceLow
	}
	hedges, certain := 0, 0
	for _, p := range hedgingPhrases {
		hedges += strings.Count(lower, p)
	}
	for _, p := range certaintyPhrases {
		certain += strings.Count(lower, p)
	}
	switch {
	case mentioned && certain > hedges && hedges <= 1:
		return model.ConfidenceHigh
	case hedges > certain+2 || !mentioned:
		return model.ConfidenceLow
	default:
		return model.ConfidenceMedium
	}
}

func isRefusal(raw string) bool {
	for _, re := range refusalPatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

func countClaims(raw string) int {
	n := 0
	for _, re := range claimPatterns {
		n += len(re.FindAllString(raw, -1))
	}
	return n
}

func hasFactualClaim(raw string) bool {
	return countClaims(raw) > 0
}

// firstSentenceMentioning returns the first sentence containing the company
// name, for use as implicit-citation evidence.
func firstSentenceMentioning(raw, companyName string) string {
	lowerName := strings.ToLower(companyName)
	for _, sentence := range strings.Split(raw, ".") {
		if strings.Contains(strings.ToLower(sentence), lowerName) {
			return truncate(strings.TrimSpace(sentence), 200)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
