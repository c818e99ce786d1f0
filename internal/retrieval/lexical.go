package retrieval

import (
	"math"
	"regexp"
	"strings"
)

// BM25 parameters. Standard values; the contract only requires monotonicity
// in term-match quality.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases and splits text into alphanumeric terms.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// termCounts returns term frequencies for a token stream.
func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// bm25Score computes the BM25 score of a document against query terms.
func (ix *Index) bm25Score(queryTerms []string, d *indexedDoc) float64 {
	if d.length == 0 || len(ix.docs) == 0 {
		return 0
	}
	avgLen := float64(ix.totalTerms) / float64(len(ix.docs))
	score := 0.0
	for _, term := range queryTerms {
		tf := float64(d.terms[term])
		if tf == 0 {
			continue
		}
		df := float64(ix.docFreq[term])
		idf := math.Log(1 + (float64(len(ix.docs))-df+0.5)/(df+0.5))
		norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(d.length)/avgLen))
		score += idf * norm
	}
	return score
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
