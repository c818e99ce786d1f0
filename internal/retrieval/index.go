// Package retrieval implements the in-memory hybrid index: BM25 lexical
// ranking fused with embedding similarity via reciprocal-rank fusion.
//
// The index is single-writer: populate it fully with Add before searching.
// It lives for a single audit run.
package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/model"
)

// rrfK is the reciprocal-rank-fusion constant: fused(d) = sum 1/(k + rank).
const rrfK = 60

// normKnee and normScale define the normalization contract for downstream
// consumers (see Normalize).
const (
	normKnee  = 0.1
	normScale = 0.02
)

// Embedder computes dense embeddings for queries. Collaborator interface;
// the index stores document embeddings as given in Add.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type indexedDoc struct {
	id          string
	content     string
	url         string
	title       string
	headingPath string
	embedding   []float64
	terms       map[string]int
	length      int
}

// Index is the in-memory hybrid retrieval index.
type Index struct {
	embedder   Embedder
	docs       []indexedDoc
	docFreq    map[string]int
	totalTerms int
}

// NewIndex creates an empty index. The embedder is used for queries only
// and may be nil, which forces lexical-only ranking.
func NewIndex(embedder Embedder) *Index {
	return &Index{
		embedder: embedder,
		docFreq:  make(map[string]int),
	}
}

// Add indexes one document. Documents are immutable after Add; call Add for
// the whole corpus before the first Search.
func (ix *Index) Add(docID, content string, embedding []float64, url, title, headingPath string) {
	tokens := tokenize(content)
	terms := termCounts(tokens)
	for term := range terms {
		ix.docFreq[term]++
	}
	ix.totalTerms += len(tokens)
	ix.docs = append(ix.docs, indexedDoc{
		id:          docID,
		content:     content,
		url:         url,
		title:       title,
		headingPath: headingPath,
		embedding:   embedding,
		terms:       terms,
		length:      len(tokens),
	})
}

// Size returns the number of indexed documents.
func (ix *Index) Size() int {
	return len(ix.docs)
}

// SearchResult is the outcome of one query. LexicalOnly is set when the
// query embedding failed and ranking fell back to BM25 alone.
type SearchResult struct {
	Results     []model.RetrievalResult
	LexicalOnly bool
}

// Search ranks documents for the query and returns at most limit results
// whose normalized combined score is at least minScore. An empty query or
// an empty index returns an empty result, never an error.
func (ix *Index) Search(ctx context.Context, query string, limit int, minScore float64) SearchResult {
	if query == "" || len(ix.docs) == 0 {
		return SearchResult{}
	}

	queryTerms := tokenize(query)

	lexScores := make([]float64, len(ix.docs))
	for i := range ix.docs {
		lexScores[i] = ix.bm25Score(queryTerms, &ix.docs[i])
	}

	lexicalOnly := false
	vecScores := make([]float64, len(ix.docs))
	if ix.embedder == nil {
		lexicalOnly = true
	} else {
		queryVec, err := ix.embedder.Embed(ctx, query)
		if err != nil {
			lexicalOnly = true
			zap.L().Warn("retrieval: query embedding failed, using lexical-only ranking",
				zap.String("query", query),
				zap.Error(err),
			)
		} else {
			for i := range ix.docs {
				vecScores[i] = cosine(queryVec, ix.docs[i].embedding)
			}
		}
	}

	lexRank := rankOf(ix.docs, lexScores)
	var vecRank map[int]int
	if !lexicalOnly {
		vecRank = rankOf(ix.docs, vecScores)
	}

	type scored struct {
		idx   int
		fused float64
	}
	fused := make([]scored, 0, len(ix.docs))
	for i := range ix.docs {
		f := 0.0
		if r, ok := lexRank[i]; ok {
			f += 1.0 / float64(rrfK+r)
		}
		if r, ok := vecRank[i]; ok {
			f += 1.0 / float64(rrfK+r)
		}
		if f > 0 {
			fused = append(fused, scored{idx: i, fused: f})
		}
	}

	// Fused descending; ties by lexical score, then doc id for determinism.
	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].fused != fused[b].fused {
			return fused[a].fused > fused[b].fused
		}
		if lexScores[fused[a].idx] != lexScores[fused[b].idx] {
			return lexScores[fused[a].idx] > lexScores[fused[b].idx]
		}
		return ix.docs[fused[a].idx].id < ix.docs[fused[b].idx].id
	})

	var results []model.RetrievalResult
	for _, s := range fused {
		if len(results) == limit {
			break
		}
		if Normalize(s.fused) < minScore {
			continue
		}
		d := &ix.docs[s.idx]
		results = append(results, model.RetrievalResult{
			DocID:         d.id,
			Content:       d.content,
			CombinedScore: s.fused,
			KeywordScore:  lexScores[s.idx],
			VectorScore:   vecScores[s.idx],
			URL:           d.url,
			Title:         d.title,
			HeadingPath:   d.headingPath,
		})
	}

	return SearchResult{Results: results, LexicalOnly: lexicalOnly}
}

// rankOf returns 1-based ranks for documents with positive scores, ordered
// by score descending with ties broken by doc id. Documents with
// non-positive scores are absent (missing rank contributes 0 to fusion).
func rankOf(docs []indexedDoc, scores []float64) map[int]int {
	idxs := make([]int, 0, len(docs))
	for i, s := range scores {
		if s > 0 {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		if scores[idxs[a]] != scores[idxs[b]] {
			return scores[idxs[a]] > scores[idxs[b]]
		}
		return docs[idxs[a]].id < docs[idxs[b]].id
	})
	ranks := make(map[int]int, len(idxs))
	for r, i := range idxs {
		ranks[i] = r + 1
	}
	return ranks
}

// Normalize maps a raw RRF combined score into [0,1] relevance. Raw RRF
// magnitudes are typically 1e-3 to 3e-2; this rule is part of the
// retriever's public contract and the simulation stage depends on it.
func Normalize(raw float64) float64 {
	if raw >= normKnee {
		return raw
	}
	v := raw / normScale
	if v > 1 {
		return 1
	}
	return v
}
