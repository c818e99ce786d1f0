package model

// Chunk is the indexable unit: a bounded segment of extracted page text with
// its source location and a dense embedding. Chunks are immutable once added
// to an index.
type Chunk struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	HeadingPath string    `json:"heading_path"`
	Embedding   []float64 `json:"embedding,omitempty"`
}

// RetrievalResult is one ranked document returned by the hybrid retriever.
// CombinedScore carries reciprocal-rank-fusion semantics; KeywordScore and
// VectorScore are the component scores before fusion.
type RetrievalResult struct {
	DocID         string  `json:"doc_id"`
	Content       string  `json:"content"`
	CombinedScore float64 `json:"combined_score"`
	KeywordScore  float64 `json:"keyword_score"`
	VectorScore   float64 `json:"vector_score"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	HeadingPath   string  `json:"heading_path"`
}

// RetrievedContext is the evidence set assembled for a single question.
type RetrievedContext struct {
	Results        []RetrievalResult `json:"results"`
	Count          int               `json:"count"`
	AvgScore       float64           `json:"avg_score"`
	MaxScore       float64           `json:"max_score"`
	UniqueSources  []string          `json:"unique_sources"`
	ContentPreview string            `json:"content_preview"`
}

// SignalMatch records whether one expected signal was found in retrieved
// content. Confidence is in [0,1]; Evidence is a snippet around the match.
type SignalMatch struct {
	Signal     string  `json:"signal"`
	Found      bool    `json:"found"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}
