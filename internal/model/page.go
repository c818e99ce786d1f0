package model

// CrawledPage is the crawler collaborator's output for one URL.
type CrawledPage struct {
	URL    string `json:"url"`
	HTML   string `json:"html"`
	Status int    `json:"status"`
	Depth  int    `json:"depth"`
}

// ExtractedPage is the extractor collaborator's output: clean text plus
// structure pulled from a crawled page.
type ExtractedPage struct {
	URL         string              `json:"url"`
	Title       string              `json:"title"`
	MainContent string              `json:"main_content"`
	WordCount   int                 `json:"word_count"`
	Headings    map[string][]string `json:"headings"`
	Metadata    map[string]string   `json:"metadata"`
}

// EmbeddingResult pairs a chunk with its computed embedding.
type EmbeddingResult struct {
	ChunkIndex  int       `json:"chunk_index"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float64 `json:"embedding"`
}
