// Package pipeline orchestrates a full audit run: index the site, simulate
// retrieval, score, generate fixes, estimate impact, optionally observe live
// providers, and assemble the report.
package pipeline

import (
	"context"

	"github.com/sourcelens/audit-cli/internal/model"
)

// Crawler fetches a site's pages.
type Crawler interface {
	Crawl(ctx context.Context, domain string, maxDepth int) ([]model.CrawledPage, error)
}

// Extractor turns crawled HTML into clean text with structure.
type Extractor interface {
	Extract(ctx context.Context, pages []model.CrawledPage) ([]model.ExtractedPage, error)
}

// Chunker splits extracted pages into retrievable chunks.
type Chunker interface {
	Chunk(pages []model.ExtractedPage) []model.Chunk
}

// Embedder computes embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedMany(ctx context.Context, chunks []model.Chunk) ([]model.EmbeddingResult, error)
}
