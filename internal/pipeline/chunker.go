package pipeline

import (
	"fmt"
	"strings"

	"github.com/sourcelens/audit-cli/internal/model"
)

const (
	chunkTargetWords  = 200
	chunkOverlapWords = 30
)

// HeadingChunker splits page content on paragraph boundaries into chunks of
// roughly chunkTargetWords words, carrying the page's first h1 as the
// heading path.
type HeadingChunker struct{}

// NewHeadingChunker creates the default chunker.
func NewHeadingChunker() *HeadingChunker {
	return &HeadingChunker{}
}

// Chunk splits every page. Chunk ids are deterministic per page and index.
func (c *HeadingChunker) Chunk(pages []model.ExtractedPage) []model.Chunk {
	var chunks []model.Chunk
	for _, page := range pages {
		headingPath := ""
		if h1s := page.Headings["h1"]; len(h1s) > 0 {
			headingPath = h1s[0]
		}
		for i, content := range splitContent(page.MainContent) {
			chunks = append(chunks, model.Chunk{
				ID:          fmt.Sprintf("%s#%d", page.URL, i),
				Content:     content,
				URL:         page.URL,
				Title:       page.Title,
				HeadingPath: headingPath,
			})
		}
	}
	return chunks
}

// splitContent packs paragraphs into word-bounded segments with a small
// overlap so answers spanning a boundary stay retrievable.
func splitContent(content string) []string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkTargetWords {
		return []string{strings.Join(words, " ")}
	}

	var segments []string
	step := chunkTargetWords - chunkOverlapWords
	for start := 0; start < len(words); start += step {
		end := start + chunkTargetWords
		if end > len(words) {
			end = len(words)
		}
		segments = append(segments, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return segments
}
