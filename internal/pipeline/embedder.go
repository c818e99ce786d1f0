package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"regexp"
	"strings"

	"github.com/sourcelens/audit-cli/internal/model"
)

const localEmbedderDims = 256

var embedTokenRegexp = regexp.MustCompile(`[a-z0-9]+`)

// LocalEmbedder produces deterministic embeddings by hashing tokens into a
// fixed-dimension bag-of-words vector. It needs no network access, so runs
// are reproducible offline; swap in a real embedding service for production
// quality vectors.
type LocalEmbedder struct{}

// NewLocalEmbedder creates the offline embedder.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{}
}

// Embed returns a normalized token-hash vector.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, localEmbedderDims)
	for _, token := range embedTokenRegexp.FindAllString(strings.ToLower(text), -1) {
		sum := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(sum[:4]) % localEmbedderDims
		sign := 1.0
		if sum[4]&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedMany embeds every chunk, pairing each embedding with a content hash.
func (e *LocalEmbedder) EmbedMany(ctx context.Context, chunks []model.Chunk) ([]model.EmbeddingResult, error) {
	results := make([]model.EmbeddingResult, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := e.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256([]byte(chunk.Content))
		results = append(results, model.EmbeddingResult{
			ChunkIndex:  i,
			ContentHash: hex.EncodeToString(sum[:8]),
			Embedding:   embedding,
		})
	}
	return results, nil
}
