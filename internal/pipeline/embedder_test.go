package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/model"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Acme is a logistics platform")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Acme is a logistics platform")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, localEmbedderDims)
}

func TestLocalEmbedder_NormalizedVectors(t *testing.T) {
	e := NewLocalEmbedder()

	vec, err := e.Embed(context.Background(), "pricing plans start at forty nine dollars")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestLocalEmbedder_DistinctTextsDiffer(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "logistics and shipping routes")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "enterprise pricing tiers")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocalEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewLocalEmbedder()

	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestLocalEmbedder_CancelledContext(t *testing.T) {
	e := NewLocalEmbedder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalEmbedder_EmbedMany(t *testing.T) {
	e := NewLocalEmbedder()

	chunks := []model.Chunk{
		{ID: "a#0", Content: "Acme is a logistics platform"},
		{ID: "a#1", Content: "Plans start at $49 per month"},
		{ID: "b#0", Content: "Acme is a logistics platform"},
	}

	results, err := e.EmbedMany(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, 2, results[2].ChunkIndex)
	// Identical content hashes and embeds identically.
	assert.Equal(t, results[0].ContentHash, results[2].ContentHash)
	assert.Equal(t, results[0].Embedding, results[2].Embedding)
	assert.NotEqual(t, results[0].ContentHash, results[1].ContentHash)
}
