package provider

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "")
	assert.Error(t, err)

	_, err = NewOpenAIGenerator("", "")
	assert.Error(t, err)
}

func TestNewOpenAIEmbedderModelDimensions(t *testing.T) {
	tests := []struct {
		name  string
		model string
		dim   int
	}{
		{"default model", "", 1536},
		{"small", string(openai.SmallEmbedding3), 1536},
		{"large", string(openai.LargeEmbedding3), 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := NewOpenAIEmbedder("sk-test", tt.model)
			require.NoError(t, err)

			dim, err := emb.Dimension(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.dim, dim)
		})
	}
}

func TestOpenAIEmbedderEmptyBatch(t *testing.T) {
	emb, err := NewOpenAIEmbedder("sk-test", "")
	require.NoError(t, err)

	// An empty batch must not hit the API at all.
	vectors, err := emb.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIEmbedderRejectsBlankQuery(t *testing.T) {
	emb, err := NewOpenAIEmbedder("sk-test", "")
	require.NoError(t, err)

	_, err = emb.EmbedQuery(context.Background(), "   ")
	assert.Error(t, err)
}

func TestOllamaDimensionFallsBack(t *testing.T) {
	// Unreachable server: the probe fails and the known default wins.
	emb, err := NewOllamaEmbedder("http://127.0.0.1:1", "nomic-embed-text")
	require.NoError(t, err)

	dim, err := emb.Dimension(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaDim, dim)
}

func TestOllamaEmbedderRejectsBlankQuery(t *testing.T) {
	emb, err := NewOllamaEmbedder("", "nomic-embed-text")
	require.NoError(t, err)

	_, err = emb.EmbedQuery(context.Background(), "")
	assert.Error(t, err)
}
