// Package provider defines the embedding and generation collaborators
// the engine depends on, plus Ollama and OpenAI implementations.
package provider

import (
	"context"
	"errors"
)

// Common errors
var (
	// ErrEmbeddingUnavailable is returned when the embedding backend
	// cannot be reached or rejects a request.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable is returned when the generation backend
	// cannot be reached or rejects a request.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
)

// Options holds sampling options for text generation.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Embedder produces embedding vectors for document and query text.
type Embedder interface {
	// EmbedDocuments embeds a batch of chunk texts, one vector per text,
	// in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension reports the vector dimension the model produces.
	Dimension(ctx context.Context) (int, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// StreamingGenerator is implemented by generators that can yield
// incremental output.
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, prompt string, opts Options, fn func(chunk string) error) error
}
