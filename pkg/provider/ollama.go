package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// defaultOllamaDim is the nomic-embed-text output dimension, used
// when the dimension probe cannot reach the server.
const defaultOllamaDim = 768

// OllamaEmbedder embeds text with a local Ollama embedding model.
type OllamaEmbedder struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaEmbedder connects to an Ollama server. serverURL may be
// empty for the default local address.
func NewOllamaEmbedder(serverURL, model string) (*OllamaEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}
	return &OllamaEmbedder{llm: llm, model: model}, nil
}

// EmbedDocuments embeds a batch of texts in one round trip.
func (e *OllamaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingUnavailable, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension probes the model with a short embedding request. It falls
// back to the nomic-embed-text default when the server cannot be
// reached.
func (e *OllamaEmbedder) Dimension(ctx context.Context) (int, error) {
	probe, err := e.EmbedQuery(ctx, "test")
	if err != nil {
		return defaultOllamaDim, nil
	}
	return len(probe), nil
}

// OllamaGenerator generates text with a local Ollama model.
type OllamaGenerator struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaGenerator connects to an Ollama server for generation.
func NewOllamaGenerator(serverURL, model string) (*OllamaGenerator, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama generator: %w", err)
	}
	return &OllamaGenerator{llm: llm, model: model}, nil
}

// Generate produces a completion for the prompt.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	return strings.TrimSpace(out), nil
}

// GenerateStream produces a completion, invoking fn with each
// incremental piece of output as it arrives.
func (g *OllamaGenerator) GenerateStream(ctx context.Context, prompt string, opts Options, fn func(chunk string) error) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return fn(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	return nil
}
