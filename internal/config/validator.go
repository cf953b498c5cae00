package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.Provider {
	case "ollama", "openai":
	default:
		errors = append(errors, ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q, must be ollama or openai", c.Provider),
		})
	}

	if c.Provider == "ollama" {
		if c.Ollama.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "ollama.base_url",
				Message: "Ollama base URL is required",
			})
		} else if _, err := url.Parse(c.Ollama.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "ollama.base_url",
				Message: "invalid Ollama base URL",
			})
		}
	}

	if c.Provider == "openai" && c.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.api_key",
			Message: "OpenAI API key is required (set OPENAI_API_KEY)",
		})
	}

	if c.Chunking.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if t := c.Models.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		errors = append(errors, ValidationError{
			Field:   "models.generation.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Models.Generation.MaxTokens < 1 || c.Models.Generation.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "models.generation.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if m := c.Retrieval.MinScore; m != nil && (*m < -1 || *m > 1) {
		errors = append(errors, ValidationError{
			Field:   "retrieval.min_score",
			Message: "min_score must be a cosine similarity between -1 and 1",
		})
	}

	if m := c.Reply.MinScore; m != nil && (*m < -1 || *m > 1) {
		errors = append(errors, ValidationError{
			Field:   "reply.min_score",
			Message: "min_score must be a cosine similarity between -1 and 1",
		})
	}

	if c.Reply.RatePerSecond < 0 {
		errors = append(errors, ValidationError{
			Field:   "reply.rate_per_second",
			Message: "rate_per_second must be non-negative",
		})
	}

	if c.VectorStore.PersistDirectory == "" {
		errors = append(errors, ValidationError{
			Field:   "vector_store.persist_directory",
			Message: "persist_directory is required",
		})
	}

	if c.VectorStore.FAQDirectory == "" {
		errors = append(errors, ValidationError{
			Field:   "vector_store.faq_directory",
			Message: "faq_directory is required",
		})
	}

	return errors
}
