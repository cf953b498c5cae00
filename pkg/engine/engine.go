// Package engine wires one knowledge base end to end: chunk ingestion
// through the pipeline, and question answering through retrieval,
// prompt assembly and generation.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragstack/docrag/pkg/chunker"
	"github.com/ragstack/docrag/pkg/pipeline"
	"github.com/ragstack/docrag/pkg/prompt"
	"github.com/ragstack/docrag/pkg/provider"
	"github.com/ragstack/docrag/pkg/store"
)

// Config carries the retrieval and sampling settings for one engine.
type Config struct {
	TopK     int
	MinScore float64
	GenOpts  provider.Options
}

// Engine answers questions against a single knowledge base. Build one
// Engine per base; a general index and an FAQ index are independent
// instances with independent persistence.
type Engine struct {
	pipeline  *pipeline.Pipeline
	generator provider.Generator
	cfg       Config
}

// New builds an engine over an already-constructed pipeline.
func New(p *pipeline.Pipeline, g provider.Generator, cfg Config) *Engine {
	return &Engine{pipeline: p, generator: g, cfg: cfg}
}

// Ingest indexes one source document's chunks.
func (e *Engine) Ingest(ctx context.Context, sourceID string, chunks []chunker.Chunk) (pipeline.IngestStats, error) {
	return e.pipeline.Ingest(ctx, sourceID, chunks)
}

// Query answers a question from the indexed documents. Retrieval or
// generation failures propagate to the caller. When no chunk clears
// the relevance threshold the generator is not invoked at all and a
// fixed no-context answer is returned.
func (e *Engine) Query(ctx context.Context, question string) (prompt.Response, error) {
	if strings.TrimSpace(question) == "" {
		return prompt.Response{}, fmt.Errorf("question cannot be empty")
	}

	results, err := e.pipeline.Retrieve(ctx, question, e.cfg.TopK, e.cfg.MinScore)
	if err != nil {
		return prompt.Response{}, err
	}
	if len(results) == 0 {
		return prompt.Assemble(prompt.NoContextAnswer, nil), nil
	}

	answer, err := e.generator.Generate(ctx, prompt.Build(question, results), e.cfg.GenOpts)
	if err != nil {
		return prompt.Response{}, err
	}
	return prompt.Assemble(answer, results), nil
}

// LoadExisting restores the persisted index for this base, if any.
func (e *Engine) LoadExisting() (bool, error) {
	return e.pipeline.LoadExisting()
}

// Clear resets the base: store, persisted files and ledger.
func (e *Engine) Clear(ctx context.Context) error {
	return e.pipeline.Clear(ctx)
}

// Stats reports the underlying store's shape.
func (e *Engine) Stats() store.Stats {
	return e.pipeline.Store().Stats()
}

// Sources lists ingested source documents.
func (e *Engine) Sources(ctx context.Context) ([]string, error) {
	return e.pipeline.Sources(ctx)
}
