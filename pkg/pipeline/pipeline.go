// Package pipeline orchestrates de-duplicated ingestion and query-time
// retrieval over one vector store instance. Independent knowledge
// bases (for example a general index and an FAQ-only index) each get
// their own Pipeline, store, and ledger, and share no mutable state.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragstack/docrag/pkg/chunker"
	"github.com/ragstack/docrag/pkg/provider"
	"github.com/ragstack/docrag/pkg/store"
)

// IngestStats summarizes one ingestion call.
type IngestStats struct {
	Source      string `json:"source"`
	Skipped     bool   `json:"skipped"`
	Chunks      int    `json:"num_chunks"`
	Pages       int    `json:"num_pages"`
	Dim         int    `json:"embedding_dimension"`
	TotalChunks int    `json:"total_chunks"`
}

// Pipeline ties an embedding provider to a single vector store and its
// ingestion ledger.
type Pipeline struct {
	store     *store.Store
	embedder  provider.Embedder
	ledger    *Ledger
	indexName string
}

// New builds a pipeline over one knowledge base. indexName keys the
// persisted store files.
func New(s *store.Store, embedder provider.Embedder, ledger *Ledger, indexName string) *Pipeline {
	return &Pipeline{store: s, embedder: embedder, ledger: ledger, indexName: indexName}
}

// Ingest embeds and indexes the chunks of one source document, then
// persists the store and records the source in the ledger. A source
// already present in the ledger is reported as skipped without calling
// the embedder. The source is only marked ingested after embedding,
// indexing and persisting all succeeded.
func (p *Pipeline) Ingest(ctx context.Context, sourceID string, chunks []chunker.Chunk) (IngestStats, error) {
	stats := IngestStats{Source: sourceID}

	seen, err := p.ledger.Has(ctx, sourceID)
	if err != nil {
		return stats, err
	}
	if seen {
		stats.Skipped = true
		stats.TotalChunks = p.store.Stats().Chunks
		return stats, nil
	}

	texts := make([]string, len(chunks))
	pages := make(map[int]struct{}, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		pages[c.Page] = struct{}{}
	}

	// Provider calls happen outside any store lock.
	embeddings, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return stats, fmt.Errorf("ingest %s: %w", sourceID, err)
	}

	if err := p.store.Add(chunks, embeddings); err != nil {
		return stats, fmt.Errorf("ingest %s: %w", sourceID, err)
	}
	if err := p.store.Save(p.indexName); err != nil {
		return stats, fmt.Errorf("ingest %s: %w", sourceID, err)
	}
	if err := p.ledger.Add(ctx, sourceID); err != nil {
		return stats, fmt.Errorf("ingest %s: %w", sourceID, err)
	}

	stats.Chunks = len(chunks)
	stats.Pages = len(pages)
	if len(embeddings) > 0 {
		stats.Dim = len(embeddings[0])
	}
	stats.TotalChunks = p.store.Stats().Chunks
	return stats, nil
}

// Retrieve embeds the query and searches the store. Failures (embedder
// unreachable, empty store) propagate to the caller; interactive paths
// surface them directly.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]store.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.store.Search(queryVec, topK, minScore)
}

// RetrieveOrEmpty is the unattended-batch variant of Retrieve: every
// failure degrades to an empty result list instead of aborting the
// batch.
func (p *Pipeline) RetrieveOrEmpty(ctx context.Context, query string, topK int, minScore float64) []store.ScoredChunk {
	results, err := p.Retrieve(ctx, query, topK, minScore)
	if err != nil {
		return nil
	}
	return results
}

// LoadExisting restores the persisted index, if any.
func (p *Pipeline) LoadExisting() (bool, error) {
	return p.store.Load(p.indexName)
}

// Clear resets the store, deletes its persisted pair, and empties the
// ledger, returning every source to the not-ingested state.
func (p *Pipeline) Clear(ctx context.Context) error {
	p.store.Clear()
	if err := p.store.Remove(p.indexName); err != nil {
		return err
	}
	return p.ledger.Clear(ctx)
}

// Sources lists the ingested source ids in insertion order.
func (p *Pipeline) Sources(ctx context.Context) ([]string, error) {
	return p.ledger.List(ctx)
}

// Store exposes the underlying store for stats reporting.
func (p *Pipeline) Store() *store.Store {
	return p.store
}
