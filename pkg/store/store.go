// Package store implements a durable, append-only similarity index over
// unit-normalized embedding vectors with a parallel chunk arena.
//
// Position i in the vector index always corresponds to position i in
// the chunk arena. Search is exact: an inner-product scan over every
// stored vector, which equals cosine similarity because both sides are
// normalized. The store is safe for concurrent use: many readers, one
// writer.
package store

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ragstack/docrag/pkg/chunker"
)

// IndexKind names the only index implementation: a flat inner-product
// scan.
const IndexKind = "flat-ip"

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk chunker.Chunk `json:"chunk"`
	Score float64       `json:"score"`
}

// Stats reports the current shape of a store.
type Stats struct {
	Chunks    int    `json:"num_chunks"`
	Vectors   int    `json:"num_vectors"`
	Dim       int    `json:"embedding_dimension"`
	IndexKind string `json:"index_type"`
}

// Store is an append-only vector index with a parallel chunk list,
// persisted as a matched file pair under a directory.
type Store struct {
	mu      sync.RWMutex
	dim     int
	dir     string
	chunks  []chunker.Chunk
	vectors [][]float32
}

// New creates an empty store for vectors of the given dimension,
// persisted under dir.
func New(dim int, dir string) (*Store, error) {
	if dim <= 0 {
		return nil, wrapError("init", fmt.Errorf("dimension must be positive, got %d", dim))
	}
	if dir == "" {
		return nil, wrapError("init", fmt.Errorf("persist directory cannot be empty"))
	}
	return &Store{dim: dim, dir: dir}, nil
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged (treated as already normalized) to avoid division by zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, val := range out {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return out
	}

	inv := 1.0 / math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}

// Add validates, normalizes and appends the given chunks and
// embeddings as parallel entries. On any validation failure the store
// is left unchanged. Existing entries are never reordered or mutated.
func (s *Store) Add(chunks []chunker.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return wrapError("add", fmt.Errorf("%w: %d chunks but %d embeddings",
			ErrDimensionMismatch, len(chunks), len(embeddings)))
	}
	if len(chunks) == 0 {
		return nil
	}
	for i, emb := range embeddings {
		if len(emb) != s.dim {
			return wrapError("add", fmt.Errorf("%w: embedding %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(emb), s.dim))
		}
	}

	normalized := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		normalized[i] = Normalize(emb)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, normalized...)
	return nil
}

// Search returns up to topK chunks whose cosine similarity to the
// query is at least minScore, sorted descending by score with ties
// broken by insertion order. topK is clamped to the number of stored
// vectors. The scan is exact.
func (s *Store) Search(query []float32, topK int, minScore float64) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, wrapError("search", ErrEmptyStore)
	}
	if len(query) != s.dim {
		return nil, wrapError("search", fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(query), s.dim))
	}

	q := Normalize(query)

	results := make([]ScoredChunk, 0, len(s.vectors))
	for i, vec := range s.vectors {
		score := dot(q, vec)
		if score >= minScore {
			results = append(results, ScoredChunk{Chunk: s.chunks[i], Score: score})
		}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < 0 {
		topK = 0
	}
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Clear irreversibly resets the store to an empty index and chunk
// list. Persisted files are untouched; use Remove to delete them.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
}

// Stats reports chunk count, vector count, configured dimension and
// index kind.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Chunks:    len(s.chunks),
		Vectors:   len(s.vectors),
		Dim:       s.dim,
		IndexKind: IndexKind,
	}
}

// Dim returns the configured vector dimension.
func (s *Store) Dim() int {
	return s.dim
}

// dot computes the inner product of two equal-length vectors in
// float64 so repeated searches are bit-for-bit reproducible.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
