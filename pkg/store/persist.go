package store

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragstack/docrag/internal/encoding"
	"github.com/ragstack/docrag/pkg/chunker"
)

const (
	vectorSuffix = ".vec"
	chunkSuffix  = ".chunks.json"
)

// chunkFile is the on-disk shape of the chunk half of a persisted
// pair. Generation matches the vector half written by the same save,
// so a pair assembled from two different saves is detectable even
// when chunk counts and dimensions happen to coincide.
type chunkFile struct {
	Generation uint64          `json:"generation"`
	Chunks     []chunker.Chunk `json:"chunks"`
}

func newGeneration() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (s *Store) vectorPath(name string) string {
	return filepath.Join(s.dir, name+vectorSuffix)
}

func (s *Store) chunkPath(name string) string {
	return filepath.Join(s.dir, name+chunkSuffix)
}

// Save serializes the index and parallel chunk list under the given
// name. Both halves carry the same freshly drawn generation id and
// are written to temporary files first and renamed into place, so a
// crash mid-save never leaves a loadable mismatched pair.
func (s *Store) Save(name string) error {
	if name == "" {
		return wrapError("save", fmt.Errorf("index name cannot be empty"))
	}

	s.mu.RLock()
	vectors := s.vectors
	chunks := s.chunks
	s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return wrapError("save", err)
	}

	generation, err := newGeneration()
	if err != nil {
		return wrapError("save", err)
	}

	vecData, err := encoding.EncodeMatrix(generation, s.dim, vectors)
	if err != nil {
		return wrapError("save", err)
	}
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	chunkData, err := json.Marshal(chunkFile{Generation: generation, Chunks: chunks})
	if err != nil {
		return wrapError("save", err)
	}

	vecTmp := s.vectorPath(name) + ".tmp"
	chunkTmp := s.chunkPath(name) + ".tmp"
	if err := os.WriteFile(vecTmp, vecData, 0o644); err != nil {
		return wrapError("save", err)
	}
	if err := os.WriteFile(chunkTmp, chunkData, 0o644); err != nil {
		os.Remove(vecTmp)
		return wrapError("save", err)
	}

	if err := os.Rename(vecTmp, s.vectorPath(name)); err != nil {
		os.Remove(vecTmp)
		os.Remove(chunkTmp)
		return wrapError("save", err)
	}
	if err := os.Rename(chunkTmp, s.chunkPath(name)); err != nil {
		os.Remove(chunkTmp)
		return wrapError("save", err)
	}
	return nil
}

// Load restores a previously saved index and chunk list. It returns
// (false, nil) when no pair has been saved under name yet, and
// (false, error) when files are present but unreadable. In both cases
// the store keeps its prior state; it is never partially populated.
func (s *Store) Load(name string) (bool, error) {
	if name == "" {
		return false, wrapError("load", fmt.Errorf("index name cannot be empty"))
	}

	vecData, vecErr := os.ReadFile(s.vectorPath(name))
	chunkData, chunkErr := os.ReadFile(s.chunkPath(name))

	if errors.Is(vecErr, os.ErrNotExist) && errors.Is(chunkErr, os.ErrNotExist) {
		return false, nil
	}
	if vecErr != nil {
		return false, wrapError("load", fmt.Errorf("%w: %v", ErrLoadFailure, vecErr))
	}
	if chunkErr != nil {
		return false, wrapError("load", fmt.Errorf("%w: %v", ErrLoadFailure, chunkErr))
	}

	generation, dim, vectors, err := encoding.DecodeMatrix(vecData)
	if err != nil {
		return false, wrapError("load", fmt.Errorf("%w: %v", ErrLoadFailure, err))
	}
	if dim != s.dim {
		return false, wrapError("load", fmt.Errorf("%w: saved dimension %d, store expects %d",
			ErrLoadFailure, dim, s.dim))
	}

	var cf chunkFile
	if err := json.Unmarshal(chunkData, &cf); err != nil {
		return false, wrapError("load", fmt.Errorf("%w: %v", ErrLoadFailure, err))
	}
	if cf.Generation != generation {
		return false, wrapError("load", fmt.Errorf("%w: vector and chunk halves come from different saves",
			ErrLoadFailure))
	}
	chunks := cf.Chunks
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	if len(chunks) != len(vectors) {
		return false, wrapError("load", fmt.Errorf("%w: %d chunks but %d vectors",
			ErrLoadFailure, len(chunks), len(vectors)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = chunks
	s.vectors = vectors
	return true, nil
}

// Remove deletes the persisted pair for name, if present.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.vectorPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapError("remove", err)
	}
	if err := os.Remove(s.chunkPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapError("remove", err)
	}
	return nil
}
