package localindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"equity-backend/internal/shared/telemetry"
)

var (
	// ErrNotFound indicates the snapshot file does not exist.
	ErrNotFound = errors.New("local index snapshot not found")
	// ErrFormat indicates the snapshot is not a list-of-records structure.
	ErrFormat = errors.New("invalid local index snapshot format")
)

// Embedder encodes text into a fixed-length vector. It must be the same
// model used to build the snapshot or similarity scores are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkMetadata carries the section path and position of a chunk within
// its source document.
type ChunkMetadata struct {
	Headings      []string `json:"headings"`
	PositionIndex int      `json:"position_index"`
	PositionTotal int      `json:"position_total"`
}

// Chunk is one pre-embedded entry of the reference corpus. Immutable once
// loaded.
type Chunk struct {
	ID        int           `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Result is a chunk annotated with its similarity score.
type Result struct {
	Chunk Chunk
	Score float64
}

// Index is an in-memory similarity index over the reference corpus,
// read-only after Load. Safe for concurrent searches.
type Index struct {
	mu       sync.RWMutex
	chunks   []Chunk
	embedder Embedder
}

// Load reads a snapshot file into a new Index. Chunks with malformed
// embeddings stay in storage but are excluded from similarity computation.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	invalid := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			invalid++
		}
	}
	telemetry.Info("localindex.loaded", map[string]any{
		"path":               path,
		"chunks":             len(chunks),
		"invalid_embeddings": invalid,
	})

	return &Index{chunks: chunks}, nil
}

// SetEmbedder installs the query embedding function. Without one the index
// is loaded but non-searchable and Search returns empty results.
func (idx *Index) SetEmbedder(e Embedder) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.embedder = e
}

// Len reports the number of loaded chunks, including non-searchable ones.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

const normEpsilon = 1e-9

// Search returns the topK most similar chunks by cosine similarity, sorted
// by non-increasing score. Missing embedder, empty index, empty query, or
// topK <= 0 all yield an empty result without error: local context is an
// enrichment, not a requirement.
func (idx *Index) Search(ctx context.Context, query string, topK int) []Result {
	idx.mu.RLock()
	chunks := idx.chunks
	embedder := idx.embedder
	idx.mu.RUnlock()

	if topK <= 0 || len(chunks) == 0 || query == "" {
		return nil
	}
	if embedder == nil {
		telemetry.Warn("localindex.search.no_embedder", map[string]any{"query_len": len(query)})
		return nil
	}

	queryEmb, err := embedder.Embed(ctx, query)
	if err != nil {
		telemetry.Warn("localindex.search.embed_failed", map[string]any{"err": err.Error()})
		return nil
	}
	queryNorm := norm(queryEmb)
	if queryNorm <= normEpsilon {
		return nil
	}

	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryEmb) {
			continue
		}
		docNorm := norm(c.Embedding)
		if docNorm <= normEpsilon {
			continue
		}
		score := dot(queryEmb, c.Embedding) / (queryNorm * docNorm)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		results = append(results, Result{Chunk: c, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
