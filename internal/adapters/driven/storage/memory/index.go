// Package memory provides the in-process vector index used by every
// persisted store, plus a non-persistent VectorStoreProvider.
package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

type entry struct {
	chunk domain.Chunk
	vec   []float32
	norm  float64
}

// Index is a brute-force cosine similarity index.
// All vectors must share one dimensionality.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries []entry
}

// NewIndex creates an index. dims of zero is fixed by the first Add.
func NewIndex(dims int) *Index {
	return &Index{dims: dims}
}

// Add stores a chunk with its embedding.
func (x *Index) Add(chunk domain.Chunk, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("chunk %s: empty embedding: %w", chunk.ID, domain.ErrInvalidInput)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dims == 0 {
		x.dims = len(vec)
	}
	if len(vec) != x.dims {
		return fmt.Errorf("chunk %s: embedding has %d dimensions, index has %d: %w",
			chunk.ID, len(vec), x.dims, domain.ErrIndexMismatch)
	}

	x.entries = append(x.entries, entry{chunk: chunk, vec: vec, norm: norm(vec)})
	return nil
}

// Search returns the k entries most similar to query, by descending cosine
// similarity with ties broken by ascending chunk Position.
func (x *Index) Search(query []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if len(query) != x.dims {
		return nil, fmt.Errorf("query embedding has %d dimensions, index has %d: %w",
			len(query), x.dims, domain.ErrIndexMismatch)
	}

	qnorm := norm(query)
	scored := make([]domain.RetrievedChunk, len(x.entries))
	for i := range x.entries {
		e := &x.entries[i]
		scored[i] = domain.RetrievedChunk{
			Chunk:      e.chunk,
			Similarity: cosine(query, e.vec, qnorm, e.norm),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Chunk.Position < scored[j].Chunk.Position
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Len returns the number of stored entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimensions returns the index dimensionality, zero if still unset.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dims
}

// Cosine returns the cosine similarity of a and b.
// Zero vectors have similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
