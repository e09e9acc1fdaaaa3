package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure interfaces are implemented.
var (
	_ driven.VectorStore         = (*VectorStore)(nil)
	_ driven.VectorStoreProvider = (*Provider)(nil)
)

// embedBatchSize is the number of chunk texts sent per EmbedBatch call.
const embedBatchSize = 64

// VectorStore is an Index bound to the EmbeddingService used for queries.
type VectorStore struct {
	index       *Index
	emb         driven.EmbeddingService
	fingerprint domain.IndexFingerprint
}

// NewVectorStore binds index to emb.
func NewVectorStore(index *Index, emb driven.EmbeddingService, fp domain.IndexFingerprint) *VectorStore {
	return &VectorStore{index: index, emb: emb, fingerprint: fp}
}

// Retrieve embeds query and searches the index.
// An empty store returns without calling the embedding service.
func (s *VectorStore) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	if s.index.Len() == 0 {
		return []domain.RetrievedChunk{}, nil
	}

	vec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Search(vec, k)
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	return s.index.Len(), nil
}

// Fingerprint returns the embedding configuration the store was built with.
func (s *VectorStore) Fingerprint() domain.IndexFingerprint {
	return s.fingerprint
}

// Close is a no-op for the in-memory store.
func (s *VectorStore) Close() error {
	return nil
}

// EmbedChunks embeds every chunk text in order, in batches.
// Any failure fails the whole call.
func EmbedChunks(ctx context.Context, chunks []domain.Chunk, emb driven.EmbeddingService) ([][]float32, error) {
	vecs := make([][]float32, 0, len(chunks))
	texts := make([]string, 0, embedBatchSize)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))

		texts = texts[:0]
		for i := start; i < end; i++ {
			texts = append(texts, chunks[i].Content)
		}

		batch, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(batch))
		}
		vecs = append(vecs, batch...)
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}

	return vecs, nil
}

// FingerprintOf describes emb as a store fingerprint.
func FingerprintOf(provider domain.AIProvider, emb driven.EmbeddingService, dims int) domain.IndexFingerprint {
	if dims == 0 {
		dims = emb.Dimensions()
	}
	return domain.IndexFingerprint{
		Provider:   provider,
		Model:      emb.ModelName(),
		Dimensions: dims,
	}
}

// CheckFingerprint fails with domain.ErrIndexMismatch when the stored and
// current embedding configurations differ.
func CheckFingerprint(stored, current domain.IndexFingerprint, location string) error {
	if stored.Matches(current) {
		return nil
	}
	return fmt.Errorf("%w: %s was built with %s but the current embedding model is %s; "+
		"delete it to rebuild the index", domain.ErrIndexMismatch, location, stored, current)
}

// Provider keeps built stores in process memory only.
// Load reports absent until Build has run once.
type Provider struct {
	mu       sync.Mutex
	provider domain.AIProvider
	built    *Index
	fp       domain.IndexFingerprint
}

// NewProvider creates an empty in-memory provider.
func NewProvider(provider domain.AIProvider) *Provider {
	return &Provider{provider: provider}
}

// Location describes the store.
func (p *Provider) Location() string {
	return "memory"
}

// Load returns the previously built store, if any.
func (p *Provider) Load(_ context.Context, emb driven.EmbeddingService) (driven.VectorStore, bool, error) {
	if emb == nil {
		return nil, false, errors.New("load: embedding service is nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.built == nil {
		return nil, false, nil
	}
	if err := CheckFingerprint(p.fp, FingerprintOf(p.provider, emb, 0), p.Location()); err != nil {
		return nil, false, err
	}
	return NewVectorStore(p.built, emb, p.fp), true, nil
}

// Build embeds every chunk and keeps the resulting index.
func (p *Provider) Build(ctx context.Context, chunks []domain.Chunk, emb driven.EmbeddingService) (driven.VectorStore, error) {
	if emb == nil {
		return nil, errors.New("build: embedding service is nil")
	}

	vecs, err := EmbedChunks(ctx, chunks, emb)
	if err != nil {
		return nil, err
	}

	index := NewIndex(0)
	for i := range chunks {
		if err := index.Add(chunks[i], vecs[i]); err != nil {
			return nil, err
		}
	}

	fp := FingerprintOf(p.provider, emb, index.Dimensions())

	p.mu.Lock()
	p.built = index
	p.fp = fp
	p.mu.Unlock()

	return NewVectorStore(index, emb, fp), nil
}
