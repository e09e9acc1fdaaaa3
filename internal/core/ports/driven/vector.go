package driven

import (
	"context"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// VectorStore is an opened, persisted collection of embedded chunks.
// It is bound to the EmbeddingService it was built or loaded with.
type VectorStore interface {
	// Retrieve embeds query and returns the k most similar chunks by
	// descending cosine similarity, ties broken by ascending Position.
	// k larger than the store size returns every chunk; an empty store
	// returns an empty slice. k <= 0 is domain.ErrInvalidInput.
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Fingerprint returns the embedding configuration the store was built with.
	Fingerprint() domain.IndexFingerprint

	// Close releases the underlying connection.
	Close() error
}

// VectorStoreProvider opens or creates a VectorStore in its persistence location.
type VectorStoreProvider interface {
	// Load opens the persisted store if its artifact exists.
	// Absence is not an error: it returns (nil, false, nil).
	// A store built with a different embedding configuration returns
	// domain.ErrIndexMismatch.
	Load(ctx context.Context, emb EmbeddingService) (VectorStore, bool, error)

	// Build embeds every chunk and writes the store in one shot.
	// If any embedding fails the build fails and no artifact is left behind.
	Build(ctx context.Context, chunks []domain.Chunk, emb EmbeddingService) (VectorStore, error)

	// Location describes where the store lives, for progress output.
	Location() string
}
