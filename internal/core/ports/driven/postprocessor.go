package driven

import (
	"context"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline; the chunker comes first.
type PostProcessor interface {
	// Name returns the processor name for logging.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks (the chunker) receives nil.
	// A processor that refines chunks receives and returns them.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)

	// ProcessAll runs every document in order and returns all chunks with
	// Position renumbered across the whole corpus.
	ProcessAll(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error)
}
