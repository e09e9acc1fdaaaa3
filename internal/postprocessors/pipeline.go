// Package postprocessors turns loaded documents into indexable chunks.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/postprocessors/chunker"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains PostProcessors and runs them in order.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// NewChunkingPipeline returns the standard pipeline: a single chunker with
// the given window size and overlap.
func NewChunkingPipeline(chunkSize, overlap int) *Pipeline {
	return NewPipeline(chunker.New(
		chunker.WithChunkSize(chunkSize),
		chunker.WithOverlap(overlap),
	))
}

// Process runs the document through all processors in order.
// The first processor receives nil chunks and should create them.
// Subsequent processors receive and may modify the chunks.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	var chunks []domain.Chunk

	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}

// ProcessAll runs every document through the pipeline and returns the
// chunks in document order. Position is renumbered across the whole
// corpus so it reflects global insertion order.
func (p *Pipeline) ProcessAll(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk

	for i := range docs {
		chunks, err := p.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("document %s (page %d): %w", docs[i].ID, docs[i].Page, err)
		}
		for j := range chunks {
			chunks[j].Position = len(all)
			all = append(all, chunks[j])
		}
	}

	return all, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
