// Package chunker provides a boundary-aware, overlapping text chunker.
package chunker

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators are the preferred split points, strongest first.
// A split lands just after the separator.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Processor splits document content into overlapping windows of at most
// chunkSize characters. It implements the PostProcessor interface.
//
// Consecutive chunks of a document share exactly overlap characters, so
// dropping the first overlap characters of every chunk but the first and
// concatenating gives back the document text.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the maximum chunk length in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the overlap between consecutive chunks in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Pages holding only whitespace produce no chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	runes := []rune(doc.Content)
	spans := p.split(runes)
	chunks := make([]domain.Chunk, 0, len(spans))

	for i, s := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta := domain.CopyMetadata(doc.Metadata)
		meta[domain.MetaStartIndex] = s.start

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    string(runes[s.start:s.end]),
			Position:   i,
			Metadata:   meta,
		})
	}

	return chunks, nil
}

// span is a half-open rune range [start, end).
type span struct {
	start int
	end   int
}

func (p *Processor) split(runes []rune) []span {
	n := len(runes)
	spans := make([]span, 0, n/(p.chunkSize-p.overlap)+1)

	start := 0
	for start < n {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = p.breakPoint(runes, start, end)
		}

		spans = append(spans, span{start: start, end: end})
		if end == n {
			break
		}

		// end > start+overlap always holds, so start strictly advances.
		start = end - p.overlap
	}

	return spans
}

// breakPoint returns the best split position in (start+overlap, limit].
// It falls back to limit when no separator fits.
func (p *Processor) breakPoint(runes []rune, start, limit int) int {
	lowest := start + p.overlap + 1

	for _, sep := range separators {
		for i := limit - len(sep); i+len(sep) >= lowest && i >= start; i-- {
			if hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}

	return limit
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
