package driving

import (
	"context"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// RAGService drives the index-or-load pipeline and answers questions.
type RAGService interface {
	// Prepare loads the persisted vector store or builds it from the source
	// document. It returns the resulting state.
	Prepare(ctx context.Context) (domain.IndexState, error)

	// Ask answers one question. Prepare must have succeeded first.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// Run prepares the store then asks each query in turn, printing every
	// answer. A failed query is logged and the next one still runs.
	Run(ctx context.Context, queries []string) error

	// State returns the current driver state.
	State() domain.IndexState

	// Close releases the vector store.
	Close() error
}

// Answerer answers a question from retrieved context.
type Answerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}
