package domain

import "errors"

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors, which adapters wrap around them.
var (
	// ErrNotFound indicates a requested entity or file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a source file format or backend with no adapter.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the chat model could not be reached or configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding model could not be reached or configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store could not be opened or written.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrIndexMismatch indicates a persisted store was built with a different
	// embedding configuration than the one in use.
	ErrIndexMismatch = errors.New("vector store embedding mismatch")

	// ErrEmptyCorpus indicates loading and chunking produced nothing to index.
	ErrEmptyCorpus = errors.New("no content to index")

	// ErrNotIndexed indicates a query was issued before a store was prepared.
	ErrNotIndexed = errors.New("vector store not prepared")
)
