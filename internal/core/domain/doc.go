// Package domain defines the core entities of the localrag pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: one loaded page of the source file
//   - Chunk: a bounded window of a Document, the unit of retrieval
//   - RetrievedChunk: a Chunk scored against a query
//   - Answer: the chat model's reply to one question
//   - IndexState: the two states of the index-or-load driver
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
