// Package sqlite provides the default persisted vector store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. The whole index lives in one file:
//
//   - chunks: chunk text, JSON metadata and the float32 embedding BLOB
//   - index_meta: the embedding fingerprint the index was built with
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at vector_db/index.db. Builds are written
// to a temporary file beside it and renamed into place only on success, so an
// interrupted build never leaves a loadable artifact.
//
// # Retrieval
//
// On load every embedding is read into a memory.Index and queries are scored
// by brute-force cosine similarity. This is exact and fast enough for a
// single book.
package sqlite
