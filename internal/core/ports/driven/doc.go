// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - DocumentLoader: Reads the source file into page-level Documents
//   - PostProcessor: Turns a Document into Chunks (the chunker)
//   - EmbeddingService: Maps text to a fixed-length vector
//   - VectorStoreProvider: Loads or builds the persisted vector store
//   - VectorStore: Top-k retrieval over the stored chunks
//   - LLMService: Chat completion
//   - PromptStore: User-editable prompt templates
//   - ProgressReporter: Console output of progress and answers
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
