// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Chain answers one question from retrieved context. Driver decides
// whether to load or build the vector store and runs the queries.
package services
