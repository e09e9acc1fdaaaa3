package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/core/ports/driving"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure Driver implements the interface.
var _ driving.RAGService = (*Driver)(nil)

// AnswererFactory builds the question-answering chain over an opened store.
type AnswererFactory func(store driven.VectorStore) (driving.Answerer, error)

// Driver loads or builds the vector store, then answers questions.
//
// It has two states. NEEDS_INDEX moves to INDEXED either by loading the
// persisted store or, when none exists, by loading, chunking and indexing
// the source document. A loaded store is used as is: changes to the source
// document are not detected.
type Driver struct {
	loader    driven.DocumentLoader
	pipeline  driven.PostProcessorPipeline
	provider  driven.VectorStoreProvider
	embedding driven.EmbeddingService
	newChain  AnswererFactory
	reporter  driven.ProgressReporter

	mu       sync.Mutex
	state    domain.IndexState
	store    driven.VectorStore
	answerer driving.Answerer
}

// NewDriver creates a driver in the NEEDS_INDEX state.
func NewDriver(
	loader driven.DocumentLoader,
	pipeline driven.PostProcessorPipeline,
	provider driven.VectorStoreProvider,
	embedding driven.EmbeddingService,
	newChain AnswererFactory,
	reporter driven.ProgressReporter,
) *Driver {
	return &Driver{
		loader:    loader,
		pipeline:  pipeline,
		provider:  provider,
		embedding: embedding,
		newChain:  newChain,
		reporter:  reporter,
		state:     domain.IndexStateNeedsIndex,
	}
}

// State returns the current driver state.
func (d *Driver) State() domain.IndexState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Prepare loads the persisted store or builds a new one. Calling it again
// once INDEXED is a no-op.
func (d *Driver) Prepare(ctx context.Context) (domain.IndexState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == domain.IndexStateIndexed {
		return d.state, nil
	}

	logger.Section("Prepare")

	store, found, err := d.provider.Load(ctx, d.embedding)
	if err != nil {
		return d.state, fmt.Errorf("load vector store: %w", err)
	}

	if found {
		n, err := store.Count(ctx)
		if err != nil {
			store.Close()
			return d.state, fmt.Errorf("load vector store: %w", err)
		}
		d.reporter.Progress("Loaded existing vector store from %s (%d chunk(s))", d.provider.Location(), n)
	} else {
		store, err = d.build(ctx)
		if err != nil {
			return d.state, err
		}
	}

	answerer, err := d.newChain(store)
	if err != nil {
		store.Close()
		return d.state, fmt.Errorf("create chain: %w", err)
	}

	if desc, ok := answerer.(fmt.Stringer); ok {
		d.reporter.Progress("RAG chain ready: %s", desc)
	} else {
		d.reporter.Progress("RAG chain ready")
	}

	d.store = store
	d.answerer = answerer
	d.state = domain.IndexStateIndexed
	logger.Debug("State: %s", d.state)
	return d.state, nil
}

// build runs load, chunk and index for a missing store.
func (d *Driver) build(ctx context.Context) (driven.VectorStore, error) {
	d.reporter.Progress("No vector store at %s, building it", d.provider.Location())

	docs, err := d.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	d.reporter.Progress("Loaded %d page(s) from %s", len(docs), d.loader.Path())

	chunks, err := d.pipeline.ProcessAll(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("chunk documents: %w", err)
	}
	d.reporter.Progress("Split into %d chunk(s)", len(chunks))

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", d.loader.Path(), domain.ErrEmptyCorpus)
	}

	d.reporter.Progress("Embedding %d chunk(s) with %s", len(chunks), d.embedding.ModelName())
	store, err := d.provider.Build(ctx, chunks, d.embedding)
	if err != nil {
		return nil, fmt.Errorf("build vector store: %w", err)
	}
	d.reporter.Progress("Vector store saved to %s", d.provider.Location())
	return store, nil
}

// Ask answers one question. It fails with domain.ErrNotIndexed before a
// successful Prepare.
func (d *Driver) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	d.mu.Lock()
	answerer := d.answerer
	state := d.state
	d.mu.Unlock()

	if state != domain.IndexStateIndexed || answerer == nil {
		return nil, domain.ErrNotIndexed
	}
	return answerer.Answer(ctx, question)
}

// Run prepares the store and answers each query in turn.
// A failed query is reported and the remaining queries still run.
// Only a Prepare failure or cancellation is returned.
func (d *Driver) Run(ctx context.Context, queries []string) error {
	if _, err := d.Prepare(ctx); err != nil {
		return err
	}

	failed := 0
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.reporter.Question(q)
		answer, err := d.Ask(ctx, q)
		if err != nil {
			failed++
			logger.Warn("query %q failed: %v", q, err)
			d.reporter.Failure(q, err)
			continue
		}
		d.reporter.Answer(answer)
	}

	if failed > 0 {
		logger.Debug("%d of %d queries failed", failed, len(queries))
	}
	return ctx.Err()
}

// Close releases the vector store.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.store == nil {
		return nil
	}
	err := d.store.Close()
	d.store = nil
	d.answerer = nil
	d.state = domain.IndexStateNeedsIndex
	if err != nil {
		return fmt.Errorf("close vector store: %w", err)
	}
	return nil
}
