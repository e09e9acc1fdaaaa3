package cli

import (
	"context"

	"github.com/custodia-labs/localrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/localrag/internal/adapters/driven/embedding/throttle"
	"github.com/custodia-labs/localrag/internal/adapters/driven/loader"
	"github.com/custodia-labs/localrag/internal/config"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/core/ports/driving"
	"github.com/custodia-labs/localrag/internal/core/services"
	"github.com/custodia-labs/localrag/internal/logger"
	"github.com/custodia-labs/localrag/internal/postprocessors"
)

// newService wires the pipeline for cfg. Tests replace it.
var newService = buildService

// buildService creates every adapter and the driver. The returned cleanup
// releases them all.
func buildService(
	ctx context.Context, cfg config.Config, reporter driven.ProgressReporter,
) (driving.RAGService, func(), error) {
	logger.Section("Setup")
	logger.Debug("Source: %s", cfg.SourcePath())
	logger.Debug("Embedding: %s/%s", cfg.Embedding.Provider, cfg.Embedding.Model)
	logger.Debug("LLM: %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	logger.Debug("Vector backend: %s", cfg.Backend)

	src, err := loader.ForPath(cfg.SourcePath())
	if err != nil {
		return nil, nil, err
	}

	res, err := ai.Init(ctx, ai.Options{
		Embedding: cfg.Embedding,
		LLM:       cfg.LLM,
		Throttle: throttle.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
		},
		Backend:    cfg.Backend,
		PersistDir: cfg.PersistDir,
		ChromaURL:  cfg.ChromaURL,
		Collection: cfg.Collection,
		PromptDir:  cfg.PromptDirectory(),
	})
	if err != nil {
		return nil, nil, err
	}

	chainCfg := services.ChainConfig{
		TopK:          cfg.TopK,
		Temperature:   cfg.Temperature,
		ContextWindow: cfg.ContextWindow,
	}

	drv := services.NewDriver(
		src,
		postprocessors.NewChunkingPipeline(cfg.ChunkSize, cfg.ChunkOverlap),
		res.StoreProvider,
		res.EmbeddingService,
		func(store driven.VectorStore) (driving.Answerer, error) {
			return services.NewChain(store, res.LLMService, res.PromptStore, chainCfg)
		},
		reporter,
	)

	cleanup := func() {
		if err := drv.Close(); err != nil {
			logger.Warn("%v", err)
		}
		res.Close()
	}
	return drv, cleanup, nil
}
