// Package ai provides factory functions for creating AI service adapters
// and the vector store they feed.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/localrag/internal/adapters/driven/config/file"
	geminiembed "github.com/custodia-labs/localrag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/localrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/localrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/localrag/internal/adapters/driven/embedding/throttle"
	geminillm "github.com/custodia-labs/localrag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/localrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/localrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/localrag/internal/adapters/driven/storage/chroma"
	"github.com/custodia-labs/localrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options selects and configures every driven service the pipeline needs.
type Options struct {
	Embedding domain.EmbeddingSettings
	LLM       domain.LLMSettings
	Throttle  throttle.Config

	Backend    domain.VectorBackend
	PersistDir string
	ChromaURL  string
	Collection string

	PromptDir string

	// SkipPing disables the connectivity check on creation.
	SkipPing bool
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	StoreProvider    driven.VectorStoreProvider
	PromptStore      driven.PromptStore // User-customisable prompt templates.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if c, ok := r.StoreProvider.(io.Closer); ok {
		c.Close()
	}
}

// Init creates and validates every service described by opts.
// On error nothing is left open.
func Init(ctx context.Context, opts Options) (*InitResult, error) {
	result := &InitResult{}

	emb, err := createEmbedding(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.EmbeddingService = throttle.Wrap(emb, opts.Throttle)

	llm, err := createLLM(ctx, opts)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.LLMService = llm

	provider, err := CreateVectorStoreProvider(opts)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.StoreProvider = provider

	result.PromptStore = file.NewPromptStore(opts.PromptDir)
	return result, nil
}

func createEmbedding(ctx context.Context, opts Options) (driven.EmbeddingService, error) {
	if opts.SkipPing {
		svc, err := CreateEmbeddingService(ctx, opts.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil
	}
	return CreateAndValidateEmbeddingService(ctx, opts.Embedding)
}

// createLLM builds the chat service. An unreachable chat model is only
// warned about: each question then fails on its own and the run goes on.
func createLLM(ctx context.Context, opts Options) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, opts.LLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if opts.SkipPing {
		return svc, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		logger.Warn("%s chat model %q unreachable (%v). %s",
			opts.LLM.Provider, opts.LLM.Model, err, hint(opts.LLM.Provider, opts.LLM.Model))
	}
	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). %s",
			domain.ErrEmbeddingUnavailable, settings.Provider, err, hint(settings.Provider, settings.Model))
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). %s",
			domain.ErrLLMUnavailable, settings.Provider, err, hint(settings.Provider, settings.Model))
	}

	return svc, nil
}

// hint tells the user how to make a provider reachable.
func hint(provider domain.AIProvider, model string) string {
	switch provider {
	case domain.AIProviderOllama:
		return fmt.Sprintf("Start Ollama with 'ollama serve' and run 'ollama pull %s'", model)
	case domain.AIProviderOpenAI:
		return "Check LOCALRAG_*_API_KEY and LOCALRAG_*_BASE_URL"
	case domain.AIProviderGemini:
		return "Check the Gemini API key and network access"
	default:
		return "Check the provider configuration"
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s embedding provider requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)
	case domain.AIProviderGemini:
		return createGeminiEmbedding(ctx, settings)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s LLM provider requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)
	case domain.AIProviderGemini:
		return createGeminiLLM(ctx, settings)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}

// CreateVectorStoreProvider creates the provider for the configured backend.
func CreateVectorStoreProvider(opts Options) (driven.VectorStoreProvider, error) {
	switch opts.Backend {
	case domain.VectorBackendSQLite, "":
		if opts.PersistDir == "" {
			return nil, errors.New("sqlite vector store requires a persist directory")
		}
		return sqlite.NewProvider(opts.PersistDir, opts.Embedding.Provider), nil
	case domain.VectorBackendChroma:
		return chroma.NewProvider(chroma.Config{
			URL:        opts.ChromaURL,
			Collection: opts.Collection,
			Provider:   opts.Embedding.Provider,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %q", opts.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
// Unknown models learn their dimensions from the first response.
func createOllamaEmbedding(settings domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createGeminiEmbedding creates a Gemini embedding service.
func createGeminiEmbedding(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createGeminiLLM creates a Gemini LLM service.
func createGeminiLLM(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	return geminillm.NewLLMService(ctx, geminillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
