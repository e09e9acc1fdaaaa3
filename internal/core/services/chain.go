package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/core/ports/driving"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure Chain implements the interface.
var _ driving.Answerer = (*Chain)(nil)

// Chain defaults.
const (
	DefaultTopK          = 3
	DefaultContextWindow = 8192
	contextSeparator     = "\n\n"
)

// Template variables.
const (
	varContext  = "context"
	varQuestion = "question"
)

// Retriever fetches the top k chunks for a question.
type Retriever struct {
	store driven.VectorStore
	k     int
}

// NewRetriever creates a retriever. k must be positive.
func NewRetriever(store driven.VectorStore, k int) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("retriever: vector store is nil")
	}
	if k <= 0 {
		return nil, fmt.Errorf("retriever: k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	return &Retriever{store: store, k: k}, nil
}

// K returns the number of chunks retrieved per question.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve returns the chunks most similar to question.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	return r.store.Retrieve(ctx, question, r.k)
}

// ContextFormatter joins retrieved chunk texts into one context block.
type ContextFormatter struct{}

// Format concatenates chunk contents in retrieval order.
func (ContextFormatter) Format(chunks []domain.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Chunk.Content
	}
	return strings.Join(texts, contextSeparator)
}

// PromptRenderer fills the answer template.
type PromptRenderer struct {
	tmpl prompts.PromptTemplate
}

// NewPromptRenderer parses a Go template with {{.context}} and
// {{.question}} placeholders.
func NewPromptRenderer(template string) (*PromptRenderer, error) {
	vars := []string{varContext, varQuestion}
	if err := prompts.CheckValidTemplate(template, prompts.TemplateFormatGoTemplate, vars); err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	for _, v := range vars {
		if !strings.Contains(template, "."+v) {
			logger.Warn("prompt template does not reference {{.%s}}", v)
		}
	}
	return &PromptRenderer{tmpl: prompts.NewPromptTemplate(template, vars)}, nil
}

// Render substitutes context and question into the template.
func (r *PromptRenderer) Render(context, question string) (string, error) {
	out, err := r.tmpl.Format(map[string]any{
		varContext:  context,
		varQuestion: question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Generator sends a rendered prompt to the chat model.
type Generator struct {
	llm  driven.LLMService
	opts driven.ChatOptions
}

// NewGenerator creates a generator with the given sampling temperature
// and context window.
func NewGenerator(llm driven.LLMService, temperature float64, contextWindow int) *Generator {
	return &Generator{
		llm: llm,
		opts: driven.ChatOptions{
			Temperature:   temperature,
			ContextWindow: contextWindow,
		},
	}
}

// Model returns the chat model name.
func (g *Generator) Model() string {
	return g.llm.ModelName()
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, g.opts)
}

// OutputParser reduces raw model output to the answer text.
type OutputParser struct{}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Parse strips reasoning blocks and surrounding whitespace.
func (OutputParser) Parse(raw string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
}

// ChainConfig configures NewChain.
type ChainConfig struct {
	// TopK is the number of chunks retrieved (default: 3).
	TopK int

	// Temperature is the sampling temperature. Zero is deterministic.
	Temperature float64

	// ContextWindow is the model context size in tokens (default: 8192).
	ContextWindow int
}

// Chain answers a question from retrieved context.
// Every stage runs for every question.
type Chain struct {
	retriever *Retriever
	formatter ContextFormatter
	renderer  *PromptRenderer
	generator *Generator
	parser    OutputParser
}

// NewChain builds the chain. The answer template is loaded once from
// promptStore.
func NewChain(
	store driven.VectorStore,
	llm driven.LLMService,
	promptStore driven.PromptStore,
	cfg ChainConfig,
) (*Chain, error) {
	if llm == nil {
		return nil, errors.New("chain: LLM service is nil")
	}
	if promptStore == nil {
		return nil, errors.New("chain: prompt store is nil")
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = DefaultContextWindow
	}

	retriever, err := NewRetriever(store, cfg.TopK)
	if err != nil {
		return nil, err
	}

	template, err := promptStore.Load(driven.PromptRAGAnswer)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	renderer, err := NewPromptRenderer(template)
	if err != nil {
		return nil, err
	}

	return &Chain{
		retriever: retriever,
		renderer:  renderer,
		generator: NewGenerator(llm, cfg.Temperature, cfg.ContextWindow),
	}, nil
}

// String describes the chain for progress output.
func (c *Chain) String() string {
	return fmt.Sprintf("%s, top-%d retrieval, context window %d",
		c.generator.Model(), c.retriever.K(), c.generator.opts.ContextWindow)
}

// Answer runs retrieve, format, render, generate and parse in order.
func (c *Chain) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	logger.Section("Answer")
	logger.Debug("Question: %q", question)

	chunks, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("Retrieved %d chunk(s)", len(chunks))
	for i, rc := range chunks {
		logger.Debug("  %d. position=%d page=%d similarity=%.4f", i+1, rc.Chunk.Position, rc.Chunk.Page(), rc.Similarity)
	}

	prompt, err := c.renderer.Render(c.formatter.Format(chunks), question)
	if err != nil {
		return nil, err
	}
	logger.Debug("Prompt: %d characters", len(prompt))

	raw, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &domain.Answer{
		Question: question,
		Text:     c.parser.Parse(raw),
		Sources:  chunks,
	}, nil
}
