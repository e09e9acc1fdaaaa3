package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// mockVectorStore returns fixed results.
type mockVectorStore struct {
	results     []domain.RetrievedChunk
	retrieveErr error
	lastK       int
	count       int
	closed      bool
}

func (m *mockVectorStore) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedChunk, error) {
	m.lastK = k
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	if k > len(m.results) {
		return m.results, nil
	}
	return m.results[:k], nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) { return m.count, nil }
func (m *mockVectorStore) Fingerprint() domain.IndexFingerprint {
	return domain.IndexFingerprint{Model: "mock"}
}
func (m *mockVectorStore) Close() error {
	m.closed = true
	return nil
}

// mockLLMService records the last chat request.
type mockLLMService struct {
	reply    string
	chatErr  error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
	calls    int
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.reply, m.chatErr
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string          { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

// lastPrompt returns the content of the single user message.
func (m *mockLLMService) lastPrompt() string {
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1].Content
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

const testTemplate = "Answer the question using ONLY the following context:\n{{.context}}\n\nQuestion: {{.question}}"

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{driven.PromptRAGAnswer: testTemplate}}
}

// letterEmbedder maps text to counts of the letters a, b and c.
type letterEmbedder struct {
	calls int
	fail  error
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "a")),
		float32(strings.Count(lower, "b")),
		float32(strings.Count(lower, "c")),
	}, nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *letterEmbedder) Dimensions() int            { return 3 }
func (e *letterEmbedder) ModelName() string          { return "letters" }
func (e *letterEmbedder) Ping(context.Context) error { return nil }
func (e *letterEmbedder) Close() error               { return nil }

// mockLoader returns fixed documents.
type mockLoader struct {
	path  string
	docs  []domain.Document
	err   error
	calls int
}

func (m *mockLoader) Load(_ context.Context) ([]domain.Document, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockLoader) Path() string { return m.path }

// mockPipeline counts calls and delegates to a real pipeline when set.
type mockPipeline struct {
	next  driven.PostProcessorPipeline
	calls int
}

func (m *mockPipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	return m.next.Process(ctx, doc)
}

func (m *mockPipeline) ProcessAll(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	m.calls++
	return m.next.ProcessAll(ctx, docs)
}

// recordingReporter captures driver output.
type recordingReporter struct {
	progress  []string
	questions []string
	answers   []*domain.Answer
	failures  []error
}

func (r *recordingReporter) Progress(format string, args ...any) {
	r.progress = append(r.progress, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Question(q string) { r.questions = append(r.questions, q) }

func (r *recordingReporter) Answer(a *domain.Answer) { r.answers = append(r.answers, a) }

func (r *recordingReporter) Failure(_ string, err error) { r.failures = append(r.failures, err) }
