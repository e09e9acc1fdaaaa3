package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_Dir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, NewPromptStore(dir).Dir())
	assert.Equal(t, DefaultPromptDir, NewPromptStore("").Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store := NewPromptStore(dir)

	_, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)

	for _, f := range []string{"rag_answer.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store := NewPromptStore(t.TempDir())

	prompt, err := store.Load(driven.PromptRAGAnswer)

	require.NoError(t, err)
	assert.Contains(t, prompt, "ONLY the following context")
	assert.Contains(t, prompt, "{{.context}}")
	assert.Contains(t, prompt, "{{.question}}")

	def, ok := DefaultPrompt(driven.PromptRAGAnswer)
	assert.True(t, ok)
	assert.Equal(t, def, prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Context:\n{{.context}}\nQ: {{.question}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte(custom), 0600))

	prompt, err := NewPromptStore(dir).Load(driven.PromptRAGAnswer)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store := NewPromptStore(dir)

	_, _ = store.Load(driven.PromptRAGAnswer)
	require.NoError(t, os.Remove(filepath.Join(dir, "rag_answer.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptRAGAnswer)

	require.NoError(t, err)
	assert.Contains(t, prompt, "ONLY the following context")
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte("  \n"), 0600))

	prompt, err := NewPromptStore(dir).Load(driven.PromptRAGAnswer)

	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.question}}")
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	_, err := NewPromptStore(t.TempDir()).Load("nonexistent_prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store := NewPromptStore(dir)

	first, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)

	modified := "Use this: {{.context}} to answer {{.question}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte(modified), 0600))

	cached, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, modified, prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store := NewPromptStore(t.TempDir())

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	results := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptRAGAnswer)
			assert.NoError(t, err)
			results <- prompt
		}()
	}

	wg.Wait()
	close(results)

	var first string
	for prompt := range results {
		if first == "" {
			first = prompt
			continue
		}
		assert.Equal(t, first, prompt)
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := "pre-existing {{.context}} {{.question}}"
	path := filepath.Join(dir, "rag_answer.txt")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0600))

	_, _ = NewPromptStore(dir).Load(driven.PromptRAGAnswer)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte("\n\n  {{.question}}  \n\n"), 0600))

	prompt, err := NewPromptStore(dir).Load(driven.PromptRAGAnswer)
	require.NoError(t, err)

	assert.Equal(t, "{{.question}}", prompt)
}
