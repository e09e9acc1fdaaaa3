package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/config"
	"github.com/custodia-labs/localrag/internal/logger"
)

// embeddingServer is an Ollama stand-in that only serves embeddings.
// Vectors count the letters a, b and c.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"letter-counts:latest"}]}`))
		case "/api/embeddings":
			var req struct {
				Prompt string `json:"prompt"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			text := strings.ToLower(req.Prompt)
			vec := []float64{
				float64(strings.Count(text, "a")) + 0.1,
				float64(strings.Count(text, "b")) + 0.1,
				float64(strings.Count(text, "c")) + 0.1,
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunPipeline_UnreachableChatModelFailsPerQuery(t *testing.T) {
	srv := embeddingServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Alpha. Beta. Gamma."), 0o600))

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.SourceFile = "notes.txt"
	cfg.PersistDir = filepath.Join(dir, "vector_db")
	cfg.Embedding.Model = "letter-counts"
	cfg.Embedding.BaseURL = srv.URL
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.Queries = []string{"first?", "second?"}

	origLoad := loadConfig
	loadConfig = func() (config.Config, error) { return cfg, nil }
	t.Cleanup(func() {
		loadConfig = origLoad
		rootCmd.SetArgs(nil)
	})

	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(os.Stderr)

	out, err := execute(t)

	require.NoError(t, err)
	assert.Contains(t, logs.String(), "unreachable")
	assert.Contains(t, out, "Split into 1 chunk(s)")
	assert.Contains(t, out, "Vector store saved to")
	assert.Contains(t, out, "RAG chain ready: qwen3:8b, top-3 retrieval, context window 8192")
	assert.Contains(t, out, "Question: first?")
	assert.Contains(t, out, `Failed to answer "first?"`)
	assert.Contains(t, out, "Question: second?")
	assert.Contains(t, out, `Failed to answer "second?"`)
	assert.FileExists(t, filepath.Join(cfg.PersistDir, "index.db"))
}
