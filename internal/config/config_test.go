package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// fakeEnv returns a LookupEnv backed by a map.
func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// noEnvFile points Load at a dotenv file that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: fakeEnv(nil)})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "livre.pdf"), cfg.SourcePath())
	assert.Equal(t, "vector_db", cfg.PersistDir)
	assert.Equal(t, filepath.Join("vector_db", "prompts"), cfg.PromptDirectory())
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 3, cfg.TopK)
	assert.Zero(t, cfg.Temperature)
	assert.Equal(t, 8192, cfg.ContextWindow)
	assert.Equal(t, domain.AIProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, domain.AIProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "qwen3:8b", cfg.LLM.Model)
	assert.Equal(t, domain.VectorBackendSQLite, cfg.Backend)
	assert.Equal(t, DefaultQueries, cfg.Queries)
	assert.Zero(t, cfg.MaxRetries)
	assert.Zero(t, cfg.RequestsPerSecond)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	env := fakeEnv(map[string]string{
		"LOCALRAG_DATA_DIR":           "books",
		"LOCALRAG_SOURCE_FILE":        "guide.pdf",
		"LOCALRAG_CHUNK_SIZE":         "500",
		"LOCALRAG_CHUNK_OVERLAP":      "50",
		"LOCALRAG_TOP_K":              "5",
		"LOCALRAG_TEMPERATURE":        "0.3",
		"LOCALRAG_EMBEDDING_PROVIDER": "OpenAI",
		"LOCALRAG_EMBEDDING_API_KEY":  "sk-embed",
		"LOCALRAG_LLM_MODEL":          "llama3.2",
		"LOCALRAG_VECTOR_BACKEND":     "chroma",
		"LOCALRAG_QUERIES":            "First? | | Second?",
		"LOCALRAG_VERBOSE":            "true",
		"LOCALRAG_RATE_LIMIT":         "2.5",
		"LOCALRAG_MAX_RETRIES":        "3",
	})

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: env})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("books", "guide.pdf"), cfg.SourcePath())
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "sk-embed", cfg.Embedding.APIKey)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, domain.VectorBackendChroma, cfg.Backend)
	assert.Equal(t, []string{"First?", "Second?"}, cfg.Queries)
	assert.True(t, cfg.Verbose)
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 1e-9)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	env := fakeEnv(map[string]string{
		"LOCALRAG_LLM_PROVIDER": "gemini",
		"GOOGLE_API_KEY":        "g-key",
	})

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: env})
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Empty(t, cfg.Embedding.APIKey)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	env := fakeEnv(map[string]string{"LOCALRAG_LLM_PROVIDER": "openai"})

	_, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: env})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an API key")
}

func TestLoad_InvalidNumbers(t *testing.T) {
	env := fakeEnv(map[string]string{
		"LOCALRAG_CHUNK_SIZE":  "big",
		"LOCALRAG_TEMPERATURE": "hot",
	})

	_, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: env})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCALRAG_CHUNK_SIZE")
	assert.Contains(t, err.Error(), "LOCALRAG_TEMPERATURE")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOCALRAG_TOP_K=7\nLOCALRAG_DATA_DIR=from-dotenv\n"), 0600))

	env := fakeEnv(map[string]string{"LOCALRAG_DATA_DIR": "from-process"})

	cfg, err := Load(LoadOptions{EnvFile: envFile, LookupEnv: env})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.TopK)
	assert.Equal(t, "from-process", cfg.DataDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "localrag.toml")
	content := `
persist_dir = "index"
top_k = 4
queries = ["Only question?"]

[chunk]
size = 600
overlap = 60

[llm]
provider = "ollama"
model = "llama3.2"
base_url = "http://gpu:11434"

[vector]
backend = "chroma"
collection = "book"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	env := fakeEnv(map[string]string{
		"LOCALRAG_CONFIG": path,
		"LOCALRAG_TOP_K":  "6",
	})

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), LookupEnv: env})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "index", cfg.PersistDir)
	assert.Equal(t, 6, cfg.TopK, "environment wins over the file")
	assert.Equal(t, 600, cfg.ChunkSize)
	assert.Equal(t, 60, cfg.ChunkOverlap)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, "http://gpu:11434", cfg.LLM.BaseURL)
	assert.Equal(t, domain.VectorBackendChroma, cfg.Backend)
	assert.Equal(t, "book", cfg.Collection)
	assert.Equal(t, []string{"Only question?"}, cfg.Queries)
	assert.Equal(t, filepath.Join("index", "prompts"), cfg.PromptDirectory())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		EnvFile:    noEnvFile(t),
		ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
		LookupEnv:  fakeEnv(nil),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk size"},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "chunk overlap"},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, "chunk overlap"},
		{"zero k", func(c *Config) { c.TopK = 0 }, "top k"},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }, "temperature"},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding provider"},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "" }, "LLM provider"},
		{"unknown backend", func(c *Config) { c.Backend = "faiss" }, "vector backend"},
		{"empty source", func(c *Config) { c.SourceFile = "" }, "source file"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_QueriesAreCopied(t *testing.T) {
	cfg := Default()
	cfg.Queries[0] = "changed"
	assert.NotEqual(t, "changed", DefaultQueries[0])
}
