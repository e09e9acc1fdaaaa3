// Package config builds the immutable runtime configuration.
//
// Values are resolved in increasing order of precedence: built-in defaults,
// the optional config file named by LOCALRAG_CONFIG, the .env file, then the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/localrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/localrag/internal/core/domain"
)

// Defaults.
const (
	DefaultDataDir       = "data"
	DefaultSourceFile    = "livre.pdf"
	DefaultPersistDir    = "vector_db"
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultTopK          = 3
	DefaultContextWindow = 8192
	DefaultChromaURL     = "http://localhost:8000"
	DefaultCollection    = "localrag"
	DefaultEnvFile       = ".env"
)

// DefaultQueries are asked when no queries are configured.
var DefaultQueries = []string{
	"What is the main subject of the document?",
	"Summarise the introduction section.",
}

// defaultEmbeddingModels maps providers to their default embedding model.
var defaultEmbeddingModels = map[domain.AIProvider]string{
	domain.AIProviderOllama: "nomic-embed-text",
	domain.AIProviderOpenAI: "text-embedding-3-small",
	domain.AIProviderGemini: "text-embedding-004",
}

// defaultLLMModels maps providers to their default chat model.
var defaultLLMModels = map[domain.AIProvider]string{
	domain.AIProviderOllama: "qwen3:8b",
	domain.AIProviderOpenAI: "gpt-4o-mini",
	domain.AIProviderGemini: "gemini-2.5-flash",
}

// apiKeyFallbacks are the conventional provider variables used when no
// LOCALRAG_* key is set.
var apiKeyFallbacks = map[domain.AIProvider][]string{
	domain.AIProviderOpenAI: {"OPENAI_API_KEY"},
	domain.AIProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Config is the resolved configuration. It is passed by value and never
// modified after Load.
type Config struct {
	DataDir    string
	SourceFile string
	PersistDir string

	ChunkSize    int
	ChunkOverlap int

	TopK          int
	Temperature   float64
	ContextWindow int

	Embedding domain.EmbeddingSettings
	LLM       domain.LLMSettings

	Backend    domain.VectorBackend
	ChromaURL  string
	Collection string

	PromptDir string
	Queries   []string

	// MaxRetries and RequestsPerSecond configure the embedding throttle.
	// Zero disables each.
	MaxRetries        int
	RequestsPerSecond float64

	Verbose bool

	// ConfigFile is the config file that was read, empty if none.
	ConfigFile string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:       DefaultDataDir,
		SourceFile:    DefaultSourceFile,
		PersistDir:    DefaultPersistDir,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		TopK:          DefaultTopK,
		Temperature:   0,
		ContextWindow: DefaultContextWindow,
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			Model:    defaultEmbeddingModels[domain.AIProviderOllama],
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			Model:    defaultLLMModels[domain.AIProviderOllama],
		},
		Backend:    domain.VectorBackendSQLite,
		ChromaURL:  DefaultChromaURL,
		Collection: DefaultCollection,
		Queries:    append([]string(nil), DefaultQueries...),
	}
}

// SourcePath returns the source document path.
func (c Config) SourcePath() string {
	return filepath.Join(c.DataDir, c.SourceFile)
}

// PromptDirectory returns the prompt directory, defaulting to
// <persist_dir>/prompts.
func (c Config) PromptDirectory() string {
	if c.PromptDir != "" {
		return c.PromptDir
	}
	return filepath.Join(c.PersistDir, "prompts")
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// EnvFile is the dotenv file (default: .env). A missing file is ignored.
	EnvFile string

	// ConfigFile overrides LOCALRAG_CONFIG.
	ConfigFile string

	// LookupEnv reads the process environment (default: os.LookupEnv).
	LookupEnv func(string) (string, bool)
}

// Load resolves and validates the configuration.
func Load(opts LoadOptions) (Config, error) {
	env, err := newEnvSource(opts)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	path := opts.ConfigFile
	if path == "" {
		path, _ = env.lookup("LOCALRAG_CONFIG")
	}
	if path != "" {
		f, err := file.Open(path)
		if err != nil {
			return Config{}, err
		}
		applyFile(&cfg, f)
		cfg.ConfigFile = path
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}

	cfg.fillModelDefaults()
	cfg.fillAPIKeys(env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.SourceFile == "" {
		errs = append(errs, errors.New("source file must be set"))
	}
	if c.PersistDir == "" {
		errs = append(errs, errors.New("persist directory must be set"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || (c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize) {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top k must be positive, got %d", c.TopK))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be in [0, 2], got %g", c.Temperature))
	}
	if c.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("context window must not be negative, got %d", c.ContextWindow))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", c.RequestsPerSecond))
	}

	if !c.Embedding.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	} else if c.Embedding.Provider.RequiresAPIKey() && c.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding provider %s requires an API key (LOCALRAG_EMBEDDING_API_KEY)", c.Embedding.Provider))
	}
	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding model must be set"))
	}

	if !c.LLM.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("unknown LLM provider %q", c.LLM.Provider))
	} else if c.LLM.Provider.RequiresAPIKey() && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("LLM provider %s requires an API key (LOCALRAG_LLM_API_KEY)", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("LLM model must be set"))
	}

	if !c.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Backend))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func (c *Config) fillModelDefaults() {
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModels[c.Embedding.Provider]
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModels[c.LLM.Provider]
	}
}

func (c *Config) fillAPIKeys(env envSource) {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = env.first(apiKeyFallbacks[c.Embedding.Provider]...)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = env.first(apiKeyFallbacks[c.LLM.Provider]...)
	}
}

// envSource reads the process environment, falling back to .env values.
type envSource struct {
	lookupEnv func(string) (string, bool)
	dotenv    map[string]string
}

func newEnvSource(opts LoadOptions) (envSource, error) {
	src := envSource{lookupEnv: opts.LookupEnv, dotenv: map[string]string{}}
	if src.lookupEnv == nil {
		src.lookupEnv = os.LookupEnv
	}

	path := opts.EnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	values, err := godotenv.Read(path)
	switch {
	case err == nil:
		src.dotenv = values
	case errors.Is(err, os.ErrNotExist):
	default:
		return envSource{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return src, nil
}

func (e envSource) lookup(key string) (string, bool) {
	if v, ok := e.lookupEnv(key); ok && v != "" {
		return v, true
	}
	v, ok := e.dotenv[key]
	return v, ok && v != ""
}

func (e envSource) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := e.lookup(k); ok {
			return v
		}
	}
	return ""
}

// applyFile copies every recognised key from f into cfg.
func applyFile(cfg *Config, f *file.ConfigFile) {
	setString := func(dst *string, key string) {
		if v, ok := f.GetString(key); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, ok := f.GetInt(key); ok {
			*dst = v
		}
	}
	setFloat := func(dst *float64, key string) {
		if v, ok := f.GetFloat(key); ok {
			*dst = v
		}
	}

	setString(&cfg.DataDir, "data_dir")
	setString(&cfg.SourceFile, "source_file")
	setString(&cfg.PersistDir, "persist_dir")
	setString(&cfg.PromptDir, "prompt_dir")
	setInt(&cfg.ChunkSize, "chunk.size")
	setInt(&cfg.ChunkOverlap, "chunk.overlap")
	setInt(&cfg.TopK, "top_k")
	setFloat(&cfg.Temperature, "temperature")
	setInt(&cfg.ContextWindow, "context_window")

	if v, ok := f.GetString("embedding.provider"); ok {
		cfg.Embedding.Provider = domain.AIProvider(v)
		cfg.Embedding.Model = ""
	}
	setString(&cfg.Embedding.Model, "embedding.model")
	setString(&cfg.Embedding.BaseURL, "embedding.base_url")
	setString(&cfg.Embedding.APIKey, "embedding.api_key")
	setInt(&cfg.MaxRetries, "embedding.max_retries")
	setFloat(&cfg.RequestsPerSecond, "embedding.requests_per_second")

	if v, ok := f.GetString("llm.provider"); ok {
		cfg.LLM.Provider = domain.AIProvider(v)
		cfg.LLM.Model = ""
	}
	setString(&cfg.LLM.Model, "llm.model")
	setString(&cfg.LLM.BaseURL, "llm.base_url")
	setString(&cfg.LLM.APIKey, "llm.api_key")

	if v, ok := f.GetString("vector.backend"); ok {
		cfg.Backend = domain.VectorBackend(v)
	}
	setString(&cfg.ChromaURL, "vector.chroma_url")
	setString(&cfg.Collection, "vector.collection")

	if v, ok := f.GetStringSlice("queries"); ok && len(v) > 0 {
		cfg.Queries = v
	}
	if v, ok := f.GetBool("verbose"); ok {
		cfg.Verbose = v
	}
}

// applyEnv copies LOCALRAG_* variables into cfg.
func applyEnv(cfg *Config, env envSource) error {
	var errs []error

	setString := func(dst *string, key string) {
		if v, ok := env.lookup(key); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		v, ok := env.lookup(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}
	setFloat := func(dst *float64, key string) {
		v, ok := env.lookup(key)
		if !ok {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v))
			return
		}
		*dst = f
	}

	setString(&cfg.DataDir, "LOCALRAG_DATA_DIR")
	setString(&cfg.SourceFile, "LOCALRAG_SOURCE_FILE")
	setString(&cfg.PersistDir, "LOCALRAG_PERSIST_DIR")
	setString(&cfg.PromptDir, "LOCALRAG_PROMPT_DIR")
	setInt(&cfg.ChunkSize, "LOCALRAG_CHUNK_SIZE")
	setInt(&cfg.ChunkOverlap, "LOCALRAG_CHUNK_OVERLAP")
	setInt(&cfg.TopK, "LOCALRAG_TOP_K")
	setFloat(&cfg.Temperature, "LOCALRAG_TEMPERATURE")
	setInt(&cfg.ContextWindow, "LOCALRAG_CONTEXT_WINDOW")

	if v, ok := env.lookup("LOCALRAG_EMBEDDING_PROVIDER"); ok {
		cfg.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
		cfg.Embedding.Model = ""
	}
	setString(&cfg.Embedding.Model, "LOCALRAG_EMBEDDING_MODEL")
	setString(&cfg.Embedding.BaseURL, "LOCALRAG_EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.APIKey, "LOCALRAG_EMBEDDING_API_KEY")
	setInt(&cfg.MaxRetries, "LOCALRAG_MAX_RETRIES")
	setFloat(&cfg.RequestsPerSecond, "LOCALRAG_RATE_LIMIT")

	if v, ok := env.lookup("LOCALRAG_LLM_PROVIDER"); ok {
		cfg.LLM.Provider = domain.AIProvider(strings.ToLower(v))
		cfg.LLM.Model = ""
	}
	setString(&cfg.LLM.Model, "LOCALRAG_LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "LOCALRAG_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "LOCALRAG_LLM_API_KEY")

	if v, ok := env.lookup("LOCALRAG_VECTOR_BACKEND"); ok {
		cfg.Backend = domain.VectorBackend(strings.ToLower(v))
	}
	setString(&cfg.ChromaURL, "LOCALRAG_CHROMA_URL")
	setString(&cfg.Collection, "LOCALRAG_COLLECTION")

	if v, ok := env.lookup("LOCALRAG_QUERIES"); ok {
		cfg.Queries = splitQueries(v)
	}
	if v, ok := env.lookup("LOCALRAG_VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOCALRAG_VERBOSE: invalid boolean %q", v))
		} else {
			cfg.Verbose = b
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// splitQueries splits a "|"-separated list, dropping blank entries.
func splitQueries(s string) []string {
	var out []string
	for _, q := range strings.Split(s, "|") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
