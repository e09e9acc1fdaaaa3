package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests recognised and unknown providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"gemini is valid", AIProviderGemini, true},
		{"empty is invalid", AIProvider(""), false},
		{"anthropic is invalid", AIProvider("anthropic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_RequiresAPIKey tests which providers need credentials
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderGemini.IsLocal())
}

// TestAIProvider_Description tests human-readable descriptions
func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "Google Gemini (cloud)", AIProviderGemini.Description())
	assert.Equal(t, unknownDescription, AIProvider("other").Description())
}

// TestVectorBackend_IsValid tests backend names
func TestVectorBackend_IsValid(t *testing.T) {
	assert.True(t, VectorBackendSQLite.IsValid())
	assert.True(t, VectorBackendChroma.IsValid())
	assert.False(t, VectorBackend("faiss").IsValid())
	assert.Equal(t, "sqlite", VectorBackendSQLite.String())
}

// TestEmbeddingSettings_IsConfigured tests API key requirements
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	t.Run("ollama without key", func(t *testing.T) {
		s := EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"}
		assert.True(t, s.IsConfigured())
	})

	t.Run("openai without key", func(t *testing.T) {
		s := EmbeddingSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-small"}
		assert.False(t, s.IsConfigured())
	})

	t.Run("gemini with key", func(t *testing.T) {
		s := EmbeddingSettings{Provider: AIProviderGemini, APIKey: "k"}
		assert.True(t, s.IsConfigured())
	})

	t.Run("unknown provider", func(t *testing.T) {
		s := EmbeddingSettings{Provider: "bogus"}
		assert.False(t, s.IsConfigured())
	})
}

// TestLLMSettings_IsConfigured tests API key requirements for chat providers
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama, Model: "qwen3:8b"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
}

// TestEmbeddingSettings_Fingerprint tests dimension lookup for known models
func TestEmbeddingSettings_Fingerprint(t *testing.T) {
	fp := EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"}.Fingerprint()
	assert.Equal(t, AIProviderOllama, fp.Provider)
	assert.Equal(t, 768, fp.Dimensions)

	unknown := EmbeddingSettings{Provider: AIProviderOllama, Model: "custom"}.Fingerprint()
	assert.Zero(t, unknown.Dimensions)
}

// TestEmbeddingDimensions tests embedding dimensions mapping
func TestEmbeddingDimensions(t *testing.T) {
	dimensions := EmbeddingDimensions()

	require.NotEmpty(t, dimensions)
	assert.Equal(t, 768, dimensions["nomic-embed-text"])
	assert.Equal(t, 1024, dimensions["mxbai-embed-large"])
	assert.Equal(t, 1536, dimensions["text-embedding-3-small"])
	assert.Equal(t, 768, dimensions["text-embedding-004"])
}
