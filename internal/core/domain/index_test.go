package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIndexState_String tests state names
func TestIndexState_String(t *testing.T) {
	assert.Equal(t, "NEEDS_INDEX", IndexStateNeedsIndex.String())
	assert.Equal(t, "INDEXED", IndexStateIndexed.String())
	assert.Equal(t, "IndexState(7)", IndexState(7).String())
}

// TestIndexFingerprint_Matches tests embedding configuration comparison
func TestIndexFingerprint_Matches(t *testing.T) {
	base := IndexFingerprint{Provider: AIProviderOllama, Model: "nomic-embed-text", Dimensions: 768}

	tests := []struct {
		name     string
		other    IndexFingerprint
		expected bool
	}{
		{"identical", base, true},
		{"different model", IndexFingerprint{Provider: AIProviderOllama, Model: "all-minilm", Dimensions: 384}, false},
		{"different provider", IndexFingerprint{Provider: AIProviderOpenAI, Model: "nomic-embed-text", Dimensions: 768}, false},
		{"different dimensions", IndexFingerprint{Provider: AIProviderOllama, Model: "nomic-embed-text", Dimensions: 1024}, false},
		{"unknown dimensions", IndexFingerprint{Provider: AIProviderOllama, Model: "nomic-embed-text"}, true},
		{"unknown provider", IndexFingerprint{Model: "nomic-embed-text", Dimensions: 768}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.Matches(tt.other))
		})
	}
}

// TestIndexFingerprint_String tests the compact representation
func TestIndexFingerprint_String(t *testing.T) {
	fp := IndexFingerprint{Provider: AIProviderOllama, Model: "nomic-embed-text", Dimensions: 768}
	assert.Equal(t, "ollama/nomic-embed-text (768d)", fp.String())
	assert.Equal(t, "custom", IndexFingerprint{Model: "custom"}.String())
}
