package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

func TestLoad_SinglePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field_notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nA. B. C."), 0o600))

	docs, err := New(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "# Notes\n\nA. B. C.", docs[0].Content)
	assert.Equal(t, "field notes", docs[0].Title)
	assert.Equal(t, 0, docs[0].Page)
	assert.Equal(t, path, docs[0].Metadata[domain.MetaSource])
	assert.Equal(t, "plaintext", docs[0].Metadata[domain.MetaFormat])
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	_, err := New(missing).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), missing)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "data/a.txt", New("data/a.txt").Path())
}
