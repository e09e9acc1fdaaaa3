// Package plaintext loads text and Markdown files as a single page.
package plaintext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads a UTF-8 text file.
type Loader struct {
	path string
}

// New creates a new plain text loader.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the whole file as page 0.
func (l *Loader) Load(_ context.Context) ([]domain.Document, error) {
	if _, err := os.Stat(l.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source file %q: %w", l.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %q: %w", l.path, err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", l.path, err)
	}

	return []domain.Document{{
		ID:      uuid.New().String(),
		URI:     l.path,
		Title:   extractTitle(l.path),
		Content: string(data),
		Page:    0,
		Metadata: map[string]any{
			domain.MetaSource: l.path,
			domain.MetaPage:   0,
			domain.MetaFormat: "plaintext",
		},
	}}, nil
}

// extractTitle extracts a human-readable title from a path.
func extractTitle(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
