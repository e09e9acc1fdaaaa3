// Package loader selects a DocumentLoader for a source file.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/localrag/internal/adapters/driven/loader/docx"
	"github.com/custodia-labs/localrag/internal/adapters/driven/loader/html"
	"github.com/custodia-labs/localrag/internal/adapters/driven/loader/pdf"
	"github.com/custodia-labs/localrag/internal/adapters/driven/loader/plaintext"
	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// ForPath returns the loader for path based on its extension.
func ForPath(path string) (driven.DocumentLoader, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".pdf":
		return pdf.New(path), nil
	case ".txt", ".text", ".md", ".markdown":
		return plaintext.New(path), nil
	case ".html", ".htm", ".xhtml":
		return html.New(path), nil
	case ".docx":
		return docx.New(path), nil
	default:
		return nil, fmt.Errorf("%w: no loader for %q files (%s)", domain.ErrUnsupportedType, ext, path)
	}
}
