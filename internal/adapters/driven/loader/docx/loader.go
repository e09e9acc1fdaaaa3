// Package docx loads Word (.docx) files as a single document.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads the paragraphs of one .docx file.
type Loader struct {
	path string
}

// New creates a new docx loader.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the document body as page 0, one line per paragraph.
func (l *Loader) Load(_ context.Context) ([]domain.Document, error) {
	reader, err := zip.OpenReader(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source file %q: %w", l.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w: %v", l.path, domain.ErrInvalidInput, err)
	}
	defer reader.Close()

	body, err := readPart(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", l.path, err)
	}
	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w: %v", l.path, domain.ErrInvalidInput, err)
	}

	return []domain.Document{{
		ID:      uuid.New().String(),
		URI:     l.path,
		Title:   extractTitle(&reader.Reader, l.path),
		Content: content,
		Page:    0,
		Metadata: map[string]any{
			domain.MetaSource: l.path,
			domain.MetaPage:   0,
			domain.MetaFormat: "docx",
		},
	}}, nil
}

// readPart returns the bytes of one file inside the archive.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, name)
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				b.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads dc:title from docProps/core.xml or falls back to the filename.
func extractTitle(reader *zip.Reader, path string) string {
	if data, err := readPart(reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if err := xml.Unmarshal(data, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
