// Package html loads an HTML page as a single document of readable text.
package html

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads one HTML file.
type Loader struct {
	path string
}

// New creates a new HTML loader.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the visible text of the page as page 0.
// Script, style and other non-content elements are dropped.
func (l *Loader) Load(_ context.Context) ([]domain.Document, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source file %q: %w", l.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", l.path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", l.path, err)
	}

	// The title lives in <head>, which extractText removes.
	title := extractTitle(doc, l.path)

	return []domain.Document{{
		ID:      uuid.New().String(),
		URI:     l.path,
		Title:   title,
		Content: extractText(doc),
		Page:    0,
		Metadata: map[string]any{
			domain.MetaSource: l.path,
			domain.MetaPage:   0,
			domain.MetaFormat: "html",
		},
	}}, nil
}

var (
	blockSelector = "p, div, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, table, section, article, br, hr"
	multiSpaces   = regexp.MustCompile(`[ \t\x{a0}]+`)
)

// extractText returns the body text with one line per block element.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, head, svg, template").Remove()

	// Line breaks around block elements keep paragraphs apart once tags are gone.
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml("\n")
		s.AfterHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// extractTitle uses the <title> element or falls back to the filename.
func extractTitle(doc *goquery.Document, path string) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
