// Package pdf loads PDF files page by page using poppler's pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

const toolName = "pdftotext"

// pageBreak is the form feed pdftotext writes after every page.
const pageBreak = "\f"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Loader reads one PDF file into one Document per page.
type Loader struct {
	path      string
	runner    CommandRunner
	checkTool func() error
}

// New creates a PDF loader backed by the pdftotext binary.
func New(path string) *Loader {
	return &Loader{
		path:      path,
		runner:    execRunner{},
		checkTool: CheckAvailable,
	}
}

// NewWithRunner creates a PDF loader that uses runner instead of os/exec.
// The pdftotext availability check is skipped.
func NewWithRunner(path string, runner CommandRunner) *Loader {
	return &Loader{
		path:   path,
		runner: runner,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load extracts the text of every page.
// A missing file fails before pdftotext is invoked.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source file %q: %w", l.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %q: %w", l.path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %q is a directory: %w", l.path, domain.ErrInvalidInput)
	}

	if l.checkTool != nil {
		if err := l.checkTool(); err != nil {
			return nil, err
		}
	}

	logger.Debug("Running %s on %s", toolName, l.path)
	out, err := l.runner.Run(ctx, toolName, "-enc", "UTF-8", l.path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed on %s: %w", l.path, err)
	}

	pages := splitPages(string(out))
	title := extractTitle(firstNonEmpty(pages), l.path)

	docs := make([]domain.Document, len(pages))
	for i, text := range pages {
		docs[i] = domain.Document{
			ID:      uuid.New().String(),
			URI:     l.path,
			Title:   title,
			Content: text,
			Page:    i,
			Metadata: map[string]any{
				domain.MetaSource: l.path,
				domain.MetaPage:   i,
				domain.MetaFormat: "pdf",
				"total_pages":     len(pages),
			},
		}
	}

	logger.Debug("Extracted %d page(s) from %s", len(docs), l.path)
	return docs, nil
}

// splitPages splits pdftotext output on form feeds.
// The empty segment after the final form feed is dropped.
func splitPages(out string) []string {
	if out == "" {
		return nil
	}
	pages := strings.Split(out, pageBreak)
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

func firstNonEmpty(pages []string) string {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return p
		}
	}
	return ""
}

// extractTitle uses the first short non-empty line, falling back to the file name.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 200 {
			continue
		}
		return line
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}

// CheckAvailable reports whether pdftotext can be found in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return fmt.Errorf("%w. %s", ErrPDFToolNotFound, InstallInstructions())
	}
	return nil
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return "Install pdftotext (poppler): " +
		"macOS: brew install poppler; " +
		"Debian/Ubuntu: apt install poppler-utils; " +
		"Fedora: dnf install poppler-utils"
}
