package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
)

// Palette for terminal output.
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorMuted     = lipgloss.Color("#6C7086")
	colorSuccess   = lipgloss.Color("#A6E3A1")
	colorError     = lipgloss.Color("#F38BA8")
)

type consoleStyles struct {
	Progress lipgloss.Style
	Question lipgloss.Style
	Answer   lipgloss.Style
	Sources  lipgloss.Style
	Failure  lipgloss.Style
}

func styledConsole() consoleStyles {
	return consoleStyles{
		Progress: lipgloss.NewStyle().Foreground(colorMuted),
		Question: lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		Answer:   lipgloss.NewStyle().Foreground(colorSuccess),
		Sources:  lipgloss.NewStyle().Foreground(colorSecondary).Italic(true),
		Failure:  lipgloss.NewStyle().Foreground(colorError).Bold(true),
	}
}

func plainConsole() consoleStyles {
	s := lipgloss.NewStyle()
	return consoleStyles{Progress: s, Question: s, Answer: s, Sources: s, Failure: s}
}

// console prints pipeline progress and answers. It is colourised only when
// writing to a terminal.
type console struct {
	w      io.Writer
	styles consoleStyles
}

var _ driven.ProgressReporter = (*console)(nil)

func newConsole(w io.Writer) *console {
	styles := plainConsole()
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		styles = styledConsole()
	}
	return &console{w: w, styles: styles}
}

// Progress prints a status line.
func (c *console) Progress(format string, args ...any) {
	c.println(c.styles.Progress, fmt.Sprintf(format, args...))
}

// Question prints the header for a query.
func (c *console) Question(q string) {
	fmt.Fprintln(c.w)
	c.println(c.styles.Question, "Question: "+q)
}

// Answer prints the answer text followed by the pages it drew on.
func (c *console) Answer(a *domain.Answer) {
	if a == nil {
		return
	}
	c.println(c.styles.Answer, "Answer: "+a.Text)
	if line := sourcesLine(a.Sources); line != "" {
		c.println(c.styles.Sources, line)
	}
}

// Failure reports a query that could not be answered.
func (c *console) Failure(q string, err error) {
	c.println(c.styles.Failure, fmt.Sprintf("Failed to answer %q: %v", q, err))
}

func (c *console) println(style lipgloss.Style, s string) {
	fmt.Fprintln(c.w, style.Render(s))
}

// sourcesLine lists the distinct pages (1-based) of the retrieved chunks in
// retrieval order.
func sourcesLine(sources []domain.RetrievedChunk) string {
	if len(sources) == 0 {
		return ""
	}
	seen := make(map[int]bool)
	var pages []string
	for i := range sources {
		p := sources[i].Chunk.Page()
		if p < 0 || seen[p] {
			continue
		}
		seen[p] = true
		pages = append(pages, fmt.Sprintf("%d", p+1))
	}
	if len(pages) == 0 {
		return fmt.Sprintf("Sources: %d chunk(s)", len(sources))
	}
	return fmt.Sprintf("Sources: %d chunk(s) from page %s", len(sources), strings.Join(pages, ", "))
}
