package driven

import (
	"context"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// DocumentLoader reads one source file into an ordered sequence of Documents,
// one per logical page.
//
// Implementations must check that the file exists before any parsing and
// return an error wrapping domain.ErrNotFound that names the attempted path.
type DocumentLoader interface {
	// Load reads the source file. Documents are returned in page order.
	Load(ctx context.Context) ([]domain.Document, error)

	// Path returns the file the loader reads.
	Path() string
}
