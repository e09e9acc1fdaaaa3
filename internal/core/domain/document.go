package domain

// Metadata keys attached to every Document and copied onto its Chunks.
const (
	// MetaSource is the path of the file the text was loaded from.
	MetaSource = "source"

	// MetaPage is the 0-based page index inside the source file.
	MetaPage = "page"

	// MetaFormat is the loader format (pdf, plaintext).
	MetaFormat = "format"

	// MetaStartIndex is the character offset of a chunk inside its page.
	MetaStartIndex = "start_index"
)

// Document is one logical page of the source file.
// Documents are created by a loader and never mutated afterwards.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location of the source file.
	URI string

	// Title is the human-readable title, usually the file name.
	Title string

	// Content is the page text before chunking.
	Content string

	// Page is the 0-based page index.
	Page int

	// Metadata always carries MetaSource and MetaPage.
	Metadata map[string]any
}

// Source returns the source path recorded in the metadata.
func (d *Document) Source() string {
	if s, ok := d.Metadata[MetaSource].(string); ok {
		return s
	}
	return d.URI
}

// Chunk is a bounded-length window of a Document's text.
// A chunk belongs to exactly one document and carries a copy of its metadata.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the insertion order across the whole corpus.
	// Retrieval uses it to break similarity ties.
	Position int

	// Metadata contains the document metadata plus MetaStartIndex.
	Metadata map[string]any
}

// Page returns the page index from the chunk metadata, or -1 if unknown.
func (c *Chunk) Page() int {
	switch v := c.Metadata[MetaPage].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// CopyMetadata returns a shallow copy of a metadata map.
// A nil input yields an empty, non-nil map.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
