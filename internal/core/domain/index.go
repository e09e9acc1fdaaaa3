package domain

import "fmt"

// IndexState is the state of the index-or-load driver.
type IndexState int

const (
	// IndexStateNeedsIndex means no usable vector store has been opened yet.
	IndexStateNeedsIndex IndexState = iota

	// IndexStateIndexed means a vector store is open and queries can run.
	IndexStateIndexed
)

// String returns the state name.
func (s IndexState) String() string {
	switch s {
	case IndexStateNeedsIndex:
		return "NEEDS_INDEX"
	case IndexStateIndexed:
		return "INDEXED"
	default:
		return fmt.Sprintf("IndexState(%d)", int(s))
	}
}

// IndexFingerprint identifies the embedding configuration a store was built with.
// Vectors from different fingerprints are not comparable.
type IndexFingerprint struct {
	Provider   AIProvider
	Model      string
	Dimensions int
}

// Matches reports whether other describes the same embedding space.
// A zero Dimensions on either side is treated as unknown and not compared.
func (f IndexFingerprint) Matches(other IndexFingerprint) bool {
	if f.Model != other.Model {
		return false
	}
	if f.Provider != "" && other.Provider != "" && f.Provider != other.Provider {
		return false
	}
	if f.Dimensions != 0 && other.Dimensions != 0 && f.Dimensions != other.Dimensions {
		return false
	}
	return true
}

// String returns a compact representation such as "ollama/nomic-embed-text (768d)".
func (f IndexFingerprint) String() string {
	name := f.Model
	if f.Provider != "" {
		name = string(f.Provider) + "/" + f.Model
	}
	if f.Dimensions > 0 {
		return fmt.Sprintf("%s (%dd)", name, f.Dimensions)
	}
	return name
}
