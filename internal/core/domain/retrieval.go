package domain

// RetrievedChunk is a stored chunk scored against a query vector.
type RetrievedChunk struct {
	Chunk Chunk

	// Similarity is the cosine similarity in [-1, 1]. Higher is closer.
	Similarity float64
}

// Answer is the chat model's reply to one question.
// It is printed and discarded; nothing is persisted.
type Answer struct {
	// Question is the raw query as asked.
	Question string

	// Text is the parsed model output.
	Text string

	// Sources are the chunks that formed the prompt context, in retrieval order.
	Sources []RetrievedChunk
}
