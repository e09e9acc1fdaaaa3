package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error; known names fall back to a built-in default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptRAGAnswer is the retrieval-augmented answer template.
	// It is a Go template with {{.context}} and {{.question}} placeholders.
	PromptRAGAnswer = "rag_answer"
)
