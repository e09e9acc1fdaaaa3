package driven

import "github.com/custodia-labs/localrag/internal/core/domain"

// ProgressReporter receives human-readable pipeline output.
// The CLI renders it to the console.
type ProgressReporter interface {
	// Progress reports a pipeline stage, e.g. "Split into 42 chunk(s)".
	Progress(format string, args ...any)

	// Question announces a query before it is answered.
	Question(question string)

	// Answer reports a successful answer.
	Answer(answer *domain.Answer)

	// Failure reports a query that could not be answered.
	Failure(question string, err error)
}
