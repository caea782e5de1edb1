package jsp

import "fmt"

// InvalidProblemError rejects a malformed problem before any construction or search starts.
type InvalidProblemError struct {
	Reason string
}

func (e *InvalidProblemError) Error() string {
	return "invalid problem: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &InvalidProblemError{Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleOrderingError means the machine orderings of a schedule induce a cycle.
// The engine only produces acyclic orderings, so seeing this is a bug.
type InfeasibleOrderingError struct {
	Labelled int
	Total    int
}

func (e *InfeasibleOrderingError) Error() string {
	return fmt.Sprintf("machine orderings contain a cycle (%d of %d operations labelled)", e.Labelled, e.Total)
}
