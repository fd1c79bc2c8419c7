package doctree

import "fmt"

// MalformedDocumentError reports structured text that cannot be decoded.
// Line is 1-based; zero means the whole input.
type MalformedDocumentError struct {
	Line   int
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed document: line %d: %s", e.Line, e.Reason)
	}
	return "malformed document: " + e.Reason
}

// Malformed builds a *MalformedDocumentError.
func Malformed(line int, format string, args ...any) error {
	return &MalformedDocumentError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// InvariantViolationError reports a model value that breaks a document or
// ranking invariant. It signals a producer or provider bug and is never
// repaired silently.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Reason
}

// Violation builds an *InvariantViolationError.
func Violation(format string, args ...any) error {
	return &InvariantViolationError{Reason: fmt.Sprintf(format, args...)}
}
