package pytd

import "fmt"

// ParseError is the construction error raised when a tree violates the
// class definition rules or cannot be built from its source.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Errorf returns a *ParseError with a formatted message.
func Errorf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}
