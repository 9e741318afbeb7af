package loader

import "fmt"

// DecodeError reports a document that is not a valid tree description.
type DecodeError struct {
	File    string
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// UnknownFieldError reports a key the document format does not define.
type UnknownFieldError struct {
	File  string
	Line  int
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q", e.Field)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

func decodeErrorf(line int, format string, args ...any) *DecodeError {
	return &DecodeError{Line: line, Message: fmt.Sprintf(format, args...)}
}
