package logger

import "io"

// NewNop returns a structured logger discarding all output, used in tests
// that need a Logger collaborator but assert nothing about its output.
func NewNop() Logger {
	return NewStructuredLoggerWithOutput(Config{Level: "error", Format: "json"}, io.Discard)
}
