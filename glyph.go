// Package glyph is a client for the Pointwise Glyph Server. It connects to
// a running server (or launches one as a subprocess), frames Tcl commands
// over the Glyph socket protocol, and decodes results into native values
// and remote object handles.
package glyph

import (
	"io"

	"github.com/sirupsen/logrus"
)

// log is the package-level logger. Quiet by default; callers that want
// client diagnostics replace it with SetLogger.
var log = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger replaces the package logger. Passing nil restores the
// default silent logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newDefaultLogger()
	}
	log = l
}
