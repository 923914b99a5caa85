// Package depotlog is the structured logging facade used throughout depot.
//
// It keeps the call shape of the teacher's own minimal logger (Logf/Logln)
// but backs it with logrus so call sites get leveling and fields instead of
// a bare io.Writer.
package depotlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Logger with depot-flavored field helpers.
type Logger struct {
	l *logrus.Logger
}

// New returns a Logger writing to w. Pass nil for os.Stderr.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := logrus.New()
	l.Out = w
	l.Formatter = &logrus.TextFormatter{FullTimestamp: false}
	if verbose {
		l.Level = logrus.DebugLevel
	} else {
		l.Level = logrus.InfoLevel
	}
	return &Logger{l: l}
}

// With returns a logger scoped to the given package/uuid/depot fields.
func (lg *Logger) With(fields map[string]interface{}) *logrus.Entry {
	return lg.l.WithFields(logrus.Fields(fields))
}

// Logf logs a formatted informational line, matching the teacher's Logf.
func (lg *Logger) Logf(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}

// Logln logs an informational line, matching the teacher's Logln.
func (lg *Logger) Logln(args ...interface{}) {
	lg.l.Infoln(args...)
}

// Debugf logs at debug level, shown only when verbose.
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.l.Debugf(format, args...)
}

// Warnf logs a warning, used e.g. for the IGNORE_HASHES downgrade case.
func (lg *Logger) Warnf(format string, args ...interface{}) {
	lg.l.Warnf(format, args...)
}

// Errorf logs an error line, used immediately before a fatal exit.
func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.l.Errorf(format, args...)
}

var std = New(os.Stderr, false)

// SetVerbose toggles the package-level default logger's level.
func SetVerbose(v bool) {
	if v {
		std.l.Level = logrus.DebugLevel
	} else {
		std.l.Level = logrus.InfoLevel
	}
}

// Default returns the package-level default Logger.
func Default() *Logger { return std }
