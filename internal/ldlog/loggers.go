// Package ldlog provides the SDK's leveled logging abstraction: a small
// set of per-level loggers with a bracketed category prefix, constructed
// once per Config and passed down explicitly rather than used as process
// globals.
package ldlog

import (
	"io"
	"log"
	"os"
)

// Level names one of the four supported log levels.
type Level int

// Supported levels, most to least verbose.
const (
	Debug Level = iota
	Info
	Warn
	Error
	None
)

// Loggers bundles one *log.Logger per level, all sharing a category prefix
// and a minimum-level floor below which messages are discarded.
type Loggers struct {
	debug    *log.Logger
	info     *log.Logger
	warn     *log.Logger
	errorLog *log.Logger
	minLevel Level
}

// NewLoggers builds a Loggers writing to w, prefixed with "[category]", that
// discards anything below minLevel.
func NewLoggers(w io.Writer, category string, minLevel Level) Loggers {
	prefix := "[" + category + "] "
	flags := log.LstdFlags
	return Loggers{
		debug:    log.New(w, prefix, flags),
		info:     log.New(w, prefix, flags),
		warn:     log.New(w, prefix, flags),
		errorLog: log.New(w, prefix, flags),
		minLevel: minLevel,
	}
}

// DefaultLoggers returns a Loggers writing to stderr at Info level.
func DefaultLoggers(category string) Loggers {
	return NewLoggers(os.Stderr, category, Info)
}

func (l Loggers) enabled(level Level) bool {
	return level >= l.minLevel
}

// Debugf logs a formatted message at Debug level.
func (l Loggers) Debugf(format string, args ...interface{}) {
	if l.enabled(Debug) {
		l.debug.Printf(format, args...)
	}
}

// Infof logs a formatted message at Info level.
func (l Loggers) Infof(format string, args ...interface{}) {
	if l.enabled(Info) {
		l.info.Printf(format, args...)
	}
}

// Info logs a single message at Info level.
func (l Loggers) Info(args ...interface{}) {
	if l.enabled(Info) {
		l.info.Print(args...)
	}
}

// Warnf logs a formatted message at Warn level.
func (l Loggers) Warnf(format string, args ...interface{}) {
	if l.enabled(Warn) {
		l.warn.Printf(format, args...)
	}
}

// Warn logs a single message at Warn level.
func (l Loggers) Warn(args ...interface{}) {
	if l.enabled(Warn) {
		l.warn.Print(args...)
	}
}

// Errorf logs a formatted message at Error level.
func (l Loggers) Errorf(format string, args ...interface{}) {
	if l.enabled(Error) {
		l.errorLog.Printf(format, args...)
	}
}

// Error logs a single message at Error level.
func (l Loggers) Error(args ...interface{}) {
	if l.enabled(Error) {
		l.errorLog.Print(args...)
	}
}
