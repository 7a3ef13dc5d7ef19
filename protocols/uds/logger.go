package uds

import (
	"fmt"
	"io"
	"log"
)

// Logger receives the session's debug output, including every frame sent
// and received.
type Logger interface {
	Debug(message string)
	Debugf(message string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(message string) {}

func (nopLogger) Debugf(message string, args ...interface{}) {}

// NopLogger discards everything. It is used when no Logger is given.
var NopLogger Logger = nopLogger{}

type stdLogger struct {
	*log.Logger
}

func (l stdLogger) Debug(message string) {
	l.Println(message)
}

func (l stdLogger) Debugf(message string, args ...interface{}) {
	l.Printf(message, args...)
}

// DefaultLogger returns a Logger writing timestamped lines prefixed with
// "UDS " to out.
var DefaultLogger = func(out io.Writer) Logger {
	return stdLogger{log.New(out, "UDS ", log.LstdFlags)}
}

// logFrame writes the frame as spaced hex bytes after prefix.
func logFrame(l Logger, f []byte, prefix string) {
	if _, ok := l.(nopLogger); ok {
		return
	}
	l.Debug(fmt.Sprintf("%s% X", prefix, f))
}
