package base

import (
	"fmt"
	"log"
	"os"
)

// Logger defines an interface for writing log messages, matching the
// ambient logging surface the picker's host engine expects every
// subsystem to accept rather than reaching for the stdlib logger directly.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs, one *log.Logger per level so
// Infof/Errorf/Fatalf lines stay distinguishable by their leading tag in
// a plain-text stream rather than all reading identically. Used when the
// engine does not wire in its own Logger implementation.
type DefaultLogger struct{}

var (
	infoLog  = log.New(os.Stderr, "I ", log.LstdFlags)
	errorLog = log.New(os.Stderr, "E ", log.LstdFlags)
	fatalLog = log.New(os.Stderr, "F ", log.LstdFlags)
)

// Infof implements Logger.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = infoLog.Output(2, fmt.Sprintf(format, args...))
}

// Errorf implements Logger.
func (DefaultLogger) Errorf(format string, args ...interface{}) {
	_ = errorLog.Output(2, fmt.Sprintf(format, args...))
}

// Fatalf implements Logger.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = fatalLog.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}
