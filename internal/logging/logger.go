package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging. Pipeline components take a *Logger
// explicitly rather than writing to ambient global state, so they stay
// independently testable.
type Logger struct {
	info    *log.Logger
	warn    *log.Logger
	err     *log.Logger
	debug   *log.Logger
	verbose bool
}

// New creates a Logger writing to stdout/stderr. Debug output is emitted
// only when verbose is set.
func New(verbose bool) *Logger {
	return &Logger{
		info:    log.New(os.Stdout, "", 0),
		warn:    log.New(os.Stdout, "", 0),
		err:     log.New(os.Stderr, "", 0),
		debug:   log.New(os.Stdout, "", 0),
		verbose: verbose,
	}
}

// Discard returns a Logger that writes nothing. Useful in tests.
func Discard() *Logger {
	l := log.New(io.Discard, "", 0)
	return &Logger{info: l, warn: l, err: l, debug: l}
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] INFO  %s", timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] WARN  %s", timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] ERROR %s", timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] DEBUG %s", timestamp(), format), args...)
}
