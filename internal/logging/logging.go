// Package logging provides the leveled logger used by the server and the
// processing pipelines.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	level Level
	debug *log.Logger
	info  *log.Logger
	err   *log.Logger
	fatal *log.Logger
}

func New(level string) *Logger {
	return &Logger{
		level: ParseLevel(level),
		debug: log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime),
		info:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime),
		err:   log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime),
		fatal: log.New(os.Stderr, "FATAL: ", log.Ldate|log.Ltime),
	}
}

// NewDiscard returns a logger that drops everything. Used by tests.
func NewDiscard() *Logger {
	discard := log.New(io.Discard, "", 0)
	return &Logger{
		level: LevelError,
		debug: discard,
		info:  discard,
		err:   discard,
		fatal: discard,
	}
}

func (l *Logger) Debug(format string, v ...any) {
	if l.level > LevelDebug {
		return
	}
	l.debug.Printf(format, v...)
}

func (l *Logger) Info(format string, v ...any) {
	if l.level > LevelInfo {
		return
	}
	l.info.Printf(format, v...)
}

func (l *Logger) Error(format string, v ...any) {
	l.err.Printf(format, v...)
}

func (l *Logger) Fatal(v ...any) {
	l.fatal.Fatal(v...)
}
