// Package logging is the relay's process-wide logger: a thin, level-tagged
// wrapper over the standard library's log.Logger that starts silent and is
// switched on by the -v flag, matching a daemon that stays quiet unless
// asked to be noisy.
package logging

import (
	"context"
	"log"
	"os"
)

type level string

const (
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
	levelDebug level = "DEBUG"
)

var (
	disabled = true
	logger   = log.New(os.Stdout, "", log.LstdFlags)
)

// Disable silences all logging output.
func Disable() {
	disabled = true
}

// Enable turns logging output back on.
func Enable() {
	disabled = false
}

func emit(lvl level, v ...any) {
	if disabled {
		return
	}
	args := make([]any, 0, len(v)+1)
	args = append(args, "["+string(lvl)+"]")
	args = append(args, v...)
	logger.Println(args...)
}

func emitf(lvl level, format string, v ...any) {
	if disabled {
		return
	}
	logger.Printf("[%s] "+format, append([]any{lvl}, v...)...)
}

// Info logs an info message.
func Info(v ...any) { emit(levelInfo, v...) }

// Infof logs a formatted info message.
func Infof(format string, v ...any) { emitf(levelInfo, format, v...) }

// Error logs an error message.
func Error(v ...any) { emit(levelError, v...) }

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) { emitf(levelError, format, v...) }

// Warn logs a warning message.
func Warn(v ...any) { emit(levelWarn, v...) }

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) { emitf(levelWarn, format, v...) }

// Debug logs a debug message.
func Debug(v ...any) { emit(levelDebug, v...) }

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) { emitf(levelDebug, format, v...) }

// Logger is a leveled logging handle that can be embedded in structs that
// want method-style logging without holding their own *log.Logger.
type Logger struct{}

// WithContext returns a Logger; the context is accepted for API symmetry
// with callers that thread one through but is otherwise unused.
func WithContext(ctx context.Context) Logger {
	return Logger{}
}

func (l Logger) Info(v ...any)                 { Info(v...) }
func (l Logger) Infof(format string, v ...any) { Infof(format, v...) }
func (l Logger) Error(v ...any)                { Error(v...) }
func (l Logger) Errorf(format string, v ...any) { Errorf(format, v...) }
