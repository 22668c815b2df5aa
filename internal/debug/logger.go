// Package debug provides the process-wide structured logger built on log/slog.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger  *slog.Logger
	enabled bool
	out     io.Writer = os.Stderr
	// mu protects logger, enabled and out
	mu sync.RWMutex
)

func init() {
	Init(false)
}

// Init configures the logger. With enable set, debug records are written;
// otherwise only warnings and errors are.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	logger = newLogger(out, enable)
}

// SetOutput redirects log output to w and returns a func restoring the
// previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()

	prev := out
	out = w
	logger = newLogger(out, enabled)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out = prev
		logger = newLogger(out, enabled)
	}
}

func newLogger(w io.Writer, enable bool) *slog.Logger {
	level := slog.LevelWarn
	if enable {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Logger returns the underlying slog.Logger.
func Logger() *slog.Logger {
	return current()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
