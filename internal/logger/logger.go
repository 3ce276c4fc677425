// Package logger provides leveled logging for the shelfbot daemon.
// Debug messages are printed only when verbose mode is enabled via the
// --verbose flag; Info and Warn always print.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(level, format string, args ...any) {
	fmt.Fprintf(output, time.Now().UTC().Format("2006-01-02T15:04:05Z")+" ["+level+"] "+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		printf("DEBUG", format, args...)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	printf("INFO", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	printf("WARN", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	printf("ERROR", format, args...)
}
