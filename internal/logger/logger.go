package logger

import (
	"strings"
	"sync"
)

// Log levels accepted in the log.level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the process logger once Init has run.
	globalLogger *Logger
	once         sync.Once
)

// Init builds the process logger at the given level. Later calls return the
// logger built by the first one.
func Init(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(stdout, normalizeLevel(level))
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Used by tests and optional wiring.
func Nop() *Logger {
	return newNopLogger()
}

func normalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
