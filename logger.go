package devicecore

// Logger defines the interface for runtime logging.
// The kernel uses structured logging with key-value pairs so that
// implementing applications can control how framework logs appear.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("Component initialized", "component", "storage")
//
// This approach is compatible with popular structured logging libraries
// like slog, zap, and others. A zap-backed implementation is provided in
// zaplogger.go.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	// Used for normal runtime events like component startup and removal.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	// Used for failures that don't stop the runtime but should be noted.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Used for detailed diagnostics like dependency resolution steps.
	Debug(msg string, args ...any)
}

// NewNoopLogger returns a logger that discards everything. The kernel uses
// it when callers pass a nil logger; components do the same.
func NewNoopLogger() Logger { return noopLogger{} }

// noopLogger discards everything. Used when callers pass a nil logger.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}
