package devicecore

import (
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to the Logger interface. The kernel's
// key-value variadics map directly onto zap's sugared "w" methods.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

// NewDevelopmentLogger returns a ZapLogger backed by zap's development
// configuration, suitable for serial-console style output during bring-up.
func NewDevelopmentLogger() (*ZapLogger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

// Info logs at info level.
func (z *ZapLogger) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }

// Error logs at error level.
func (z *ZapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Warn logs at warn level.
func (z *ZapLogger) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

// Debug logs at debug level.
func (z *ZapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

// Sync flushes buffered log entries. Call before process exit.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync() //nolint:wrapcheck
}
