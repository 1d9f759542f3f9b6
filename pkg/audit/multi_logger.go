package audit

import (
	"context"
	"fmt"
)

// MultiLogger writes each record to several loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a new multi-logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Append writes rec to every logger, even after a failure, and returns the
// first error encountered
func (m *MultiLogger) Append(ctx context.Context, rec *Record) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Append(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all loggers
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close logger: %w", err)
		}
	}
	return firstErr
}
