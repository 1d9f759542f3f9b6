package audit

import (
	"context"
	"errors"
)

// ErrAuditWrite wraps failures to persist an audit record
var ErrAuditWrite = errors.New("audit: write failed")

// Logger is the interface for audit sinks
type Logger interface {
	// Append writes one record. Implementations must be safe for concurrent use.
	Append(ctx context.Context, rec *Record) error

	// Close flushes and releases the sink
	Close() error
}

// NoOp returns a logger that discards every record
func NoOp() Logger { return noOpLogger{} }

type noOpLogger struct{}

func (noOpLogger) Append(context.Context, *Record) error { return nil }
func (noOpLogger) Close() error                          { return nil }
