package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSink mirrors audit records into the structured log so they reach the
// same collector as the rest of the process output
type LogSink struct {
	logger logrus.FieldLogger
}

// NewLogSink creates a sink writing one Info entry per record
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

// Append implements Logger.Append
func (s *LogSink) Append(ctx context.Context, rec *Record) error {
	fields := logrus.Fields{
		"audit_kind": string(rec.Kind),
		"operator":   rec.Operator,
	}
	for _, f := range rec.Fields {
		if f.Null {
			fields[f.Key] = nil
			continue
		}
		fields[f.Key] = f.Value
	}
	s.logger.WithFields(fields).Info("Audit record")
	return nil
}

// Close implements Logger.Close
func (s *LogSink) Close() error { return nil }
